package db

import "github.com/ehr/restws/internal/domain"

// Shared column lists for the audit and soft-delete value types. Every
// entity table carries the audit columns, plus either the void or the
// retire columns.
const (
	AuditCols  = `creator, date_created, changed_by, date_changed`
	VoidCols   = `voided, voided_by, date_voided, void_reason`
	RetireCols = `retired, retired_by, date_retired, retire_reason`
)

// AuditArgs returns the values for AuditCols.
func AuditArgs(a *domain.Audit) []interface{} {
	return []interface{}{a.Creator, a.DateCreated, a.ChangedBy, a.DateChanged}
}

// AuditDest returns scan targets for AuditCols.
func AuditDest(a *domain.Audit) []interface{} {
	return []interface{}{&a.Creator, &a.DateCreated, &a.ChangedBy, &a.DateChanged}
}

// VoidArgs returns the values for VoidCols.
func VoidArgs(v *domain.VoidInfo) []interface{} {
	return []interface{}{v.Voided, v.VoidedBy, v.DateVoided, v.VoidReason}
}

// VoidDest returns scan targets for VoidCols.
func VoidDest(v *domain.VoidInfo) []interface{} {
	return []interface{}{&v.Voided, &v.VoidedBy, &v.DateVoided, &v.VoidReason}
}

// RetireArgs returns the values for RetireCols.
func RetireArgs(r *domain.RetireInfo) []interface{} {
	return []interface{}{r.Retired, r.RetiredBy, r.DateRetired, r.RetireReason}
}

// RetireDest returns scan targets for RetireCols.
func RetireDest(r *domain.RetireInfo) []interface{} {
	return []interface{}{&r.Retired, &r.RetiredBy, &r.DateRetired, &r.RetireReason}
}

// Args concatenates argument groups for one statement.
func Args(groups ...[]interface{}) []interface{} {
	var out []interface{}
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
