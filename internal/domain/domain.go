// Package domain holds the value types and errors shared by every domain
// service: audit stamps, void/retire state and the failure taxonomy the REST
// layer relies on.
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a uuid does not resolve to an entity.
	ErrNotFound = errors.New("not found")
	// ErrHasDependents is returned when a purge would orphan other records.
	ErrHasDependents = errors.New("has dependent data")
)

// ValidationError is a business-rule rejection of a save.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Dependents wraps ErrHasDependents with a description of what blocks the purge.
func Dependents(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrHasDependents)
}

// Audit records who created and last changed an entity.
type Audit struct {
	Creator     string     `json:"creator" yaml:"creator"`
	DateCreated time.Time  `json:"dateCreated" yaml:"dateCreated"`
	ChangedBy   string     `json:"changedBy,omitempty" yaml:"changedBy"`
	DateChanged *time.Time `json:"dateChanged,omitempty" yaml:"dateChanged"`
}

// AuditInfo exposes the stamps to generic code.
func (a *Audit) AuditInfo() *Audit { return a }

// Stamp sets the creation stamp on a new entity or the change stamp on an
// existing one.
func (a *Audit) Stamp(user string, now time.Time) {
	if a.DateCreated.IsZero() {
		a.Creator = user
		a.DateCreated = now
		return
	}
	a.ChangedBy = user
	a.DateChanged = &now
}

// VoidInfo is the soft-delete state of patient data.
type VoidInfo struct {
	Voided     bool       `json:"voided" yaml:"voided"`
	VoidedBy   string     `json:"voidedBy,omitempty" yaml:"voidedBy"`
	DateVoided *time.Time `json:"dateVoided,omitempty" yaml:"dateVoided"`
	VoidReason string     `json:"voidReason,omitempty" yaml:"voidReason"`
}

// IsVoided reports the soft-delete flag.
func (v *VoidInfo) IsVoided() bool { return v.Voided }

// Void marks the entity voided. It returns false, leaving the first reason in
// place, when the entity is already voided.
func (v *VoidInfo) Void(user, reason string, now time.Time) bool {
	if v.Voided {
		return false
	}
	v.Voided = true
	v.VoidedBy = user
	v.DateVoided = &now
	v.VoidReason = reason
	return true
}

// RetireInfo is the soft-delete state of metadata.
type RetireInfo struct {
	Retired      bool       `json:"retired" yaml:"retired"`
	RetiredBy    string     `json:"retiredBy,omitempty" yaml:"retiredBy"`
	DateRetired  *time.Time `json:"dateRetired,omitempty" yaml:"dateRetired"`
	RetireReason string     `json:"retireReason,omitempty" yaml:"retireReason"`
}

// IsVoided lets retired metadata share the generic idempotent delete path.
func (r *RetireInfo) IsVoided() bool { return r.Retired }

// Retire marks the entity retired; false when it already was.
func (r *RetireInfo) Retire(user, reason string, now time.Time) bool {
	if r.Retired {
		return false
	}
	r.Retired = true
	r.RetiredBy = user
	r.DateRetired = &now
	r.RetireReason = reason
	return true
}

type userKey struct{}

// WithUser stores the acting user's name on the context.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFrom returns the acting user's name, "unknown" when none is set.
func UserFrom(ctx context.Context) string {
	if u, ok := ctx.Value(userKey{}).(string); ok && u != "" {
		return u
	}
	return "unknown"
}

// RequireReason validates the audit reason for a void or retire.
func RequireReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return Invalid("reason", "a reason is required")
	}
	return nil
}

// Matches reports a case-insensitive substring match used by the searches.
func Matches(query string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// Transactor runs fn atomically where the underlying store supports it.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoTx runs fn directly. The in-memory stores use it.
type NoTx struct{}

func (NoTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
