package user

import (
	"github.com/ehr/restws/internal/domain"
	"github.com/ehr/restws/internal/domain/person"
)

type Role struct {
	UUID        string
	Role        string
	Description string
	domain.Audit
	domain.RetireInfo
}

// RoleRef returns a stub carrying only the uuid.
func RoleRef(r *Role) *Role {
	if r == nil {
		return nil
	}
	return &Role{UUID: r.UUID}
}

func (r *Role) clone() *Role {
	cp := *r
	return &cp
}

type User struct {
	UUID              string
	Username          string
	SystemID          string
	UserProperties    map[string]string
	Person            *person.Person
	Roles             []*Role
	ProficientLocales []string
	SecretQuestion    string
	HashedPassword    string
	domain.Audit
	domain.RetireInfo
}

// Login is the username, or the system id for accounts without one.
func (u *User) Login() string {
	if u.Username != "" {
		return u.Username
	}
	return u.SystemID
}

func (u *User) clone() *User {
	cp := *u
	cp.Person = person.Ref(u.Person)
	cp.UserProperties = make(map[string]string, len(u.UserProperties))
	for k, v := range u.UserProperties {
		cp.UserProperties[k] = v
	}
	cp.Roles = make([]*Role, 0, len(u.Roles))
	for _, r := range u.Roles {
		cp.Roles = append(cp.Roles, RoleRef(r))
	}
	cp.ProficientLocales = append([]string(nil), u.ProficientLocales...)
	return &cp
}

// UserAndPassword is the delegate of the user resource: the stored user plus
// a write-only password that is hashed on save and never read back.
type UserAndPassword struct {
	User     *User
	Password string
}

func (u *UserAndPassword) AuditInfo() *domain.Audit { return &u.User.Audit }
func (u *UserAndPassword) IsVoided() bool           { return u.User.Retired }
