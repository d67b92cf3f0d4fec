package user

import (
	"context"

	"github.com/ehr/restws/internal/domain/person"
	"github.com/ehr/restws/internal/platform/rest"
)

// RoleResource exposes roles under /role.
type RoleResource struct {
	svc   *Service
	table *rest.PropertyTable[*Role]
}

func NewRoleResource(svc *Service) *RoleResource {
	t := rest.NewPropertyTable[*Role]("role")
	rest.ReadOnly(t, "uuid", func(r *Role) string { return r.UUID })
	rest.Field(t, "role", func(r *Role) string { return r.Role },
		func(r *Role, v string) { r.Role = v }, rest.String)
	rest.Field(t, "description", func(r *Role) string { return r.Description },
		func(r *Role, v string) { r.Description = v }, rest.String)
	rest.ReadOnly(t, "retired", func(r *Role) bool { return r.Retired })
	return &RoleResource{svc: svc, table: t}
}

func (r *RoleResource) Name() string       { return "role" }
func (r *RoleResource) NewDelegate() *Role { return &Role{} }

func (r *RoleResource) GetByUniqueID(ctx context.Context, id string) (*Role, error) {
	return r.svc.GetRole(ctx, id)
}

func (r *RoleResource) Save(ctx context.Context, x *Role) (*Role, error) {
	return r.svc.SaveRole(ctx, x)
}

func (r *RoleResource) Delete(ctx context.Context, x *Role, reason string) error {
	return r.svc.RetireRole(ctx, x, reason)
}

func (r *RoleResource) Purge(ctx context.Context, x *Role) error {
	return r.svc.PurgeRole(ctx, x)
}

func (r *RoleResource) Search(ctx context.Context, query string) ([]*Role, error) {
	return r.svc.SearchRoles(ctx, query)
}

func (r *RoleResource) Description(rep rest.Representation) *rest.Description[*Role] {
	switch rep.Kind() {
	case rest.KindRef:
		return rest.NewDescription[*Role]().AddProperty("uuid", "display", "uri")
	case rest.KindDefault:
		return rest.NewDescription[*Role]().AddProperty("uuid", "display", "role", "description", "retired", "uri")
	case rest.KindFull:
		return rest.NewDescription[*Role]().AddProperty("uuid", "display", "role", "description", "retired", "auditInfo", "uri")
	}
	return nil
}

func (r *RoleResource) Properties() rest.PropertyAccessor[*Role] { return r.table }
func (r *RoleResource) DisplayString(x *Role) string              { return x.Role }

// UserResource exposes users under /user. Its delegate pairs the user with
// the plain password of the request; "password" is routed to the pair and
// every other property to the user. No description lists the password, so
// it never reaches the wire.
type UserResource struct {
	svc   *Service
	props rest.PropertyAccessor[*UserAndPassword]
}

func NewUserResource(svc *Service, persons PersonLookup) *UserResource {
	users := rest.NewPropertyTable[*User]("user")
	rest.ReadOnly(users, "uuid", func(u *User) string { return u.UUID })
	rest.Field(users, "username", func(u *User) string { return u.Username },
		func(u *User, v string) { u.Username = v }, rest.String)
	rest.Field(users, "systemId", func(u *User) string { return u.SystemID },
		func(u *User, v string) { u.SystemID = v }, rest.String)
	rest.Field(users, "userProperties", func(u *User) map[string]string { return u.UserProperties },
		func(u *User, v map[string]string) { u.UserProperties = v }, rest.StringMap)
	rest.Field(users, "person", func(u *User) *person.Person { return u.Person },
		func(u *User, v *person.Person) { u.Person = v }, rest.Reference(persons.GetPerson))
	rest.Field(users, "roles", func(u *User) []*Role { return u.Roles },
		func(u *User, v []*Role) { u.Roles = v }, rest.ReferenceList(svc.GetRole))
	rest.Field(users, "proficientLocales", func(u *User) []string { return u.ProficientLocales },
		func(u *User, v []string) { u.ProficientLocales = v }, rest.StringList)
	rest.Field(users, "secretQuestion", func(u *User) string { return u.SecretQuestion },
		func(u *User, v string) { u.SecretQuestion = v }, rest.String)
	rest.ReadOnly(users, "retired", func(u *User) bool { return u.Retired })

	passwords := rest.NewPropertyTable[*UserAndPassword]("user")
	rest.Field(passwords, "password", func(u *UserAndPassword) string { return u.Password },
		func(u *UserAndPassword, v string) { u.Password = v }, rest.String)

	return &UserResource{
		svc: svc,
		props: rest.Chain("user",
			rest.PropertyAccessor[*UserAndPassword](passwords),
			rest.Project(rest.PropertyAccessor[*User](users), func(u *UserAndPassword) *User { return u.User }),
		),
	}
}

func (r *UserResource) Name() string { return "user" }

func (r *UserResource) NewDelegate() *UserAndPassword {
	return &UserAndPassword{User: &User{}}
}

func (r *UserResource) GetByUniqueID(ctx context.Context, id string) (*UserAndPassword, error) {
	u, err := r.svc.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return &UserAndPassword{User: u}, nil
}

func (r *UserResource) Save(ctx context.Context, d *UserAndPassword) (*UserAndPassword, error) {
	u, err := r.svc.SaveUser(ctx, d.User, d.Password)
	if err != nil {
		return nil, err
	}
	return &UserAndPassword{User: u}, nil
}

func (r *UserResource) Delete(ctx context.Context, d *UserAndPassword, reason string) error {
	return r.svc.RetireUser(ctx, d.User, reason)
}

func (r *UserResource) Purge(ctx context.Context, d *UserAndPassword) error {
	return r.svc.PurgeUser(ctx, d.User)
}

func (r *UserResource) Search(ctx context.Context, query string) ([]*UserAndPassword, error) {
	found, err := r.svc.SearchUsers(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]*UserAndPassword, len(found))
	for i, u := range found {
		out[i] = &UserAndPassword{User: u}
	}
	return out, nil
}

func (r *UserResource) Description(rep rest.Representation) *rest.Description[*UserAndPassword] {
	switch rep.Kind() {
	case rest.KindRef:
		return rest.NewDescription[*UserAndPassword]().AddProperty("uuid", "display", "uri")
	case rest.KindDefault:
		return rest.NewDescription[*UserAndPassword]().
			AddProperty("uuid", "display", "username", "systemId", "userProperties").
			AddNested("person", rest.Ref).
			AddNested("roles", rest.Ref).
			AddProperty("retired", "uri")
	case rest.KindFull:
		return rest.NewDescription[*UserAndPassword]().
			AddProperty("uuid", "display", "username", "systemId", "userProperties").
			AddNested("person", rest.Default).
			AddNested("roles", rest.Ref).
			AddProperty("proficientLocales", "secretQuestion", "retired", "auditInfo", "uri")
	}
	return nil
}

func (r *UserResource) Properties() rest.PropertyAccessor[*UserAndPassword] { return r.props }

// DisplayString is "login - full name", or just the login without a person.
func (r *UserResource) DisplayString(d *UserAndPassword) string {
	u := d.User
	if u.Person == nil || u.Person.FullName() == "" {
		return u.Login()
	}
	return u.Login() + " - " + u.Person.FullName()
}
