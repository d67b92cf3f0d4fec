package user

import "context"

type RoleRepository interface {
	Get(ctx context.Context, uuid string) (*Role, error)
	GetByName(ctx context.Context, role string) (*Role, error)
	Save(ctx context.Context, r *Role) error
	Delete(ctx context.Context, uuid string) error
	Search(ctx context.Context, query string) ([]*Role, error)
}

// UserRepository stores users. The Person and Roles of a returned user are
// stubs carrying only their uuids.
type UserRepository interface {
	Get(ctx context.Context, uuid string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Save(ctx context.Context, u *User) error
	Delete(ctx context.Context, uuid string) error
	// Search matches the username, the system id or the person's name.
	Search(ctx context.Context, query string) ([]*User, error)
	Count(ctx context.Context) (int, error)
	CountByPerson(ctx context.Context, personUUID string) (int, error)
	CountByRole(ctx context.Context, roleUUID string) (int, error)
}
