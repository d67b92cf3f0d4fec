package user

import (
	"context"
	"strings"

	"github.com/ehr/restws/internal/domain"
	"github.com/ehr/restws/internal/domain/person"
)

type roleMemory struct {
	store *domain.MemoryStore[*Role]
}

// NewMemoryRoleRepo returns an in-process role store.
func NewMemoryRoleRepo() RoleRepository {
	return &roleMemory{store: domain.NewMemoryStore((*Role).clone)}
}

func (r *roleMemory) Get(_ context.Context, uuid string) (*Role, error) {
	return r.store.Get(uuid)
}

func (r *roleMemory) GetByName(_ context.Context, role string) (*Role, error) {
	found := r.store.Filter(func(x *Role) bool { return strings.EqualFold(x.Role, role) })
	if len(found) == 0 {
		return nil, domain.ErrNotFound
	}
	return found[0], nil
}

func (r *roleMemory) Save(_ context.Context, x *Role) error {
	r.store.Put(x.UUID, x)
	return nil
}

func (r *roleMemory) Delete(_ context.Context, uuid string) error {
	if !r.store.Delete(uuid) {
		return domain.ErrNotFound
	}
	return nil
}

func (r *roleMemory) Search(_ context.Context, query string) ([]*Role, error) {
	return r.store.Filter(func(x *Role) bool { return domain.Matches(query, x.Role) }), nil
}

type userMemory struct {
	store   *domain.MemoryStore[*User]
	persons person.PersonRepository
}

// NewMemoryUserRepo returns an in-process user store. persons is consulted
// for name searches.
func NewMemoryUserRepo(persons person.PersonRepository) UserRepository {
	return &userMemory{store: domain.NewMemoryStore((*User).clone), persons: persons}
}

func (r *userMemory) Get(_ context.Context, uuid string) (*User, error) {
	return r.store.Get(uuid)
}

func (r *userMemory) GetByUsername(_ context.Context, username string) (*User, error) {
	found := r.store.Filter(func(u *User) bool {
		return u.Username != "" && strings.EqualFold(u.Username, username)
	})
	if len(found) == 0 {
		return nil, domain.ErrNotFound
	}
	return found[0], nil
}

func (r *userMemory) Save(_ context.Context, u *User) error {
	r.store.Put(u.UUID, u)
	return nil
}

func (r *userMemory) Delete(_ context.Context, uuid string) error {
	if !r.store.Delete(uuid) {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userMemory) Search(ctx context.Context, query string) ([]*User, error) {
	people, err := r.persons.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	named := make(map[string]bool, len(people))
	for _, p := range people {
		named[p.UUID] = true
	}
	return r.store.Filter(func(u *User) bool {
		return domain.Matches(query, u.Username, u.SystemID) || (u.Person != nil && named[u.Person.UUID])
	}), nil
}

func (r *userMemory) Count(context.Context) (int, error) {
	return r.store.Len(), nil
}

func (r *userMemory) CountByPerson(_ context.Context, personUUID string) (int, error) {
	return r.store.Count(func(u *User) bool { return u.Person != nil && u.Person.UUID == personUUID }), nil
}

func (r *userMemory) CountByRole(_ context.Context, roleUUID string) (int, error) {
	return r.store.Count(func(u *User) bool {
		for _, x := range u.Roles {
			if x.UUID == roleUUID {
				return true
			}
		}
		return false
	}), nil
}
