package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ehr/restws/internal/domain"
	"github.com/ehr/restws/internal/domain/person"
)

// MinPasswordLength is the shortest password SaveUser accepts.
const MinPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.@-]{2,50}$`)

// PersonLookup resolves the person behind a user.
type PersonLookup interface {
	GetPerson(ctx context.Context, uuid string) (*person.Person, error)
}

type Service struct {
	users   UserRepository
	roles   RoleRepository
	persons PersonLookup
	cost    int
	now     func() time.Time
}

func NewService(users UserRepository, roles RoleRepository, persons PersonLookup) *Service {
	return &Service{users: users, roles: roles, persons: persons, cost: bcrypt.DefaultCost, now: time.Now}
}

// CountByPerson reports how many users are backed by a person. It is
// registered as a person purge dependency.
func (s *Service) CountByPerson(ctx context.Context, personUUID string) (int, error) {
	return s.users.CountByPerson(ctx, personUUID)
}

func (s *Service) GetRole(ctx context.Context, id string) (*Role, error) {
	return s.roles.Get(ctx, id)
}

func (s *Service) SaveRole(ctx context.Context, r *Role) (*Role, error) {
	r.Role = strings.TrimSpace(r.Role)
	if r.Role == "" {
		return nil, domain.Invalid("role", "role is required")
	}
	if existing, err := s.roles.GetByName(ctx, r.Role); err == nil && existing.UUID != r.UUID {
		return nil, domain.Invalid("role", "role %s already exists", r.Role)
	}
	if r.UUID == "" {
		r.UUID = uuid.NewString()
	}
	r.Stamp(domain.UserFrom(ctx), s.now())
	if err := s.roles.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("save role: %w", err)
	}
	return r, nil
}

func (s *Service) RetireRole(ctx context.Context, r *Role, reason string) error {
	if !r.Retire(domain.UserFrom(ctx), reason, s.now()) {
		return nil
	}
	return s.roles.Save(ctx, r)
}

func (s *Service) PurgeRole(ctx context.Context, r *Role) error {
	deps := []domain.Dependency{{Kind: "users", Count: s.users.CountByRole}}
	if err := domain.CheckDependents(ctx, "role", r.UUID, deps); err != nil {
		return err
	}
	return s.roles.Delete(ctx, r.UUID)
}

func (s *Service) SearchRoles(ctx context.Context, query string) ([]*Role, error) {
	return s.roles.Search(ctx, query)
}

// GetUser returns the user with its person and roles loaded.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) hydrate(ctx context.Context, u *User) error {
	if u.Person != nil {
		p, err := s.persons.GetPerson(ctx, u.Person.UUID)
		if err != nil {
			return fmt.Errorf("load person of user %s: %w", u.UUID, err)
		}
		u.Person = p
	}
	for i, stub := range u.Roles {
		r, err := s.roles.Get(ctx, stub.UUID)
		if err != nil {
			return fmt.Errorf("load role %s of user %s: %w", stub.UUID, u.UUID, err)
		}
		u.Roles[i] = r
	}
	return nil
}

// SaveUser validates and stores u. A non-empty password replaces the stored
// hash; a new user must supply one.
func (s *Service) SaveUser(ctx context.Context, u *User, password string) (*User, error) {
	u.Username = strings.TrimSpace(u.Username)
	if u.Username != "" && !usernamePattern.MatchString(u.Username) {
		return nil, domain.Invalid("username", "username %q contains invalid characters", u.Username)
	}
	if u.Person == nil || u.Person.UUID == "" {
		return nil, domain.Invalid("person", "person is required")
	}
	if _, err := s.persons.GetPerson(ctx, u.Person.UUID); err != nil {
		return nil, domain.Invalid("person", "person %s does not exist", u.Person.UUID)
	}
	if u.Username != "" {
		existing, err := s.users.GetByUsername(ctx, u.Username)
		if err == nil && existing.UUID != u.UUID {
			return nil, domain.Invalid("username", "username %s is already in use", u.Username)
		}
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	if u.SystemID == "" {
		n, err := s.users.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count users: %w", err)
		}
		u.SystemID = SystemID(n + 1)
	}

	if password == "" && u.HashedPassword == "" {
		return nil, domain.Invalid("password", "password is required")
	}
	if password != "" {
		if err := validatePassword(u, password); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.HashedPassword = string(hash)
	}
	if u.UserProperties == nil {
		u.UserProperties = map[string]string{}
	}
	if u.UUID == "" {
		u.UUID = uuid.NewString()
	}
	u.Stamp(domain.UserFrom(ctx), s.now())
	if err := s.users.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return u, nil
}

func validatePassword(u *User, password string) error {
	if len(password) < MinPasswordLength {
		return domain.Invalid("password", "password must be at least %d characters", MinPasswordLength)
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return domain.Invalid("password", "password must mix upper case, lower case and digits")
	}
	if strings.EqualFold(password, u.Username) || strings.EqualFold(password, u.SystemID) {
		return domain.Invalid("password", "password must differ from the username")
	}
	return nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(u *User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)) == nil
}

// SystemID formats a sequence number with its Luhn check digit, e.g. "3-4".
func SystemID(n int) string {
	return fmt.Sprintf("%d-%d", n, luhnDigit(n))
}

func luhnDigit(n int) int {
	digits := fmt.Sprint(n)
	sum := 0
	double := true
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return (10 - sum%10) % 10
}

func (s *Service) RetireUser(ctx context.Context, u *User, reason string) error {
	if !u.Retire(domain.UserFrom(ctx), reason, s.now()) {
		return nil
	}
	return s.users.Save(ctx, u)
}

func (s *Service) PurgeUser(ctx context.Context, u *User) error {
	return s.users.Delete(ctx, u.UUID)
}

func (s *Service) SearchUsers(ctx context.Context, query string) ([]*User, error) {
	found, err := s.users.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	for _, u := range found {
		if err := s.hydrate(ctx, u); err != nil {
			return nil, err
		}
	}
	return found, nil
}
