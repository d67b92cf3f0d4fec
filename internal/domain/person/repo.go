package person

import "context"

// PersonRepository stores people. Get returns domain.ErrNotFound for an
// unknown uuid.
type PersonRepository interface {
	Get(ctx context.Context, uuid string) (*Person, error)
	Save(ctx context.Context, p *Person) error
	Delete(ctx context.Context, uuid string) error
	Search(ctx context.Context, query string) ([]*Person, error)
}

// PatientRepository stores patients. The Person of a returned patient is a
// stub carrying only its uuid.
type PatientRepository interface {
	Get(ctx context.Context, uuid string) (*Patient, error)
	Save(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, uuid string) error
	// Search matches the identifier or the person's name.
	Search(ctx context.Context, query string) ([]*Patient, error)
	CountByPerson(ctx context.Context, personUUID string) (int, error)
	GetByIdentifier(ctx context.Context, identifier string) (*Patient, error)
}
