package concept

import "context"

type ConceptRepository interface {
	Get(ctx context.Context, uuid string) (*Concept, error)
	Save(ctx context.Context, c *Concept) error
	Delete(ctx context.Context, uuid string) error
	// Search matches on the concept name.
	Search(ctx context.Context, query string) ([]*Concept, error)
}

// DescriptionRepository stores descriptions. The Concept of a returned
// description is a stub carrying only its uuid.
type DescriptionRepository interface {
	Get(ctx context.Context, uuid string) (*Description, error)
	Save(ctx context.Context, d *Description) error
	Delete(ctx context.Context, uuid string) error
	ListByConcept(ctx context.Context, conceptUUID string) ([]*Description, error)
	DeleteByConcept(ctx context.Context, conceptUUID string) error
}
