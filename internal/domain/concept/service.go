package concept

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/restws/internal/domain"
)

// DefaultLocale is assigned to descriptions created without one.
const DefaultLocale = "en"

type Service struct {
	concepts     ConceptRepository
	descriptions DescriptionRepository
	tx           domain.Transactor
	deps         []domain.Dependency
	now          func() time.Time
}

func NewService(concepts ConceptRepository, descriptions DescriptionRepository, tx domain.Transactor) *Service {
	if tx == nil {
		tx = domain.NoTx{}
	}
	return &Service{concepts: concepts, descriptions: descriptions, tx: tx, now: time.Now}
}

// AddDependency registers a kind of record that blocks a concept purge.
func (s *Service) AddDependency(d domain.Dependency) {
	s.deps = append(s.deps, d)
}

// GetConcept returns the concept with its descriptions loaded.
func (s *Service) GetConcept(ctx context.Context, id string) (*Concept, error) {
	c, err := s.concepts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.loadDescriptions(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) loadDescriptions(ctx context.Context, c *Concept) error {
	ds, err := s.descriptions.ListByConcept(ctx, c.UUID)
	if err != nil {
		return fmt.Errorf("load descriptions of concept %s: %w", c.UUID, err)
	}
	for _, d := range ds {
		d.Concept = c
	}
	c.Descriptions = ds
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func (s *Service) SaveConcept(ctx context.Context, c *Concept) (*Concept, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, domain.Invalid("name", "name is required")
	}
	if c.Datatype == "" {
		c.Datatype = "N/A"
	}
	if !oneOf(c.Datatype, Datatypes) {
		return nil, domain.Invalid("datatype", "datatype must be one of %s", strings.Join(Datatypes, ", "))
	}
	if c.ConceptClass == "" {
		c.ConceptClass = "Misc"
	}
	if !oneOf(c.ConceptClass, Classes) {
		return nil, domain.Invalid("conceptClass", "conceptClass must be one of %s", strings.Join(Classes, ", "))
	}
	if c.UUID == "" {
		c.UUID = uuid.NewString()
	}
	c.Stamp(domain.UserFrom(ctx), s.now())
	if err := s.concepts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save concept: %w", err)
	}
	return c, nil
}

func (s *Service) RetireConcept(ctx context.Context, c *Concept, reason string) error {
	if !c.Retire(domain.UserFrom(ctx), reason, s.now()) {
		return nil
	}
	return s.concepts.Save(ctx, c)
}

// PurgeConcept removes the concept together with its descriptions.
func (s *Service) PurgeConcept(ctx context.Context, c *Concept) error {
	if err := domain.CheckDependents(ctx, "concept", c.UUID, s.deps); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.descriptions.DeleteByConcept(ctx, c.UUID); err != nil {
			return err
		}
		return s.concepts.Delete(ctx, c.UUID)
	})
}

func (s *Service) SearchConcepts(ctx context.Context, query string) ([]*Concept, error) {
	found, err := s.concepts.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	for _, c := range found {
		if err := s.loadDescriptions(ctx, c); err != nil {
			return nil, err
		}
	}
	return found, nil
}

// GetDescription returns the description with its concept loaded.
func (s *Service) GetDescription(ctx context.Context, id string) (*Description, error) {
	d, err := s.descriptions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Concept != nil {
		c, err := s.concepts.Get(ctx, d.Concept.UUID)
		if err != nil {
			return nil, fmt.Errorf("load concept of description %s: %w", d.UUID, err)
		}
		d.Concept = c
	}
	return d, nil
}

func (s *Service) SaveDescription(ctx context.Context, d *Description) (*Description, error) {
	d.Description = strings.TrimSpace(d.Description)
	if d.Description == "" {
		return nil, domain.Invalid("description", "description is required")
	}
	if d.Concept == nil || d.Concept.UUID == "" {
		return nil, domain.Invalid("concept", "concept is required")
	}
	if _, err := s.concepts.Get(ctx, d.Concept.UUID); err != nil {
		return nil, domain.Invalid("concept", "concept %s does not exist", d.Concept.UUID)
	}
	if d.Locale == "" {
		d.Locale = DefaultLocale
	}
	if d.UUID == "" {
		d.UUID = uuid.NewString()
	}
	d.Stamp(domain.UserFrom(ctx), s.now())
	if err := s.descriptions.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save concept description: %w", err)
	}
	return d, nil
}

// RemoveDescription deletes the description from its concept. Descriptions
// have no soft-delete state, so delete and purge both remove it.
func (s *Service) RemoveDescription(ctx context.Context, d *Description) error {
	return s.descriptions.Delete(ctx, d.UUID)
}
