package person

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/restws/internal/domain"
)

type Service struct {
	persons     PersonRepository
	patients    PatientRepository
	personDeps  []domain.Dependency
	patientDeps []domain.Dependency
	now         func() time.Time
}

func NewService(persons PersonRepository, patients PatientRepository) *Service {
	s := &Service{persons: persons, patients: patients, now: time.Now}
	s.personDeps = []domain.Dependency{{Kind: "patients", Count: patients.CountByPerson}}
	return s
}

// AddPersonDependency registers another kind of record that blocks a person purge.
func (s *Service) AddPersonDependency(d domain.Dependency) {
	s.personDeps = append(s.personDeps, d)
}

// AddPatientDependency registers a kind of record that blocks a patient purge.
func (s *Service) AddPatientDependency(d domain.Dependency) {
	s.patientDeps = append(s.patientDeps, d)
}

func (s *Service) GetPerson(ctx context.Context, id string) (*Person, error) {
	return s.persons.Get(ctx, id)
}

func (s *Service) SavePerson(ctx context.Context, p *Person) (*Person, error) {
	if strings.TrimSpace(p.GivenName) == "" && strings.TrimSpace(p.FamilyName) == "" {
		return nil, domain.Invalid("givenName", "a given or family name is required")
	}
	if p.Gender == "" {
		p.Gender = "U"
	}
	valid := false
	for _, g := range Genders {
		if p.Gender == g {
			valid = true
		}
	}
	if !valid {
		return nil, domain.Invalid("gender", "gender must be one of %s", strings.Join(Genders, ", "))
	}
	now := s.now()
	if p.Birthdate != nil && p.Birthdate.After(now) {
		return nil, domain.Invalid("birthdate", "birthdate cannot be in the future")
	}
	if p.UUID == "" {
		p.UUID = uuid.NewString()
	}
	p.Stamp(domain.UserFrom(ctx), now)
	if err := s.persons.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("save person: %w", err)
	}
	return p, nil
}

func (s *Service) VoidPerson(ctx context.Context, p *Person, reason string) error {
	if !p.Void(domain.UserFrom(ctx), reason, s.now()) {
		return nil
	}
	return s.persons.Save(ctx, p)
}

func (s *Service) PurgePerson(ctx context.Context, p *Person) error {
	if err := domain.CheckDependents(ctx, "person", p.UUID, s.personDeps); err != nil {
		return err
	}
	return s.persons.Delete(ctx, p.UUID)
}

func (s *Service) SearchPersons(ctx context.Context, query string) ([]*Person, error) {
	return s.persons.Search(ctx, query)
}

// GetPatient returns the patient with its person loaded.
func (s *Service) GetPatient(ctx context.Context, id string) (*Patient, error) {
	p, err := s.patients.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, p)
}

func (s *Service) hydrate(ctx context.Context, p *Patient) (*Patient, error) {
	if p.Person == nil {
		return p, nil
	}
	person, err := s.persons.Get(ctx, p.Person.UUID)
	if err != nil {
		return nil, fmt.Errorf("load person of patient %s: %w", p.UUID, err)
	}
	p.Person = person
	return p, nil
}

func (s *Service) SavePatient(ctx context.Context, p *Patient) (*Patient, error) {
	p.Identifier = strings.TrimSpace(p.Identifier)
	if p.Identifier == "" {
		return nil, domain.Invalid("identifier", "identifier is required")
	}
	if p.Person == nil || p.Person.UUID == "" {
		return nil, domain.Invalid("person", "person is required")
	}
	if _, err := s.persons.Get(ctx, p.Person.UUID); err != nil {
		return nil, domain.Invalid("person", "person %s does not exist", p.Person.UUID)
	}
	existing, err := s.patients.GetByIdentifier(ctx, p.Identifier)
	if err == nil && existing.UUID != p.UUID {
		return nil, domain.Invalid("identifier", "identifier %s is already in use", p.Identifier)
	}
	if p.UUID == "" {
		p.UUID = uuid.NewString()
	}
	p.Stamp(domain.UserFrom(ctx), s.now())
	if err := s.patients.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("save patient: %w", err)
	}
	return p, nil
}

func (s *Service) VoidPatient(ctx context.Context, p *Patient, reason string) error {
	if !p.Void(domain.UserFrom(ctx), reason, s.now()) {
		return nil
	}
	return s.patients.Save(ctx, p)
}

func (s *Service) PurgePatient(ctx context.Context, p *Patient) error {
	if err := domain.CheckDependents(ctx, "patient", p.UUID, s.patientDeps); err != nil {
		return err
	}
	return s.patients.Delete(ctx, p.UUID)
}

func (s *Service) SearchPatients(ctx context.Context, query string) ([]*Patient, error) {
	found, err := s.patients.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	for i, p := range found {
		if found[i], err = s.hydrate(ctx, p); err != nil {
			return nil, err
		}
	}
	return found, nil
}
