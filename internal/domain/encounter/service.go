package encounter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/restws/internal/domain"
	"github.com/ehr/restws/internal/domain/concept"
	"github.com/ehr/restws/internal/domain/person"
)

// People resolves the patients and providers encounters point at.
type People interface {
	GetPerson(ctx context.Context, uuid string) (*person.Person, error)
	GetPatient(ctx context.Context, uuid string) (*person.Patient, error)
	SearchPatients(ctx context.Context, query string) ([]*person.Patient, error)
}

// Concepts resolves the concepts observations record.
type Concepts interface {
	GetConcept(ctx context.Context, uuid string) (*concept.Concept, error)
	SearchConcepts(ctx context.Context, query string) ([]*concept.Concept, error)
}

// Repos groups the stores the service writes to.
type Repos struct {
	Locations  LocationRepository
	Types      EncounterTypeRepository
	Encounters EncounterRepository
	Obs        ObsRepository
}

type Service struct {
	repos    Repos
	people   People
	concepts Concepts
	tx       domain.Transactor
	now      func() time.Time
}

func NewService(repos Repos, people People, concepts Concepts, tx domain.Transactor) *Service {
	if tx == nil {
		tx = domain.NoTx{}
	}
	return &Service{repos: repos, people: people, concepts: concepts, tx: tx, now: time.Now}
}

// CountByPatient is registered as a patient purge dependency.
func (s *Service) CountByPatient(ctx context.Context, id string) (int, error) {
	return s.repos.Encounters.CountByPatient(ctx, id)
}

// CountByPerson counts encounters the person provided plus obs recorded about them.
func (s *Service) CountByPerson(ctx context.Context, id string) (int, error) {
	a, err := s.repos.Encounters.CountByProvider(ctx, id)
	if err != nil {
		return 0, err
	}
	b, err := s.repos.Obs.CountByPerson(ctx, id)
	return a + b, err
}

func (s *Service) CountByConcept(ctx context.Context, id string) (int, error) {
	return s.repos.Obs.CountByConcept(ctx, id)
}

func (s *Service) GetLocation(ctx context.Context, id string) (*Location, error) {
	return s.repos.Locations.Get(ctx, id)
}

func (s *Service) SaveLocation(ctx context.Context, l *Location) (*Location, error) {
	l.Name = strings.TrimSpace(l.Name)
	if l.Name == "" {
		return nil, domain.Invalid("name", "name is required")
	}
	if l.UUID == "" {
		l.UUID = uuid.NewString()
	}
	l.Stamp(domain.UserFrom(ctx), s.now())
	if err := s.repos.Locations.Save(ctx, l); err != nil {
		return nil, fmt.Errorf("save location: %w", err)
	}
	return l, nil
}

func (s *Service) RetireLocation(ctx context.Context, l *Location, reason string) error {
	if !l.Retire(domain.UserFrom(ctx), reason, s.now()) {
		return nil
	}
	return s.repos.Locations.Save(ctx, l)
}

func (s *Service) PurgeLocation(ctx context.Context, l *Location) error {
	deps := []domain.Dependency{{Kind: "encounters", Count: s.repos.Encounters.CountByLocation}}
	if err := domain.CheckDependents(ctx, "location", l.UUID, deps); err != nil {
		return err
	}
	return s.repos.Locations.Delete(ctx, l.UUID)
}

func (s *Service) SearchLocations(ctx context.Context, query string) ([]*Location, error) {
	return s.repos.Locations.Search(ctx, query)
}

func (s *Service) GetEncounterType(ctx context.Context, id string) (*EncounterType, error) {
	return s.repos.Types.Get(ctx, id)
}

func (s *Service) SaveEncounterType(ctx context.Context, t *EncounterType) (*EncounterType, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return nil, domain.Invalid("name", "name is required")
	}
	existing, err := s.repos.Types.GetByName(ctx, t.Name)
	if err == nil && existing.UUID != t.UUID {
		return nil, domain.Invalid("name", "encounter type %s already exists", t.Name)
	}
	if t.UUID == "" {
		t.UUID = uuid.NewString()
	}
	t.Stamp(domain.UserFrom(ctx), s.now())
	if err := s.repos.Types.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("save encounter type: %w", err)
	}
	return t, nil
}

func (s *Service) RetireEncounterType(ctx context.Context, t *EncounterType, reason string) error {
	if !t.Retire(domain.UserFrom(ctx), reason, s.now()) {
		return nil
	}
	return s.repos.Types.Save(ctx, t)
}

func (s *Service) PurgeEncounterType(ctx context.Context, t *EncounterType) error {
	deps := []domain.Dependency{{Kind: "encounters", Count: s.repos.Encounters.CountByType}}
	if err := domain.CheckDependents(ctx, "encounter type", t.UUID, deps); err != nil {
		return err
	}
	return s.repos.Types.Delete(ctx, t.UUID)
}

func (s *Service) SearchEncounterTypes(ctx context.Context, query string) ([]*EncounterType, error) {
	return s.repos.Types.Search(ctx, query)
}

// GetEncounter returns the encounter with its references and obs loaded.
func (s *Service) GetEncounter(ctx context.Context, id string) (*Encounter, error) {
	e, err := s.repos.Encounters.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, e, true); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) hydrate(ctx context.Context, e *Encounter, withObs bool) error {
	var err error
	if e.Patient != nil {
		if e.Patient, err = s.people.GetPatient(ctx, e.Patient.UUID); err != nil {
			return fmt.Errorf("load patient of encounter %s: %w", e.UUID, err)
		}
	}
	if e.EncounterType != nil {
		if e.EncounterType, err = s.repos.Types.Get(ctx, e.EncounterType.UUID); err != nil {
			return fmt.Errorf("load type of encounter %s: %w", e.UUID, err)
		}
	}
	if e.Location != nil {
		if e.Location, err = s.repos.Locations.Get(ctx, e.Location.UUID); err != nil {
			return fmt.Errorf("load location of encounter %s: %w", e.UUID, err)
		}
	}
	if e.Provider != nil {
		if e.Provider, err = s.people.GetPerson(ctx, e.Provider.UUID); err != nil {
			return fmt.Errorf("load provider of encounter %s: %w", e.UUID, err)
		}
	}
	if !withObs {
		return nil
	}
	obs, err := s.repos.Obs.ListByEncounter(ctx, e.UUID)
	if err != nil {
		return fmt.Errorf("load obs of encounter %s: %w", e.UUID, err)
	}
	for _, o := range obs {
		if err := s.hydrateObs(ctx, o); err != nil {
			return err
		}
		o.Encounter = e
	}
	e.Obs = obs
	return nil
}

func (s *Service) SaveEncounter(ctx context.Context, e *Encounter) (*Encounter, error) {
	if e.Patient == nil || e.Patient.UUID == "" {
		return nil, domain.Invalid("patient", "patient is required")
	}
	if _, err := s.people.GetPatient(ctx, e.Patient.UUID); err != nil {
		return nil, domain.Invalid("patient", "patient %s does not exist", e.Patient.UUID)
	}
	if e.EncounterType == nil || e.EncounterType.UUID == "" {
		return nil, domain.Invalid("encounterType", "encounterType is required")
	}
	if _, err := s.repos.Types.Get(ctx, e.EncounterType.UUID); err != nil {
		return nil, domain.Invalid("encounterType", "encounter type %s does not exist", e.EncounterType.UUID)
	}
	if e.Location != nil {
		if _, err := s.repos.Locations.Get(ctx, e.Location.UUID); err != nil {
			return nil, domain.Invalid("location", "location %s does not exist", e.Location.UUID)
		}
	}
	if e.Provider != nil {
		if _, err := s.people.GetPerson(ctx, e.Provider.UUID); err != nil {
			return nil, domain.Invalid("provider", "provider %s does not exist", e.Provider.UUID)
		}
	}
	now := s.now()
	if e.EncounterDatetime.IsZero() {
		return nil, domain.Invalid("encounterDatetime", "encounterDatetime is required")
	}
	if e.EncounterDatetime.After(now) {
		return nil, domain.Invalid("encounterDatetime", "encounterDatetime cannot be in the future")
	}
	if e.UUID == "" {
		e.UUID = uuid.NewString()
	}
	e.Stamp(domain.UserFrom(ctx), now)
	if err := s.repos.Encounters.Save(ctx, e); err != nil {
		return nil, fmt.Errorf("save encounter: %w", err)
	}
	return e, nil
}

// VoidEncounter voids the encounter and every live obs it holds.
func (s *Service) VoidEncounter(ctx context.Context, e *Encounter, reason string) error {
	user, now := domain.UserFrom(ctx), s.now()
	if !e.Void(user, reason, now) {
		return nil
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repos.Encounters.Save(ctx, e); err != nil {
			return err
		}
		obs, err := s.repos.Obs.ListByEncounter(ctx, e.UUID)
		if err != nil {
			return err
		}
		for _, o := range obs {
			if o.Void(user, reason, now) {
				if err := s.repos.Obs.Save(ctx, o); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *Service) PurgeEncounter(ctx context.Context, e *Encounter) error {
	deps := []domain.Dependency{{Kind: "obs", Count: s.repos.Obs.CountByEncounter}}
	if err := domain.CheckDependents(ctx, "encounter", e.UUID, deps); err != nil {
		return err
	}
	return s.repos.Encounters.Delete(ctx, e.UUID)
}

// SearchEncounters matches the patient's name or identifier, or the
// encounter type name.
func (s *Service) SearchEncounters(ctx context.Context, query string) ([]*Encounter, error) {
	patients, err := s.people.SearchPatients(ctx, query)
	if err != nil {
		return nil, err
	}
	types, err := s.repos.Types.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	patientIDs := make([]string, len(patients))
	for i, p := range patients {
		patientIDs[i] = p.UUID
	}
	typeIDs := make([]string, len(types))
	for i, t := range types {
		typeIDs[i] = t.UUID
	}
	if len(patientIDs) == 0 && len(typeIDs) == 0 {
		return nil, nil
	}
	found, err := s.repos.Encounters.Search(ctx, patientIDs, typeIDs)
	if err != nil {
		return nil, err
	}
	for _, e := range found {
		if err := s.hydrate(ctx, e, true); err != nil {
			return nil, err
		}
	}
	return found, nil
}

// GetObs returns the observation with its concept, person and encounter
// loaded. The encounter comes without its own obs list.
func (s *Service) GetObs(ctx context.Context, id string) (*Obs, error) {
	o, err := s.repos.Obs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.hydrateObs(ctx, o); err != nil {
		return nil, err
	}
	if err := s.loadObsEncounter(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) loadObsEncounter(ctx context.Context, o *Obs) error {
	if o.Encounter == nil {
		return nil
	}
	e, err := s.repos.Encounters.Get(ctx, o.Encounter.UUID)
	if err != nil {
		return fmt.Errorf("load encounter of obs %s: %w", o.UUID, err)
	}
	if err := s.hydrate(ctx, e, false); err != nil {
		return err
	}
	o.Encounter = e
	return nil
}

func (s *Service) hydrateObs(ctx context.Context, o *Obs) error {
	var err error
	if o.Concept != nil {
		if o.Concept, err = s.concepts.GetConcept(ctx, o.Concept.UUID); err != nil {
			return fmt.Errorf("load concept of obs %s: %w", o.UUID, err)
		}
	}
	if o.Person != nil {
		if o.Person, err = s.people.GetPerson(ctx, o.Person.UUID); err != nil {
			return fmt.Errorf("load person of obs %s: %w", o.UUID, err)
		}
	}
	return nil
}

// SaveObs validates o against its concept's datatype. An obs in an
// encounter takes its person and, when unset, its datetime from the
// encounter.
func (s *Service) SaveObs(ctx context.Context, o *Obs) (*Obs, error) {
	if o.Concept == nil || o.Concept.UUID == "" {
		return nil, domain.Invalid("concept", "concept is required")
	}
	c, err := s.concepts.GetConcept(ctx, o.Concept.UUID)
	if err != nil {
		return nil, domain.Invalid("concept", "concept %s does not exist", o.Concept.UUID)
	}
	if err := checkValue(c, o.Value); err != nil {
		return nil, err
	}
	if o.Encounter != nil {
		e, err := s.repos.Encounters.Get(ctx, o.Encounter.UUID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Invalid("encounter", "encounter %s does not exist", o.Encounter.UUID)
		}
		if err != nil {
			return nil, err
		}
		if e.Voided && !o.Voided {
			return nil, domain.Invalid("encounter", "encounter %s is voided", e.UUID)
		}
		patient, err := s.people.GetPatient(ctx, e.Patient.UUID)
		if err != nil {
			return nil, fmt.Errorf("load patient of encounter %s: %w", e.UUID, err)
		}
		o.Person = patient.Person
		if o.ObsDatetime.IsZero() {
			o.ObsDatetime = e.EncounterDatetime
		}
	}
	if o.Person == nil || o.Person.UUID == "" {
		return nil, domain.Invalid("person", "an encounter or a person is required")
	}
	if _, err := s.people.GetPerson(ctx, o.Person.UUID); err != nil {
		return nil, domain.Invalid("person", "person %s does not exist", o.Person.UUID)
	}
	now := s.now()
	if o.ObsDatetime.IsZero() {
		o.ObsDatetime = now
	}
	if o.UUID == "" {
		o.UUID = uuid.NewString()
	}
	o.Stamp(domain.UserFrom(ctx), now)
	if err := s.repos.Obs.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("save obs: %w", err)
	}
	return o, nil
}

func checkValue(c *concept.Concept, value string) error {
	v := strings.TrimSpace(value)
	switch c.Datatype {
	case "Numeric":
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return domain.Invalid("value", "%s expects a numeric value, got %q", c.Name, value)
		}
	case "Boolean":
		if _, err := strconv.ParseBool(v); err != nil {
			return domain.Invalid("value", "%s expects a boolean value, got %q", c.Name, value)
		}
	}
	return nil
}

func (s *Service) VoidObs(ctx context.Context, o *Obs, reason string) error {
	if !o.Void(domain.UserFrom(ctx), reason, s.now()) {
		return nil
	}
	return s.repos.Obs.Save(ctx, o)
}

func (s *Service) PurgeObs(ctx context.Context, o *Obs) error {
	return s.repos.Obs.Delete(ctx, o.UUID)
}

// SearchObs matches the name of the recorded concept.
func (s *Service) SearchObs(ctx context.Context, query string) ([]*Obs, error) {
	concepts, err := s.concepts.SearchConcepts(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(concepts) == 0 {
		return nil, nil
	}
	ids := make([]string, len(concepts))
	for i, c := range concepts {
		ids[i] = c.UUID
	}
	found, err := s.repos.Obs.Search(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, o := range found {
		if err := s.hydrateObs(ctx, o); err != nil {
			return nil, err
		}
		if err := s.loadObsEncounter(ctx, o); err != nil {
			return nil, err
		}
	}
	return found, nil
}
