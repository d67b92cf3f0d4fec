package encounter

import "context"

type LocationRepository interface {
	Get(ctx context.Context, uuid string) (*Location, error)
	Save(ctx context.Context, l *Location) error
	Delete(ctx context.Context, uuid string) error
	Search(ctx context.Context, query string) ([]*Location, error)
}

type EncounterTypeRepository interface {
	Get(ctx context.Context, uuid string) (*EncounterType, error)
	GetByName(ctx context.Context, name string) (*EncounterType, error)
	Save(ctx context.Context, t *EncounterType) error
	Delete(ctx context.Context, uuid string) error
	Search(ctx context.Context, query string) ([]*EncounterType, error)
}

// EncounterRepository stores encounter rows. References come back as stubs.
type EncounterRepository interface {
	Get(ctx context.Context, uuid string) (*Encounter, error)
	Save(ctx context.Context, e *Encounter) error
	Delete(ctx context.Context, uuid string) error
	// Search returns encounters of any of the patients or of any of the types.
	Search(ctx context.Context, patientUUIDs, typeUUIDs []string) ([]*Encounter, error)
	CountByPatient(ctx context.Context, patientUUID string) (int, error)
	CountByProvider(ctx context.Context, personUUID string) (int, error)
	CountByLocation(ctx context.Context, locationUUID string) (int, error)
	CountByType(ctx context.Context, typeUUID string) (int, error)
}

type ObsRepository interface {
	Get(ctx context.Context, uuid string) (*Obs, error)
	Save(ctx context.Context, o *Obs) error
	Delete(ctx context.Context, uuid string) error
	ListByEncounter(ctx context.Context, encounterUUID string) ([]*Obs, error)
	// Search returns obs recording any of the concepts.
	Search(ctx context.Context, conceptUUIDs []string) ([]*Obs, error)
	CountByEncounter(ctx context.Context, encounterUUID string) (int, error)
	CountByConcept(ctx context.Context, conceptUUID string) (int, error)
	CountByPerson(ctx context.Context, personUUID string) (int, error)
}
