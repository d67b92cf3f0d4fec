package encounter

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/restws/internal/domain/concept"
	"github.com/ehr/restws/internal/domain/person"
	"github.com/ehr/restws/internal/platform/db"
)

// metadataPG stores the two retireable name/description tables.
type metadataPG struct {
	pool  *pgxpool.Pool
	table string
}

const metadataCols = `uuid, name, description, ` + db.AuditCols + `, ` + db.RetireCols

func (r *metadataPG) get(ctx context.Context, dest func(pgx.Row) error, uuid string) error {
	err := dest(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+metadataCols+` FROM `+r.table+` WHERE uuid = $1`, uuid))
	return db.MapError(r.table+" "+uuid, err)
}

func (r *metadataPG) save(ctx context.Context, uuid string, args []interface{}) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO `+r.table+` (`+metadataCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (uuid) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description,
			changed_by = EXCLUDED.changed_by, date_changed = EXCLUDED.date_changed,
			retired = EXCLUDED.retired, retired_by = EXCLUDED.retired_by,
			date_retired = EXCLUDED.date_retired, retire_reason = EXCLUDED.retire_reason`,
		args...)
	return db.MapError(r.table+" "+uuid, err)
}

func (r *metadataPG) delete(ctx context.Context, uuid string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM `+r.table+` WHERE uuid = $1`, uuid)
	if err != nil {
		return db.MapError(r.table+" "+uuid, err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError(r.table+" "+uuid, pgx.ErrNoRows)
	}
	return nil
}

func (r *metadataPG) search(ctx context.Context, where string, arg interface{}, each func(pgx.Row) error) error {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+metadataCols+` FROM `+r.table+` WHERE `+where+` ORDER BY date_created, uuid`, arg)
	if err != nil {
		return db.MapError(r.table+" search", err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := each(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

type locationPG struct{ metadataPG }

// NewLocationRepo returns the Postgres location store.
func NewLocationRepo(pool *pgxpool.Pool) LocationRepository {
	return &locationPG{metadataPG{pool: pool, table: "location"}}
}

func scanLocation(row pgx.Row, l *Location) error {
	return row.Scan(db.Args(
		[]interface{}{&l.UUID, &l.Name, &l.Description},
		db.AuditDest(&l.Audit), db.RetireDest(&l.RetireInfo),
	)...)
}

func (r *locationPG) Get(ctx context.Context, uuid string) (*Location, error) {
	var l Location
	if err := r.get(ctx, func(row pgx.Row) error { return scanLocation(row, &l) }, uuid); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *locationPG) Save(ctx context.Context, l *Location) error {
	return r.save(ctx, l.UUID, db.Args(
		[]interface{}{l.UUID, l.Name, l.Description},
		db.AuditArgs(&l.Audit), db.RetireArgs(&l.RetireInfo),
	))
}

func (r *locationPG) Delete(ctx context.Context, uuid string) error { return r.delete(ctx, uuid) }

func (r *locationPG) Search(ctx context.Context, query string) ([]*Location, error) {
	var out []*Location
	err := r.search(ctx, `name ILIKE $1`, db.Contains(query), func(row pgx.Row) error {
		var l Location
		if err := scanLocation(row, &l); err != nil {
			return err
		}
		out = append(out, &l)
		return nil
	})
	return out, err
}

type typePG struct{ metadataPG }

// NewEncounterTypeRepo returns the Postgres encounter type store.
func NewEncounterTypeRepo(pool *pgxpool.Pool) EncounterTypeRepository {
	return &typePG{metadataPG{pool: pool, table: "encounter_type"}}
}

func scanType(row pgx.Row, t *EncounterType) error {
	return row.Scan(db.Args(
		[]interface{}{&t.UUID, &t.Name, &t.Description},
		db.AuditDest(&t.Audit), db.RetireDest(&t.RetireInfo),
	)...)
}

func (r *typePG) Get(ctx context.Context, uuid string) (*EncounterType, error) {
	var t EncounterType
	if err := r.get(ctx, func(row pgx.Row) error { return scanType(row, &t) }, uuid); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *typePG) GetByName(ctx context.Context, name string) (*EncounterType, error) {
	var t EncounterType
	err := scanType(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+metadataCols+` FROM encounter_type WHERE lower(name) = lower($1)`, name), &t)
	if err != nil {
		return nil, db.MapError("encounter type "+name, err)
	}
	return &t, nil
}

func (r *typePG) Save(ctx context.Context, t *EncounterType) error {
	return r.save(ctx, t.UUID, db.Args(
		[]interface{}{t.UUID, t.Name, t.Description},
		db.AuditArgs(&t.Audit), db.RetireArgs(&t.RetireInfo),
	))
}

func (r *typePG) Delete(ctx context.Context, uuid string) error { return r.delete(ctx, uuid) }

func (r *typePG) Search(ctx context.Context, query string) ([]*EncounterType, error) {
	var out []*EncounterType
	err := r.search(ctx, `name ILIKE $1`, db.Contains(query), func(row pgx.Row) error {
		var t EncounterType
		if err := scanType(row, &t); err != nil {
			return err
		}
		out = append(out, &t)
		return nil
	})
	return out, err
}

type encounterPG struct {
	pool *pgxpool.Pool
}

// NewEncounterRepo returns the Postgres encounter store.
func NewEncounterRepo(pool *pgxpool.Pool) EncounterRepository {
	return &encounterPG{pool: pool}
}

const encounterCols = `uuid, encounter_datetime, patient_uuid, location_uuid, encounter_type_uuid, provider_uuid, ` +
	db.AuditCols + `, ` + db.VoidCols

func (r *encounterPG) Get(ctx context.Context, uuid string) (*Encounter, error) {
	e, err := scanEncounter(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+encounterCols+` FROM encounter WHERE uuid = $1`, uuid))
	if err != nil {
		return nil, db.MapError("encounter "+uuid, err)
	}
	return e, nil
}

func (r *encounterPG) Save(ctx context.Context, e *Encounter) error {
	var patientUUID, typeUUID string
	if e.Patient != nil {
		patientUUID = e.Patient.UUID
	}
	if e.EncounterType != nil {
		typeUUID = e.EncounterType.UUID
	}
	var locationUUID, providerUUID *string
	if e.Location != nil {
		locationUUID = &e.Location.UUID
	}
	if e.Provider != nil {
		providerUUID = &e.Provider.UUID
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO encounter (`+encounterCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (uuid) DO UPDATE SET
			encounter_datetime = EXCLUDED.encounter_datetime,
			patient_uuid = EXCLUDED.patient_uuid, location_uuid = EXCLUDED.location_uuid,
			encounter_type_uuid = EXCLUDED.encounter_type_uuid, provider_uuid = EXCLUDED.provider_uuid,
			changed_by = EXCLUDED.changed_by, date_changed = EXCLUDED.date_changed,
			voided = EXCLUDED.voided, voided_by = EXCLUDED.voided_by,
			date_voided = EXCLUDED.date_voided, void_reason = EXCLUDED.void_reason`,
		db.Args(
			[]interface{}{e.UUID, e.EncounterDatetime, patientUUID, locationUUID, typeUUID, providerUUID},
			db.AuditArgs(&e.Audit), db.VoidArgs(&e.VoidInfo),
		)...)
	return db.MapError("encounter "+e.UUID, err)
}

func (r *encounterPG) Delete(ctx context.Context, uuid string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM encounter WHERE uuid = $1`, uuid)
	if err != nil {
		return db.MapError("encounter "+uuid, err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError("encounter "+uuid, pgx.ErrNoRows)
	}
	return nil
}

func (r *encounterPG) Search(ctx context.Context, patientUUIDs, typeUUIDs []string) ([]*Encounter, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+encounterCols+` FROM encounter
		WHERE patient_uuid = ANY($1) OR encounter_type_uuid = ANY($2)
		ORDER BY date_created, uuid`, patientUUIDs, typeUUIDs)
	if err != nil {
		return nil, db.MapError("encounter search", err)
	}
	defer rows.Close()
	var out []*Encounter
	for rows.Next() {
		e, err := scanEncounter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *encounterPG) count(ctx context.Context, column, id string) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT count(*) FROM encounter WHERE `+column+` = $1`, id).Scan(&n)
	return n, db.MapError("count encounters", err)
}

func (r *encounterPG) CountByPatient(ctx context.Context, id string) (int, error) {
	return r.count(ctx, "patient_uuid", id)
}

func (r *encounterPG) CountByProvider(ctx context.Context, id string) (int, error) {
	return r.count(ctx, "provider_uuid", id)
}

func (r *encounterPG) CountByLocation(ctx context.Context, id string) (int, error) {
	return r.count(ctx, "location_uuid", id)
}

func (r *encounterPG) CountByType(ctx context.Context, id string) (int, error) {
	return r.count(ctx, "encounter_type_uuid", id)
}

func scanEncounter(row pgx.Row) (*Encounter, error) {
	var e Encounter
	var patientUUID, typeUUID string
	var locationUUID, providerUUID *string
	dest := db.Args(
		[]interface{}{&e.UUID, &e.EncounterDatetime, &patientUUID, &locationUUID, &typeUUID, &providerUUID},
		db.AuditDest(&e.Audit), db.VoidDest(&e.VoidInfo),
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	e.Patient = &person.Patient{UUID: patientUUID}
	e.EncounterType = &EncounterType{UUID: typeUUID}
	if locationUUID != nil {
		e.Location = &Location{UUID: *locationUUID}
	}
	if providerUUID != nil {
		e.Provider = &person.Person{UUID: *providerUUID}
	}
	return &e, nil
}

type obsPG struct {
	pool *pgxpool.Pool
}

// NewObsRepo returns the Postgres observation store.
func NewObsRepo(pool *pgxpool.Pool) ObsRepository {
	return &obsPG{pool: pool}
}

const obsCols = `uuid, concept_uuid, value, obs_datetime, encounter_uuid, person_uuid, ` +
	db.AuditCols + `, ` + db.VoidCols

func (r *obsPG) Get(ctx context.Context, uuid string) (*Obs, error) {
	o, err := scanObs(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+obsCols+` FROM obs WHERE uuid = $1`, uuid))
	if err != nil {
		return nil, db.MapError("obs "+uuid, err)
	}
	return o, nil
}

func (r *obsPG) Save(ctx context.Context, o *Obs) error {
	var conceptUUID, personUUID string
	if o.Concept != nil {
		conceptUUID = o.Concept.UUID
	}
	if o.Person != nil {
		personUUID = o.Person.UUID
	}
	var encounterUUID *string
	if o.Encounter != nil {
		encounterUUID = &o.Encounter.UUID
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO obs (`+obsCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (uuid) DO UPDATE SET
			concept_uuid = EXCLUDED.concept_uuid, value = EXCLUDED.value,
			obs_datetime = EXCLUDED.obs_datetime, encounter_uuid = EXCLUDED.encounter_uuid,
			person_uuid = EXCLUDED.person_uuid,
			changed_by = EXCLUDED.changed_by, date_changed = EXCLUDED.date_changed,
			voided = EXCLUDED.voided, voided_by = EXCLUDED.voided_by,
			date_voided = EXCLUDED.date_voided, void_reason = EXCLUDED.void_reason`,
		db.Args(
			[]interface{}{o.UUID, conceptUUID, o.Value, o.ObsDatetime, encounterUUID, personUUID},
			db.AuditArgs(&o.Audit), db.VoidArgs(&o.VoidInfo),
		)...)
	return db.MapError("obs "+o.UUID, err)
}

func (r *obsPG) Delete(ctx context.Context, uuid string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM obs WHERE uuid = $1`, uuid)
	if err != nil {
		return db.MapError("obs "+uuid, err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError("obs "+uuid, pgx.ErrNoRows)
	}
	return nil
}

func (r *obsPG) list(ctx context.Context, what, where string, arg interface{}) ([]*Obs, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+obsCols+` FROM obs WHERE `+where+` ORDER BY date_created, uuid`, arg)
	if err != nil {
		return nil, db.MapError(what, err)
	}
	defer rows.Close()
	var out []*Obs
	for rows.Next() {
		o, err := scanObs(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *obsPG) ListByEncounter(ctx context.Context, id string) ([]*Obs, error) {
	return r.list(ctx, "obs of encounter "+id, `encounter_uuid = $1`, id)
}

func (r *obsPG) Search(ctx context.Context, conceptUUIDs []string) ([]*Obs, error) {
	return r.list(ctx, "obs search", `concept_uuid = ANY($1)`, conceptUUIDs)
}

func (r *obsPG) count(ctx context.Context, column, id string) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT count(*) FROM obs WHERE `+column+` = $1`, id).Scan(&n)
	return n, db.MapError("count obs", err)
}

func (r *obsPG) CountByEncounter(ctx context.Context, id string) (int, error) {
	return r.count(ctx, "encounter_uuid", id)
}

func (r *obsPG) CountByConcept(ctx context.Context, id string) (int, error) {
	return r.count(ctx, "concept_uuid", id)
}

func (r *obsPG) CountByPerson(ctx context.Context, id string) (int, error) {
	return r.count(ctx, "person_uuid", id)
}

func scanObs(row pgx.Row) (*Obs, error) {
	var o Obs
	var conceptUUID, personUUID string
	var encounterUUID *string
	dest := db.Args(
		[]interface{}{&o.UUID, &conceptUUID, &o.Value, &o.ObsDatetime, &encounterUUID, &personUUID},
		db.AuditDest(&o.Audit), db.VoidDest(&o.VoidInfo),
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	o.Concept = &concept.Concept{UUID: conceptUUID}
	o.Person = &person.Person{UUID: personUUID}
	if encounterUUID != nil {
		o.Encounter = &Encounter{UUID: *encounterUUID}
	}
	return &o, nil
}
