package person

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/restws/internal/platform/db"
)

type personPG struct {
	pool *pgxpool.Pool
}

// NewPersonRepo returns the Postgres person store.
func NewPersonRepo(pool *pgxpool.Pool) PersonRepository {
	return &personPG{pool: pool}
}

const personCols = `uuid, given_name, middle_name, family_name, gender, birthdate,
	birthdate_estimated, dead, ` + db.AuditCols + `, ` + db.VoidCols

func (r *personPG) Get(ctx context.Context, uuid string) (*Person, error) {
	p, err := scanPerson(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+personCols+` FROM person WHERE uuid = $1`, uuid))
	if err != nil {
		return nil, db.MapError("person "+uuid, err)
	}
	return p, nil
}

func (r *personPG) Save(ctx context.Context, p *Person) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO person (`+personCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (uuid) DO UPDATE SET
			given_name = EXCLUDED.given_name, middle_name = EXCLUDED.middle_name,
			family_name = EXCLUDED.family_name, gender = EXCLUDED.gender,
			birthdate = EXCLUDED.birthdate, birthdate_estimated = EXCLUDED.birthdate_estimated,
			dead = EXCLUDED.dead, changed_by = EXCLUDED.changed_by, date_changed = EXCLUDED.date_changed,
			voided = EXCLUDED.voided, voided_by = EXCLUDED.voided_by,
			date_voided = EXCLUDED.date_voided, void_reason = EXCLUDED.void_reason`,
		db.Args(
			[]interface{}{p.UUID, p.GivenName, p.MiddleName, p.FamilyName, p.Gender, p.Birthdate,
				p.BirthdateEstimated, p.Dead},
			db.AuditArgs(&p.Audit), db.VoidArgs(&p.VoidInfo),
		)...)
	return db.MapError("person "+p.UUID, err)
}

func (r *personPG) Delete(ctx context.Context, uuid string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM person WHERE uuid = $1`, uuid)
	if err != nil {
		return db.MapError("person "+uuid, err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError("person "+uuid, pgx.ErrNoRows)
	}
	return nil
}

func (r *personPG) Search(ctx context.Context, query string) ([]*Person, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+personCols+` FROM person
		WHERE concat_ws(' ', given_name, middle_name, family_name) ILIKE $1
		ORDER BY date_created, uuid`, db.Contains(query))
	if err != nil {
		return nil, db.MapError("person search", err)
	}
	defer rows.Close()
	var out []*Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPerson(row pgx.Row) (*Person, error) {
	var p Person
	dest := db.Args(
		[]interface{}{&p.UUID, &p.GivenName, &p.MiddleName, &p.FamilyName, &p.Gender, &p.Birthdate,
			&p.BirthdateEstimated, &p.Dead},
		db.AuditDest(&p.Audit), db.VoidDest(&p.VoidInfo),
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &p, nil
}

type patientPG struct {
	pool *pgxpool.Pool
}

// NewPatientRepo returns the Postgres patient store.
func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientPG{pool: pool}
}

const patientCols = `pt.uuid, pt.identifier, pt.person_uuid,
	pt.creator, pt.date_created, pt.changed_by, pt.date_changed,
	pt.voided, pt.voided_by, pt.date_voided, pt.void_reason`

func (r *patientPG) Get(ctx context.Context, uuid string) (*Patient, error) {
	p, err := scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient pt WHERE pt.uuid = $1`, uuid))
	if err != nil {
		return nil, db.MapError("patient "+uuid, err)
	}
	return p, nil
}

func (r *patientPG) GetByIdentifier(ctx context.Context, identifier string) (*Patient, error) {
	p, err := scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient pt WHERE lower(pt.identifier) = lower($1)`, identifier))
	if err != nil {
		return nil, db.MapError("patient "+identifier, err)
	}
	return p, nil
}

func (r *patientPG) Save(ctx context.Context, p *Patient) error {
	var personUUID string
	if p.Person != nil {
		personUUID = p.Person.UUID
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO patient (uuid, identifier, person_uuid, `+db.AuditCols+`, `+db.VoidCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (uuid) DO UPDATE SET
			identifier = EXCLUDED.identifier, person_uuid = EXCLUDED.person_uuid,
			changed_by = EXCLUDED.changed_by, date_changed = EXCLUDED.date_changed,
			voided = EXCLUDED.voided, voided_by = EXCLUDED.voided_by,
			date_voided = EXCLUDED.date_voided, void_reason = EXCLUDED.void_reason`,
		db.Args(
			[]interface{}{p.UUID, p.Identifier, personUUID},
			db.AuditArgs(&p.Audit), db.VoidArgs(&p.VoidInfo),
		)...)
	return db.MapError("patient "+p.UUID, err)
}

func (r *patientPG) Delete(ctx context.Context, uuid string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM patient WHERE uuid = $1`, uuid)
	if err != nil {
		return db.MapError("patient "+uuid, err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError("patient "+uuid, pgx.ErrNoRows)
	}
	return nil
}

func (r *patientPG) Search(ctx context.Context, query string) ([]*Patient, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+patientCols+` FROM patient pt
		JOIN person p ON p.uuid = pt.person_uuid
		WHERE pt.identifier ILIKE $1
		   OR concat_ws(' ', p.given_name, p.middle_name, p.family_name) ILIKE $1
		ORDER BY pt.date_created, pt.uuid`, db.Contains(query))
	if err != nil {
		return nil, db.MapError("patient search", err)
	}
	defer rows.Close()
	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *patientPG) CountByPerson(ctx context.Context, personUUID string) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient WHERE person_uuid = $1`, personUUID).Scan(&n)
	return n, err
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var personUUID string
	dest := db.Args(
		[]interface{}{&p.UUID, &p.Identifier, &personUUID},
		db.AuditDest(&p.Audit), db.VoidDest(&p.VoidInfo),
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	p.Person = &Person{UUID: personUUID}
	return &p, nil
}
