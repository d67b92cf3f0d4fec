package concept

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/restws/internal/platform/db"
)

type conceptPG struct {
	pool *pgxpool.Pool
}

// NewConceptRepo returns the Postgres concept store.
func NewConceptRepo(pool *pgxpool.Pool) ConceptRepository {
	return &conceptPG{pool: pool}
}

const conceptCols = `uuid, name, datatype, concept_class, is_set, version, ` + db.AuditCols + `, ` + db.RetireCols

func (r *conceptPG) Get(ctx context.Context, uuid string) (*Concept, error) {
	c, err := scanConcept(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+conceptCols+` FROM concept WHERE uuid = $1`, uuid))
	if err != nil {
		return nil, db.MapError("concept "+uuid, err)
	}
	return c, nil
}

func (r *conceptPG) Save(ctx context.Context, c *Concept) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO concept (`+conceptCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (uuid) DO UPDATE SET
			name = EXCLUDED.name, datatype = EXCLUDED.datatype,
			concept_class = EXCLUDED.concept_class, is_set = EXCLUDED.is_set,
			version = EXCLUDED.version,
			changed_by = EXCLUDED.changed_by, date_changed = EXCLUDED.date_changed,
			retired = EXCLUDED.retired, retired_by = EXCLUDED.retired_by,
			date_retired = EXCLUDED.date_retired, retire_reason = EXCLUDED.retire_reason`,
		db.Args(
			[]interface{}{c.UUID, c.Name, c.Datatype, c.ConceptClass, c.Set, c.Version},
			db.AuditArgs(&c.Audit), db.RetireArgs(&c.RetireInfo),
		)...)
	return db.MapError("concept "+c.UUID, err)
}

func (r *conceptPG) Delete(ctx context.Context, uuid string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM concept WHERE uuid = $1`, uuid)
	if err != nil {
		return db.MapError("concept "+uuid, err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError("concept "+uuid, pgx.ErrNoRows)
	}
	return nil
}

func (r *conceptPG) Search(ctx context.Context, query string) ([]*Concept, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+conceptCols+` FROM concept
		WHERE name ILIKE $1
		ORDER BY date_created, uuid`, db.Contains(query))
	if err != nil {
		return nil, db.MapError("concept search", err)
	}
	defer rows.Close()
	var out []*Concept
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanConcept(row pgx.Row) (*Concept, error) {
	var c Concept
	dest := db.Args(
		[]interface{}{&c.UUID, &c.Name, &c.Datatype, &c.ConceptClass, &c.Set, &c.Version},
		db.AuditDest(&c.Audit), db.RetireDest(&c.RetireInfo),
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &c, nil
}

type descriptionPG struct {
	pool *pgxpool.Pool
}

// NewDescriptionRepo returns the Postgres concept description store.
func NewDescriptionRepo(pool *pgxpool.Pool) DescriptionRepository {
	return &descriptionPG{pool: pool}
}

const descriptionCols = `uuid, concept_uuid, description, locale, ` + db.AuditCols

func (r *descriptionPG) Get(ctx context.Context, uuid string) (*Description, error) {
	d, err := scanDescription(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+descriptionCols+` FROM concept_description WHERE uuid = $1`, uuid))
	if err != nil {
		return nil, db.MapError("concept description "+uuid, err)
	}
	return d, nil
}

func (r *descriptionPG) Save(ctx context.Context, d *Description) error {
	var conceptUUID string
	if d.Concept != nil {
		conceptUUID = d.Concept.UUID
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO concept_description (`+descriptionCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (uuid) DO UPDATE SET
			concept_uuid = EXCLUDED.concept_uuid, description = EXCLUDED.description,
			locale = EXCLUDED.locale,
			changed_by = EXCLUDED.changed_by, date_changed = EXCLUDED.date_changed`,
		db.Args(
			[]interface{}{d.UUID, conceptUUID, d.Description, d.Locale},
			db.AuditArgs(&d.Audit),
		)...)
	return db.MapError("concept description "+d.UUID, err)
}

func (r *descriptionPG) Delete(ctx context.Context, uuid string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM concept_description WHERE uuid = $1`, uuid)
	if err != nil {
		return db.MapError("concept description "+uuid, err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError("concept description "+uuid, pgx.ErrNoRows)
	}
	return nil
}

func (r *descriptionPG) ListByConcept(ctx context.Context, conceptUUID string) ([]*Description, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+descriptionCols+` FROM concept_description
		WHERE concept_uuid = $1 ORDER BY date_created, uuid`, conceptUUID)
	if err != nil {
		return nil, db.MapError("concept descriptions of "+conceptUUID, err)
	}
	defer rows.Close()
	var out []*Description
	for rows.Next() {
		d, err := scanDescription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *descriptionPG) DeleteByConcept(ctx context.Context, conceptUUID string) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM concept_description WHERE concept_uuid = $1`, conceptUUID)
	return db.MapError("concept descriptions of "+conceptUUID, err)
}

func scanDescription(row pgx.Row) (*Description, error) {
	var d Description
	var conceptUUID string
	dest := db.Args(
		[]interface{}{&d.UUID, &conceptUUID, &d.Description, &d.Locale},
		db.AuditDest(&d.Audit),
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	d.Concept = &Concept{UUID: conceptUUID}
	return &d, nil
}
