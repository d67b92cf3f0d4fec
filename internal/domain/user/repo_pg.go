package user

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/restws/internal/domain/person"
	"github.com/ehr/restws/internal/platform/db"
)

type rolePG struct {
	pool *pgxpool.Pool
}

// NewRoleRepo returns the Postgres role store.
func NewRoleRepo(pool *pgxpool.Pool) RoleRepository {
	return &rolePG{pool: pool}
}

const roleCols = `uuid, role, description, ` + db.AuditCols + `, ` + db.RetireCols

func (r *rolePG) Get(ctx context.Context, uuid string) (*Role, error) {
	x, err := scanRole(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+roleCols+` FROM role WHERE uuid = $1`, uuid))
	if err != nil {
		return nil, db.MapError("role "+uuid, err)
	}
	return x, nil
}

func (r *rolePG) GetByName(ctx context.Context, role string) (*Role, error) {
	x, err := scanRole(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+roleCols+` FROM role WHERE lower(role) = lower($1)`, role))
	if err != nil {
		return nil, db.MapError("role "+role, err)
	}
	return x, nil
}

func (r *rolePG) Save(ctx context.Context, x *Role) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO role (`+roleCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (uuid) DO UPDATE SET
			role = EXCLUDED.role, description = EXCLUDED.description,
			changed_by = EXCLUDED.changed_by, date_changed = EXCLUDED.date_changed,
			retired = EXCLUDED.retired, retired_by = EXCLUDED.retired_by,
			date_retired = EXCLUDED.date_retired, retire_reason = EXCLUDED.retire_reason`,
		db.Args([]interface{}{x.UUID, x.Role, x.Description}, db.AuditArgs(&x.Audit), db.RetireArgs(&x.RetireInfo))...)
	return db.MapError("role "+x.UUID, err)
}

func (r *rolePG) Delete(ctx context.Context, uuid string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM role WHERE uuid = $1`, uuid)
	if err != nil {
		return db.MapError("role "+uuid, err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError("role "+uuid, pgx.ErrNoRows)
	}
	return nil
}

func (r *rolePG) Search(ctx context.Context, query string) ([]*Role, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+roleCols+` FROM role WHERE role ILIKE $1 ORDER BY date_created, uuid`, db.Contains(query))
	if err != nil {
		return nil, db.MapError("role search", err)
	}
	defer rows.Close()
	var out []*Role
	for rows.Next() {
		x, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, rows.Err()
}

func scanRole(row pgx.Row) (*Role, error) {
	var x Role
	if err := row.Scan(db.Args(
		[]interface{}{&x.UUID, &x.Role, &x.Description},
		db.AuditDest(&x.Audit), db.RetireDest(&x.RetireInfo),
	)...); err != nil {
		return nil, err
	}
	return &x, nil
}

type userPG struct {
	pool *pgxpool.Pool
}

// NewUserRepo returns the Postgres user store.
func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userPG{pool: pool}
}

const userCols = `u.uuid, u.username, u.system_id, u.user_properties, u.person_uuid,
	u.proficient_locales, u.secret_question, u.hashed_password,
	u.creator, u.date_created, u.changed_by, u.date_changed,
	u.retired, u.retired_by, u.date_retired, u.retire_reason`

func (r *userPG) Get(ctx context.Context, uuid string) (*User, error) {
	return r.one(ctx, "user "+uuid, `SELECT `+userCols+` FROM users u WHERE u.uuid = $1`, uuid)
}

func (r *userPG) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.one(ctx, "user "+username,
		`SELECT `+userCols+` FROM users u WHERE u.username <> '' AND lower(u.username) = lower($1)`, username)
}

func (r *userPG) one(ctx context.Context, what, sql string, arg string) (*User, error) {
	u, err := scanUser(db.Conn(ctx, r.pool).QueryRow(ctx, sql, arg))
	if err != nil {
		return nil, db.MapError(what, err)
	}
	if err := r.loadRoles(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userPG) loadRoles(ctx context.Context, u *User) error {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT role_uuid FROM user_role WHERE user_uuid = $1 ORDER BY position`, u.UUID)
	if err != nil {
		return db.MapError("roles of user "+u.UUID, err)
	}
	defer rows.Close()
	u.Roles = nil
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		u.Roles = append(u.Roles, &Role{UUID: id})
	}
	return rows.Err()
}

// Save upserts the user and replaces its role links in one transaction.
func (r *userPG) Save(ctx context.Context, u *User) error {
	var personUUID string
	if u.Person != nil {
		personUUID = u.Person.UUID
	}
	props := u.UserProperties
	if props == nil {
		props = map[string]string{}
	}
	locales := u.ProficientLocales
	if locales == nil {
		locales = []string{}
	}
	return db.InTx(ctx, r.pool, func(ctx context.Context) error {
		q := db.Conn(ctx, r.pool)
		_, err := q.Exec(ctx, `
			INSERT INTO users (uuid, username, system_id, user_properties, person_uuid,
				proficient_locales, secret_question, hashed_password, `+db.AuditCols+`, `+db.RetireCols+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			ON CONFLICT (uuid) DO UPDATE SET
				username = EXCLUDED.username, system_id = EXCLUDED.system_id,
				user_properties = EXCLUDED.user_properties, person_uuid = EXCLUDED.person_uuid,
				proficient_locales = EXCLUDED.proficient_locales,
				secret_question = EXCLUDED.secret_question, hashed_password = EXCLUDED.hashed_password,
				changed_by = EXCLUDED.changed_by, date_changed = EXCLUDED.date_changed,
				retired = EXCLUDED.retired, retired_by = EXCLUDED.retired_by,
				date_retired = EXCLUDED.date_retired, retire_reason = EXCLUDED.retire_reason`,
			db.Args(
				[]interface{}{u.UUID, u.Username, u.SystemID, props, personUUID,
					locales, u.SecretQuestion, u.HashedPassword},
				db.AuditArgs(&u.Audit), db.RetireArgs(&u.RetireInfo),
			)...)
		if err != nil {
			return db.MapError("user "+u.Login(), err)
		}
		if _, err := q.Exec(ctx, `DELETE FROM user_role WHERE user_uuid = $1`, u.UUID); err != nil {
			return db.MapError("roles of user "+u.UUID, err)
		}
		for i, x := range u.Roles {
			if _, err := q.Exec(ctx,
				`INSERT INTO user_role (user_uuid, role_uuid, position) VALUES ($1, $2, $3)`,
				u.UUID, x.UUID, i); err != nil {
				return db.MapError("role "+x.UUID, err)
			}
		}
		return nil
	})
}

func (r *userPG) Delete(ctx context.Context, uuid string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM users WHERE uuid = $1`, uuid)
	if err != nil {
		return db.MapError("user "+uuid, err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError("user "+uuid, pgx.ErrNoRows)
	}
	return nil
}

func (r *userPG) Search(ctx context.Context, query string) ([]*User, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+userCols+` FROM users u
		JOIN person p ON p.uuid = u.person_uuid
		WHERE u.username ILIKE $1
		   OR u.system_id ILIKE $1
		   OR concat_ws(' ', p.given_name, p.middle_name, p.family_name) ILIKE $1
		ORDER BY u.date_created, u.uuid`, db.Contains(query))
	if err != nil {
		return nil, db.MapError("user search", err)
	}
	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, u := range out {
		if err := r.loadRoles(ctx, u); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *userPG) Count(ctx context.Context) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *userPG) CountByPerson(ctx context.Context, personUUID string) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE person_uuid = $1`, personUUID).Scan(&n)
	return n, err
}

func (r *userPG) CountByRole(ctx context.Context, roleUUID string) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM user_role WHERE role_uuid = $1`, roleUUID).Scan(&n)
	return n, err
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var personUUID string
	if err := row.Scan(db.Args(
		[]interface{}{&u.UUID, &u.Username, &u.SystemID, &u.UserProperties, &personUUID,
			&u.ProficientLocales, &u.SecretQuestion, &u.HashedPassword},
		db.AuditDest(&u.Audit), db.RetireDest(&u.RetireInfo),
	)...); err != nil {
		return nil, err
	}
	u.Person = &person.Person{UUID: personUUID}
	return &u, nil
}
