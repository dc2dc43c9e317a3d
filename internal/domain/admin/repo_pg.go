package admin

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinica/clinica/internal/platform/apperr"
	"github.com/clinica/clinica/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func connFor(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// -- Insurance Plan Repository --

type planRepoPG struct {
	pool *pgxpool.Pool
}

func NewInsurancePlanRepo(pool *pgxpool.Pool) InsurancePlanRepository {
	return &planRepoPG{pool: pool}
}

const planCols = `id, name, ans_registration, cnpj, payment_term, phone, email, site, price_table`

func scanPlan(row pgx.Row) (*InsurancePlan, error) {
	var p InsurancePlan
	err := row.Scan(&p.ID, &p.Name, &p.ANSRegistration, &p.CNPJ, &p.PaymentTermDays,
		&p.Phone, &p.Email, &p.Site, &p.PriceTable)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *planRepoPG) Create(ctx context.Context, p *InsurancePlan) error {
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO insurance_plan (name, ans_registration, cnpj, payment_term, phone, email, site, price_table)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id`,
		p.Name, p.ANSRegistration, p.CNPJ, p.PaymentTermDays, p.Phone, p.Email, p.Site, p.PriceTable,
	).Scan(&p.ID)
	return apperr.FromDB("insurance plan", "insert insurance plan", err)
}

func (r *planRepoPG) Update(ctx context.Context, p *InsurancePlan) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx, `
		UPDATE insurance_plan SET name=$2, ans_registration=$3, cnpj=$4, payment_term=$5,
			phone=$6, email=$7, site=$8, price_table=$9
		WHERE id = $1`,
		p.ID, p.Name, p.ANSRegistration, p.CNPJ, p.PaymentTermDays, p.Phone, p.Email, p.Site, p.PriceTable,
	)
	if err != nil {
		return apperr.Storage("update insurance plan", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("insurance plan")
	}
	return nil
}

func (r *planRepoPG) GetByID(ctx context.Context, id int64) (*InsurancePlan, error) {
	p, err := scanPlan(connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+planCols+` FROM insurance_plan WHERE id = $1`, id))
	if err != nil {
		return nil, apperr.FromDB("insurance plan", "get insurance plan", err)
	}
	return p, nil
}

func (r *planRepoPG) List(ctx context.Context) ([]*InsurancePlan, error) {
	rows, err := connFor(ctx, r.pool).Query(ctx, `SELECT `+planCols+` FROM insurance_plan ORDER BY name`)
	if err != nil {
		return nil, apperr.Storage("list insurance plans", err)
	}
	defer rows.Close()

	var out []*InsurancePlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, apperr.Storage("scan insurance plan", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list insurance plans", err)
	}
	return out, nil
}

func (r *planRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx, `DELETE FROM insurance_plan WHERE id = $1`, id)
	if err != nil {
		return apperr.Storage("delete insurance plan", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("insurance plan")
	}
	return nil
}

// -- Lookup Repository --

// lookupSQL holds the statements of one lookup table. Table names never
// come from request input.
type lookupSQL struct {
	list   string
	insert string
	update string
	delete string
}

var lookupStatements = map[LookupKind]lookupSQL{
	KindSpecialty: {
		list:   `SELECT id, name FROM especialidades ORDER BY name`,
		insert: `INSERT INTO especialidades (name) VALUES ($1) RETURNING id`,
		update: `UPDATE especialidades SET name = $2 WHERE id = $1`,
		delete: `DELETE FROM especialidades WHERE id = $1`,
	},
	KindRoom: {
		list:   `SELECT id, name FROM salas ORDER BY name`,
		insert: `INSERT INTO salas (name) VALUES ($1) RETURNING id`,
		update: `UPDATE salas SET name = $2 WHERE id = $1`,
		delete: `DELETE FROM salas WHERE id = $1`,
	},
	KindProcedure: {
		list:   `SELECT id, name FROM procedimentos ORDER BY name`,
		insert: `INSERT INTO procedimentos (name) VALUES ($1) RETURNING id`,
		update: `UPDATE procedimentos SET name = $2 WHERE id = $1`,
		delete: `DELETE FROM procedimentos WHERE id = $1`,
	},
}

func statementsFor(kind LookupKind) (lookupSQL, error) {
	st, ok := lookupStatements[kind]
	if !ok {
		return lookupSQL{}, apperr.Validation("unknown lookup list %q", kind)
	}
	return st, nil
}

type lookupRepoPG struct {
	pool *pgxpool.Pool
}

func NewLookupRepo(pool *pgxpool.Pool) LookupRepository {
	return &lookupRepoPG{pool: pool}
}

func (r *lookupRepoPG) List(ctx context.Context, kind LookupKind) ([]*LookupItem, error) {
	st, err := statementsFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := connFor(ctx, r.pool).Query(ctx, st.list)
	if err != nil {
		return nil, apperr.Storage("list "+string(kind), err)
	}
	defer rows.Close()

	var out []*LookupItem
	for rows.Next() {
		item := &LookupItem{Kind: kind}
		if err := rows.Scan(&item.ID, &item.Name); err != nil {
			return nil, apperr.Storage("scan "+string(kind), err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list "+string(kind), err)
	}
	return out, nil
}

func (r *lookupRepoPG) Create(ctx context.Context, item *LookupItem) error {
	st, err := statementsFor(item.Kind)
	if err != nil {
		return err
	}
	err = connFor(ctx, r.pool).QueryRow(ctx, st.insert, item.Name).Scan(&item.ID)
	return apperr.FromDB(string(item.Kind), "insert "+string(item.Kind), err)
}

func (r *lookupRepoPG) Update(ctx context.Context, item *LookupItem) error {
	st, err := statementsFor(item.Kind)
	if err != nil {
		return err
	}
	tag, err := connFor(ctx, r.pool).Exec(ctx, st.update, item.ID, item.Name)
	if err != nil {
		return apperr.Storage("update "+string(item.Kind), err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(string(item.Kind) + " item")
	}
	return nil
}

func (r *lookupRepoPG) Delete(ctx context.Context, kind LookupKind, id int64) error {
	st, err := statementsFor(kind)
	if err != nil {
		return err
	}
	tag, err := connFor(ctx, r.pool).Exec(ctx, st.delete, id)
	if err != nil {
		return apperr.Storage("delete "+string(kind), err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(string(kind) + " item")
	}
	return nil
}

// -- Settings Repository --

type settingsRepoPG struct {
	pool *pgxpool.Pool
}

func NewSettingsRepo(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepoPG{pool: pool}
}

func (r *settingsRepoPG) Get(ctx context.Context) (*ClinicSettings, error) {
	var s ClinicSettings
	err := connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT name, address, phone, cnpj FROM clinic_settings WHERE id = 1`,
	).Scan(&s.Name, &s.Address, &s.Phone, &s.CNPJ)
	if errors.Is(err, pgx.ErrNoRows) {
		return defaultSettings(), nil
	}
	if err != nil {
		return nil, apperr.Storage("get clinic settings", err)
	}
	return &s, nil
}

func (r *settingsRepoPG) Save(ctx context.Context, s *ClinicSettings) error {
	_, err := connFor(ctx, r.pool).Exec(ctx, `
		INSERT INTO clinic_settings (id, name, address, phone, cnpj)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, address = EXCLUDED.address,
			phone = EXCLUDED.phone, cnpj = EXCLUDED.cnpj`,
		s.Name, s.Address, s.Phone, s.CNPJ,
	)
	if err != nil {
		return apperr.Storage("save clinic settings", err)
	}
	return nil
}
