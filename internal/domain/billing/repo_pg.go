package billing

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

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

// chargeSQL holds the statements of one book. Both books select the same
// column list so one scanner serves them.
type chargeSQL struct {
	insert       string
	get          string
	getForUpdate string
	applyPayment string
	attach       string
	list         string
}

var receivableSQL = chargeSQL{
	insert: `
		INSERT INTO receivable (patient_id, description, total, paid, installment_count, installment_number,
			status, due_date, payment_method, category, cost_center, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id, created_at`,
	get: `
		SELECT c.id, c.patient_id, '', COALESCE(p.name, ''), c.description, c.total, c.paid,
			c.installment_count, c.installment_number, c.status, c.due_date, c.payment_date,
			c.payment_method, c.category, c.cost_center, c.notes, c.receipt_id, c.created_at
		FROM receivable c LEFT JOIN patient p ON p.id = c.patient_id
		WHERE c.id = $1`,
	getForUpdate: `
		SELECT c.id, c.patient_id, '', '', c.description, c.total, c.paid,
			c.installment_count, c.installment_number, c.status, c.due_date, c.payment_date,
			c.payment_method, c.category, c.cost_center, c.notes, c.receipt_id, c.created_at
		FROM receivable c
		WHERE c.id = $1
		FOR UPDATE`,
	applyPayment: `UPDATE receivable SET paid = $2, status = $3, payment_date = $4 WHERE id = $1`,
	attach:       `UPDATE receivable SET receipt_id = $2 WHERE id = $1`,
	list: `
		SELECT c.id, c.patient_id, '', COALESCE(p.name, ''), c.description, c.total, c.paid,
			c.installment_count, c.installment_number, c.status, c.due_date, c.payment_date,
			c.payment_method, c.category, c.cost_center, c.notes, c.receipt_id, c.created_at
		FROM receivable c LEFT JOIN patient p ON p.id = c.patient_id
		ORDER BY c.due_date, c.id`,
}

var payableSQL = chargeSQL{
	insert: `
		INSERT INTO payable (supplier, description, total, paid, installment_count, installment_number,
			status, due_date, payment_method, category, cost_center, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id, created_at`,
	get: `
		SELECT c.id, NULL::BIGINT, c.supplier, c.supplier, c.description, c.total, c.paid,
			c.installment_count, c.installment_number, c.status, c.due_date, c.payment_date,
			c.payment_method, c.category, c.cost_center, c.notes, c.receipt_id, c.created_at
		FROM payable c
		WHERE c.id = $1`,
	getForUpdate: `
		SELECT c.id, NULL::BIGINT, c.supplier, c.supplier, c.description, c.total, c.paid,
			c.installment_count, c.installment_number, c.status, c.due_date, c.payment_date,
			c.payment_method, c.category, c.cost_center, c.notes, c.receipt_id, c.created_at
		FROM payable c
		WHERE c.id = $1
		FOR UPDATE`,
	applyPayment: `UPDATE payable SET paid = $2, status = $3, payment_date = $4 WHERE id = $1`,
	attach:       `UPDATE payable SET receipt_id = $2 WHERE id = $1`,
	list: `
		SELECT c.id, NULL::BIGINT, c.supplier, c.supplier, c.description, c.total, c.paid,
			c.installment_count, c.installment_number, c.status, c.due_date, c.payment_date,
			c.payment_method, c.category, c.cost_center, c.notes, c.receipt_id, c.created_at
		FROM payable c
		ORDER BY c.due_date, c.id`,
}

func statementsFor(dir Direction) (*chargeSQL, error) {
	switch dir {
	case Receivable:
		return &receivableSQL, nil
	case Payable:
		return &payableSQL, nil
	}
	return nil, apperr.Validation("tipo de lançamento inválido: %q", dir)
}

// =========== Charge Repository ===========

type chargeRepoPG struct{ pool *pgxpool.Pool }

func NewChargeRepoPG(pool *pgxpool.Pool) ChargeRepository {
	return &chargeRepoPG{pool: pool}
}

func (r *chargeRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

func scanCharge(row pgx.Row, dir Direction) (*Charge, error) {
	c := Charge{Direction: dir}
	var status string
	err := row.Scan(&c.ID, &c.PatientID, &c.Supplier, &c.Pessoa, &c.Description, &c.Total, &c.Paid,
		&c.InstallmentCount, &c.InstallmentNumber, &status, &c.DueDate, &c.PaymentDate,
		&c.PaymentMethod, &c.Category, &c.CostCenter, &c.Notes, &c.ReceiptID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Status = ChargeStatus(status)
	return &c, nil
}

func (r *chargeRepoPG) Create(ctx context.Context, c *Charge) error {
	q, err := statementsFor(c.Direction)
	if err != nil {
		return err
	}
	var subject interface{} = c.PatientID
	if c.Direction == Payable {
		subject = c.Supplier
	}
	err = r.conn(ctx).QueryRow(ctx, q.insert,
		subject, c.Description, c.Total, c.Paid, c.InstallmentCount, c.InstallmentNumber,
		string(c.Status), c.DueDate, c.PaymentMethod, c.Category, c.CostCenter, c.Notes,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return apperr.Storage("insert charge", err)
	}
	return nil
}

func (r *chargeRepoPG) GetByID(ctx context.Context, dir Direction, id int64) (*Charge, error) {
	q, err := statementsFor(dir)
	if err != nil {
		return nil, err
	}
	c, err := scanCharge(r.conn(ctx).QueryRow(ctx, q.get, id), dir)
	if err != nil {
		return nil, apperr.FromDB("charge", "get charge", err)
	}
	return c, nil
}

func (r *chargeRepoPG) GetForUpdate(ctx context.Context, dir Direction, id int64) (*Charge, error) {
	q, err := statementsFor(dir)
	if err != nil {
		return nil, err
	}
	c, err := scanCharge(r.conn(ctx).QueryRow(ctx, q.getForUpdate, id), dir)
	if err != nil {
		return nil, apperr.FromDB("charge", "lock charge", err)
	}
	return c, nil
}

func (r *chargeRepoPG) ApplyPayment(ctx context.Context, dir Direction, id int64, paid decimal.Decimal, status ChargeStatus, paidOn time.Time) error {
	q, err := statementsFor(dir)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, q.applyPayment, id, paid, string(status), paidOn)
	if err != nil {
		return apperr.Storage("update charge payment", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("charge")
	}
	return nil
}

func (r *chargeRepoPG) AttachReceipt(ctx context.Context, dir Direction, id int64, uploadID string) error {
	q, err := statementsFor(dir)
	if err != nil {
		return err
	}
	tag, err := r.conn(ctx).Exec(ctx, q.attach, id, uploadID)
	if err != nil {
		return apperr.Storage("attach receipt", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("charge")
	}
	return nil
}

func (r *chargeRepoPG) List(ctx context.Context, dir Direction) ([]*Charge, error) {
	q, err := statementsFor(dir)
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx, q.list)
	if err != nil {
		return nil, apperr.Storage("list charges", err)
	}
	defer rows.Close()
	var out []*Charge
	for rows.Next() {
		c, err := scanCharge(rows, dir)
		if err != nil {
			return nil, apperr.Storage("scan charge", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list charges", err)
	}
	return out, nil
}

// =========== Cash Ledger ===========

type cashLedgerPG struct{ pool *pgxpool.Pool }

func NewCashLedgerPG(pool *pgxpool.Pool) CashLedger {
	return &cashLedgerPG{pool: pool}
}

func (r *cashLedgerPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

func (r *cashLedgerPG) Append(ctx context.Context, e *CashEntry) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO cash_entry (direction, amount, description, actor, charge_id, charge_direction)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at`,
		string(e.Direction), e.Amount, e.Description, e.Actor, e.ChargeID, string(e.ChargeDirection),
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return apperr.Storage("insert cash entry", err)
	}
	return nil
}

func (r *cashLedgerPG) List(ctx context.Context, limit int) ([]*CashEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, created_at, direction, amount, description, actor, charge_id, charge_direction
		FROM cash_entry
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, apperr.Storage("list cash entries", err)
	}
	defer rows.Close()
	var out []*CashEntry
	for rows.Next() {
		var e CashEntry
		var dir, chargeDir string
		if err := rows.Scan(&e.ID, &e.CreatedAt, &dir, &e.Amount, &e.Description, &e.Actor, &e.ChargeID, &chargeDir); err != nil {
			return nil, apperr.Storage("scan cash entry", err)
		}
		e.Direction = CashDirection(dir)
		e.ChargeDirection = Direction(chargeDir)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list cash entries", err)
	}
	return out, nil
}
