package db

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinica/clinica/internal/platform/apperr"
)

type contextKey string

const (
	DBConnKey contextKey = "db_conn"
	DBTxKey   contextKey = "db_tx"
)

// ConnFromContext retrieves a pinned pool connection from context.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// TxFromContext retrieves the request transaction from context.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// WithConn pins conn for every repository call made with the returned context.
func WithConn(ctx context.Context, conn *pgxpool.Conn) context.Context {
	return context.WithValue(ctx, DBConnKey, conn)
}

// WithTx begins a transaction on the connection pinned in ctx and returns a
// context carrying it. The caller owns Commit/Rollback.
func WithTx(ctx context.Context) (context.Context, pgx.Tx, error) {
	conn := ConnFromContext(ctx)
	if conn == nil {
		return ctx, nil, fmt.Errorf("no database connection in context")
	}
	tx, err := conn.Begin(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("begin transaction: %w", err)
	}
	return context.WithValue(ctx, DBTxKey, tx), tx, nil
}

// Transactor runs fn inside one database transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type poolTransactor struct {
	pool *pgxpool.Pool
}

func NewTransactor(pool *pgxpool.Pool) Transactor {
	return &poolTransactor{pool: pool}
}

// WithinTx commits when fn returns nil and rolls back otherwise. A context
// that already carries a transaction joins it.
func (t *poolTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	var (
		txCtx context.Context
		tx    pgx.Tx
		err   error
	)
	if ConnFromContext(ctx) != nil {
		txCtx, tx, err = WithTx(ctx)
	} else {
		tx, err = t.pool.Begin(ctx)
		txCtx = context.WithValue(ctx, DBTxKey, tx)
	}
	if err != nil {
		return apperr.Storage("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(txCtx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Storage("commit transaction", err)
	}
	return nil
}

// ErrNoTx is returned by lock helpers called outside a transaction.
var ErrNoTx = errors.New("advisory lock requires a transaction")

// AdvisoryXactLock takes a transaction-scoped advisory lock on (namespace, id).
// The lock is released at commit or rollback.
func AdvisoryXactLock(ctx context.Context, namespace string, id int64) error {
	tx := TxFromContext(ctx)
	if tx == nil {
		return ErrNoTx
	}
	key := int32(id % math.MaxInt32)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1), $2)`, namespace, key); err != nil {
		return apperr.Storage("advisory lock "+namespace, err)
	}
	return nil
}
