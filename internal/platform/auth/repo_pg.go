package auth

import (
	"context"

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

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const userCols = `id, username, password_hash, role, created_at`

func (r *userRepoPG) scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		return nil, apperr.FromDB("user", "scan user", err)
	}
	return &u, nil
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (username, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		u.Username, u.PasswordHash, u.Role).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return apperr.Storage("insert user", err)
	}
	return nil
}

func (r *userRepoPG) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE username = $1`, username))
}

func (r *userRepoPG) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return apperr.Storage("update password", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user")
	}
	return nil
}

func (r *userRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, apperr.Storage("count users", err)
	}
	return n, nil
}
