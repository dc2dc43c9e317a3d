package uploads

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinica/clinica/internal/platform/apperr"
	"github.com/clinica/clinica/internal/platform/db"
)

type metadataRepoPG struct {
	pool *pgxpool.Pool
}

func NewMetadataRepo(pool *pgxpool.Pool) MetadataRepository {
	return &metadataRepoPG{pool: pool}
}

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func (r *metadataRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *metadataRepoPG) Insert(ctx context.Context, m *Metadata) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO upload (id, category, filename, content_type, size, sha256, uploaded_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		m.ID, m.Category, m.FileName, m.ContentType, m.Size, m.Hash, m.UploadedBy, m.CreatedAt,
	)
	if err != nil {
		return apperr.Storage("insert upload", err)
	}
	return nil
}

const metadataCols = `id, category, filename, content_type, size, sha256, uploaded_by, created_at`

func (r *metadataRepoPG) Get(ctx context.Context, id string) (*Metadata, error) {
	var m Metadata
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+metadataCols+` FROM upload WHERE id = $1`, id).
		Scan(&m.ID, &m.Category, &m.FileName, &m.ContentType, &m.Size, &m.Hash, &m.UploadedBy, &m.CreatedAt)
	if err != nil {
		return nil, apperr.FromDB("upload", "get upload", err)
	}
	return &m, nil
}

func (r *metadataRepoPG) Delete(ctx context.Context, id string) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM upload WHERE id = $1`, id)
	if err != nil {
		return apperr.Storage("delete upload", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("upload")
	}
	return nil
}

func (r *metadataRepoPG) List(ctx context.Context, category string, limit, offset int) ([]*Metadata, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM upload WHERE ($1 = '' OR category = $1)`, category,
	).Scan(&total); err != nil {
		return nil, 0, apperr.Storage("count uploads", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+metadataCols+` FROM upload
		WHERE ($1 = '' OR category = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, category, limit, offset)
	if err != nil {
		return nil, 0, apperr.Storage("list uploads", err)
	}
	defer rows.Close()

	var out []*Metadata
	for rows.Next() {
		var m Metadata
		if err := rows.Scan(&m.ID, &m.Category, &m.FileName, &m.ContentType, &m.Size, &m.Hash, &m.UploadedBy, &m.CreatedAt); err != nil {
			return nil, 0, apperr.Storage("scan upload", err)
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Storage("list uploads", err)
	}
	return out, total, nil
}
