package clinical

import (
	"context"
	"encoding/json"

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

type noteRepoPG struct {
	pool *pgxpool.Pool
}

func NewNoteRepo(pool *pgxpool.Pool) NoteRepository {
	return &noteRepoPG{pool: pool}
}

func (r *noteRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *noteRepoPG) Append(ctx context.Context, n *Note) error {
	attachments, err := json.Marshal(n.Attachments)
	if err != nil {
		return apperr.Validation("invalid attachments: %v", err)
	}
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO clinical_note (patient_id, professional_id, visited_at, evolution, diagnosis,
			prescription, requested_exams, attachments)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id`,
		n.PatientID, n.ProfessionalID, n.VisitedAt, n.Evolution, n.Diagnosis,
		n.Prescription, n.RequestedExams, attachments,
	).Scan(&n.ID)
	return apperr.FromDB("clinical note", "insert clinical note", err)
}

func (r *noteRepoPG) ListForPatient(ctx context.Context, patientID int64) ([]*Note, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT n.id, n.patient_id, n.professional_id, COALESCE(p.name, ''), n.visited_at, n.evolution,
			n.diagnosis, n.prescription, n.requested_exams, n.attachments
		FROM clinical_note n
		LEFT JOIN professional p ON p.id = n.professional_id
		WHERE n.patient_id = $1
		ORDER BY n.visited_at DESC, n.id DESC`, patientID)
	if err != nil {
		return nil, apperr.Storage("list clinical notes", err)
	}
	defer rows.Close()

	var out []*Note
	for rows.Next() {
		var n Note
		var attachments []byte
		if err := rows.Scan(&n.ID, &n.PatientID, &n.ProfessionalID, &n.ProfessionalName, &n.VisitedAt,
			&n.Evolution, &n.Diagnosis, &n.Prescription, &n.RequestedExams, &attachments); err != nil {
			return nil, apperr.Storage("scan clinical note", err)
		}
		if err := json.Unmarshal(attachments, &n.Attachments); err != nil {
			return nil, apperr.Storage("decode note attachments", err)
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list clinical notes", err)
	}
	return out, nil
}
