package scheduling

import (
	"context"
	"time"

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

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const apptCols = `a.id, a.patient_id, a.professional_id, a.start_at, a.end_at, a.duration_minutes,
	a.status, a.type, a.cancel_reason, a.cancelled_by, a.notes, a.room_id, a.rebooked_from_id, a.created_at`

func scanAppointment(row pgx.Row, extra ...interface{}) (*Appointment, error) {
	var a Appointment
	var status string
	dest := []interface{}{&a.ID, &a.PatientID, &a.ProfessionalID, &a.Start.Time, &a.End.Time, &a.DurationMinutes,
		&status, &a.Type, &a.CancelReason, &a.CancelledBy, &a.Notes, &a.RoomID, &a.RebookedFromID, &a.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	a.Status = Status(status)
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (patient_id, professional_id, start_at, end_at, duration_minutes,
			status, type, notes, room_id, rebooked_from_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at`,
		a.PatientID, a.ProfessionalID, a.Start.Time, a.End.Time, a.DurationMinutes,
		string(a.Status), a.Type, a.Notes, a.RoomID, a.RebookedFromID,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return apperr.Storage("insert appointment", err)
	}
	return nil
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET patient_id=$2, professional_id=$3, start_at=$4, end_at=$5,
			duration_minutes=$6, status=$7, type=$8, cancel_reason=$9, cancelled_by=$10,
			notes=$11, room_id=$12
		WHERE id = $1`,
		a.ID, a.PatientID, a.ProfessionalID, a.Start.Time, a.End.Time, a.DurationMinutes,
		string(a.Status), a.Type, a.CancelReason, a.CancelledBy, a.Notes, a.RoomID)
	if err != nil {
		return apperr.Storage("update appointment", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment")
	}
	return nil
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment a WHERE a.id = $1`, id))
	return a, apperr.FromDB("appointment", "get appointment", err)
}

func (r *appointmentRepoPG) GetForUpdate(ctx context.Context, id int64) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment a WHERE a.id = $1 FOR UPDATE`, id))
	return a, apperr.FromDB("appointment", "lock appointment", err)
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	if err != nil {
		return apperr.Storage("delete appointment", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment")
	}
	return nil
}

func (r *appointmentRepoPG) HasOverlap(ctx context.Context, professionalID int64, start, end time.Time, excludeID int64) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointment
			WHERE professional_id = $1 AND status <> 'Cancelado'
			  AND start_at < $3 AND end_at > $2 AND id <> $4
		)`, professionalID, start, end, excludeID).Scan(&exists)
	if err != nil {
		return false, apperr.Storage("check overlap", err)
	}
	return exists, nil
}

func (r *appointmentRepoPG) FirstOpenForPatient(ctx context.Context, patientID int64, from, to time.Time) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `
		SELECT `+apptCols+` FROM appointment a
		WHERE a.patient_id = $1 AND a.start_at >= $2 AND a.start_at < $3
		  AND a.status NOT IN ('Cancelado', 'Finalizado')
		ORDER BY a.start_at, a.id
		LIMIT 1`, patientID, from, to))
	return a, apperr.FromDB("appointment", "find open appointment", err)
}

func (r *appointmentRepoPG) queryViews(ctx context.Context, op, sql string, args ...interface{}) ([]*AppointmentView, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	defer rows.Close()

	var out []*AppointmentView
	for rows.Next() {
		var v AppointmentView
		a, err := scanAppointment(rows, &v.PatientName, &v.ProfessionalName)
		if err != nil {
			return nil, apperr.Storage(op, err)
		}
		v.Appointment = *a
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(op, err)
	}
	return out, nil
}

func (r *appointmentRepoPG) List(ctx context.Context, from, to time.Time, professionalID int64) ([]*AppointmentView, error) {
	return r.queryViews(ctx, "list appointments", `
		SELECT `+apptCols+`, p.name, COALESCE(pr.name, '')
		FROM appointment a
		JOIN patient p ON p.id = a.patient_id
		LEFT JOIN professional pr ON pr.id = a.professional_id
		WHERE a.start_at >= $1 AND a.start_at < $2
		  AND ($3 = 0 OR a.professional_id = $3)
		ORDER BY a.start_at, a.id`, from, to, professionalID)
}

func (r *appointmentRepoPG) ListNotCancelled(ctx context.Context, from, to *time.Time) ([]*AppointmentView, error) {
	return r.queryViews(ctx, "list calendar", `
		SELECT `+apptCols+`, p.name, COALESCE(pr.name, '')
		FROM appointment a
		JOIN patient p ON p.id = a.patient_id
		LEFT JOIN professional pr ON pr.id = a.professional_id
		WHERE a.status <> 'Cancelado'
		  AND ($1::timestamp IS NULL OR a.end_at > $1)
		  AND ($2::timestamp IS NULL OR a.start_at < $2)
		ORDER BY a.start_at, a.id`, from, to)
}

func (r *appointmentRepoPG) WaitingRoom(ctx context.Context, from, to time.Time) ([]*WaitingRoomEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+`, p.name, p.phone, COALESCE(pr.name, ''), COALESCE(s.name, '')
		FROM appointment a
		JOIN patient p ON p.id = a.patient_id
		LEFT JOIN professional pr ON pr.id = a.professional_id
		LEFT JOIN salas s ON s.id = a.room_id
		WHERE a.start_at >= $1 AND a.start_at < $2
		ORDER BY a.start_at, a.id`, from, to)
	if err != nil {
		return nil, apperr.Storage("list waiting room", err)
	}
	defer rows.Close()

	var out []*WaitingRoomEntry
	for rows.Next() {
		var e WaitingRoomEntry
		a, err := scanAppointment(rows, &e.PatientName, &e.PatientPhone, &e.ProfessionalName, &e.RoomName)
		if err != nil {
			return nil, apperr.Storage("scan waiting room", err)
		}
		e.Appointment = *a
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *appointmentRepoPG) BusyIntervals(ctx context.Context, professionalID int64, from, to time.Time) ([]Interval, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT start_at, end_at FROM appointment
		WHERE professional_id = $1 AND status <> 'Cancelado'
		  AND start_at < $3 AND end_at > $2
		ORDER BY start_at`, professionalID, from, to)
	if err != nil {
		return nil, apperr.Storage("list busy intervals", err)
	}
	defer rows.Close()

	var out []Interval
	for rows.Next() {
		var iv Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, apperr.Storage("scan busy interval", err)
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}
