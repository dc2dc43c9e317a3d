package identity

import (
	"context"
	"encoding/json"
	"strings"

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

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const patientCols = `id, name, cpf, rg, birth_date, sex, phone, phone_secondary, email, address,
	insurance_plan_id, guardian, medical_notes, medications, photo_id, active, created_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var address, guardian []byte
	err := row.Scan(&p.ID, &p.Name, &p.CPF, &p.RG, &p.BirthDate, &p.Sex, &p.Phone, &p.PhoneSecondary,
		&p.Email, &address, &p.InsurancePlanID, &guardian, &p.MedicalNotes, &p.Medications,
		&p.PhotoID, &p.Active, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(address, &p.Address); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(guardian, &p.Guardian); err != nil {
		return nil, err
	}
	return &p, nil
}

func unmarshalJSONB(raw []byte, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	address, _ := json.Marshal(p.Address)
	guardian, _ := json.Marshal(p.Guardian)
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (name, cpf, rg, birth_date, sex, phone, phone_secondary, email, address,
			insurance_plan_id, guardian, medical_notes, medications, photo_id, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING id, created_at`,
		p.Name, p.CPF, p.RG, p.BirthDate, p.Sex, p.Phone, p.PhoneSecondary, p.Email, address,
		p.InsurancePlanID, guardian, p.MedicalNotes, p.Medications, p.PhotoID, p.Active,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return apperr.Storage("insert patient", err)
	}
	return nil
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	address, _ := json.Marshal(p.Address)
	guardian, _ := json.Marshal(p.Guardian)
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET name=$2, cpf=$3, rg=$4, birth_date=$5, sex=$6, phone=$7, phone_secondary=$8,
			email=$9, address=$10, insurance_plan_id=$11, guardian=$12, medical_notes=$13,
			medications=$14, photo_id=$15
		WHERE id = $1`,
		p.ID, p.Name, p.CPF, p.RG, p.BirthDate, p.Sex, p.Phone, p.PhoneSecondary,
		p.Email, address, p.InsurancePlanID, guardian, p.MedicalNotes,
		p.Medications, p.PhotoID)
	if err != nil {
		return apperr.Storage("update patient", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("patient")
	}
	return nil
}

func (r *patientRepoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if err != nil {
		return nil, apperr.FromDB("patient", "get patient", err)
	}
	return p, nil
}

func (r *patientRepoPG) Search(ctx context.Context, term string, limit, offset int) ([]*Patient, int, error) {
	term = strings.TrimSpace(term)
	digits := NormalizeCPF(term)
	where := `WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR ($2 <> '' AND cpf LIKE '%' || $2 || '%'))`

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient `+where, term, digits).Scan(&total); err != nil {
		return nil, 0, apperr.Storage("count patients", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patient `+where+`
		ORDER BY name, id LIMIT $3 OFFSET $4`, term, digits, limit, offset)
	if err != nil {
		return nil, 0, apperr.Storage("search patients", err)
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, apperr.Storage("scan patient", err)
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Storage("search patients", err)
	}
	return patients, total, nil
}

func (r *patientRepoPG) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE patient SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return apperr.Storage("update patient status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("patient")
	}
	return nil
}

// =========== Professional Repository ===========

type professionalRepoPG struct{ pool *pgxpool.Pool }

func NewProfessionalRepoPG(pool *pgxpool.Pool) ProfessionalRepository {
	return &professionalRepoPG{pool: pool}
}

func (r *professionalRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const professionalCols = `p.id, p.name, p.crm, p.cpf, p.birth_date, p.specialty_id, COALESCE(e.name, ''),
	p.email, p.phone, p.address, p.bank_details, p.color, p.commission_rate, p.bio, p.availability, p.active`

const professionalFrom = ` FROM professional p LEFT JOIN especialidades e ON e.id = p.specialty_id`

func scanProfessional(row pgx.Row) (*Professional, error) {
	var p Professional
	var address, bank, availability []byte
	err := row.Scan(&p.ID, &p.Name, &p.CRM, &p.CPF, &p.BirthDate, &p.SpecialtyID, &p.SpecialtyName,
		&p.Email, &p.Phone, &address, &bank, &p.Color, &p.CommissionRate, &p.Bio, &availability, &p.Active)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(address, &p.Address); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(bank, &p.BankDetails); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(availability, &p.Availability); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *professionalRepoPG) Create(ctx context.Context, p *Professional) error {
	address, _ := json.Marshal(p.Address)
	bank, _ := json.Marshal(p.BankDetails)
	availability, _ := json.Marshal(p.Availability)
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO professional (name, crm, cpf, birth_date, specialty_id, email, phone, address,
			bank_details, color, commission_rate, bio, availability, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING id`,
		p.Name, p.CRM, p.CPF, p.BirthDate, p.SpecialtyID, p.Email, p.Phone, address,
		bank, p.Color, p.CommissionRate, p.Bio, availability, p.Active,
	).Scan(&p.ID)
	if err != nil {
		return apperr.Storage("insert professional", err)
	}
	return nil
}

func (r *professionalRepoPG) Update(ctx context.Context, p *Professional) error {
	address, _ := json.Marshal(p.Address)
	bank, _ := json.Marshal(p.BankDetails)
	availability, _ := json.Marshal(p.Availability)
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE professional SET name=$2, crm=$3, cpf=$4, birth_date=$5, specialty_id=$6, email=$7,
			phone=$8, address=$9, bank_details=$10, color=$11, commission_rate=$12, bio=$13,
			availability=$14, active=$15
		WHERE id = $1`,
		p.ID, p.Name, p.CRM, p.CPF, p.BirthDate, p.SpecialtyID, p.Email,
		p.Phone, address, bank, p.Color, p.CommissionRate, p.Bio,
		availability, p.Active)
	if err != nil {
		return apperr.Storage("update professional", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("professional")
	}
	return nil
}

func (r *professionalRepoPG) GetByID(ctx context.Context, id int64) (*Professional, error) {
	p, err := scanProfessional(r.conn(ctx).QueryRow(ctx,
		`SELECT `+professionalCols+professionalFrom+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, apperr.FromDB("professional", "get professional", err)
	}
	return p, nil
}

func (r *professionalRepoPG) List(ctx context.Context, activeOnly bool) ([]*Professional, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+professionalCols+professionalFrom+` WHERE ($1 = FALSE OR p.active) ORDER BY p.name, p.id`, activeOnly)
	if err != nil {
		return nil, apperr.Storage("list professionals", err)
	}
	defer rows.Close()

	var out []*Professional
	for rows.Next() {
		p, err := scanProfessional(rows)
		if err != nil {
			return nil, apperr.Storage("scan professional", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list professionals", err)
	}
	return out, nil
}

func (r *professionalRepoPG) FirstActiveID(ctx context.Context) (int64, error) {
	var id int64
	err := r.conn(ctx).QueryRow(ctx, `SELECT id FROM professional WHERE active ORDER BY id LIMIT 1`).Scan(&id)
	if err != nil {
		return 0, apperr.FromDB("active professional", "first active professional", err)
	}
	return id, nil
}
