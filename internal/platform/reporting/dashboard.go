package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

const upcomingLimit = 8

const (
	sqlCountAppointments = `SELECT COUNT(*) FROM appointment
		WHERE start_at >= $1 AND start_at < $2 AND COALESCE(status, 'Agendado') <> 'Cancelado'`

	sqlMonthRevenue = `SELECT COALESCE(SUM(paid), 0) FROM receivable
		WHERE payment_date >= $1 AND payment_date < $2`

	sqlOverdueReceivables = `SELECT COUNT(*) FROM receivable
		WHERE status = 'Pendente' AND due_date < $1`

	sqlUpcoming = `SELECT a.id, a.start_at, p.name, pr.name, COALESCE(a.status, 'Agendado')
		FROM appointment a
		JOIN patient p ON p.id = a.patient_id
		JOIN professional pr ON pr.id = a.professional_id
		WHERE a.end_at > $1 AND COALESCE(a.status, 'Agendado') NOT IN ('Cancelado', 'Finalizado')
		ORDER BY a.start_at
		LIMIT $2`

	sqlBySpecialty = `SELECT COALESCE(e.name, 'Geral'), COUNT(a.id)
		FROM appointment a
		JOIN professional p ON p.id = a.professional_id
		LEFT JOIN especialidades e ON e.id = p.specialty_id
		WHERE a.start_at >= $1 AND a.start_at < $2 AND COALESCE(a.status, 'Agendado') <> 'Cancelado'
		GROUP BY 1
		ORDER BY 2 DESC, 1`
)

type UpcomingAppointment struct {
	ID           int64     `json:"id"`
	Start        time.Time `json:"start"`
	Patient      string    `json:"paciente"`
	Professional string    `json:"profissional"`
	Status       string    `json:"status"`
}

type SpecialtyCount struct {
	Name  string `json:"nome"`
	Total int    `json:"total"`
}

// Dashboard is the landing-page summary.
type Dashboard struct {
	Today        int                   `json:"hoje"`
	Month        int                   `json:"mes"`
	MonthRevenue decimal.Decimal       `json:"faturamento"`
	Overdue      int                   `json:"pendencias"`
	Upcoming     []UpcomingAppointment `json:"proximos"`
	BySpecialty  []SpecialtyCount      `json:"grafico"`
}
