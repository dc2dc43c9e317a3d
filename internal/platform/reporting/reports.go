package reporting

import (
	"time"

	"github.com/clinica/clinica/internal/platform/apperr"
	"github.com/clinica/clinica/pkg/wallclock"
)

// ReportDefinition is a predefined report. Parameters names the range ends
// the SQL consumes, in placeholder order.
type ReportDefinition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	SQL         string   `json:"-"`
	Parameters  []string `json:"parameters"`
}

const (
	paramStart = "inicio"
	paramEnd   = "fim"
)

var PredefinedReports = []ReportDefinition{
	{
		ID:          "agendamentos",
		Name:        "Agendamentos",
		Description: "Agendamentos do período com paciente, profissional e status",
		SQL: `SELECT a.start_at AS data, p.name AS paciente, pr.name AS profissional, COALESCE(a.status, 'Agendado') AS status
			FROM appointment a
			JOIN patient p ON p.id = a.patient_id
			JOIN professional pr ON pr.id = a.professional_id
			WHERE a.start_at::date BETWEEN $1 AND $2
			ORDER BY a.start_at`,
		Parameters: []string{paramStart, paramEnd},
	},
	{
		ID:          "financeiro",
		Name:        "Financeiro",
		Description: "Receitas e despesas com vencimento no período",
		SQL: `SELECT due_date AS data, description AS descricao, category AS categoria, 'Receita' AS tipo, total AS valor
			FROM receivable WHERE due_date BETWEEN $1 AND $2
			UNION ALL
			SELECT due_date, description, category, 'Despesa', total
			FROM payable WHERE due_date BETWEEN $1 AND $2
			ORDER BY data`,
		Parameters: []string{paramStart, paramEnd},
	},
	{
		ID:          "profissionais",
		Name:        "Produtividade por profissional",
		Description: "Atendimentos e atendimentos finalizados por profissional no período",
		SQL: `SELECT pr.name AS profissional, COUNT(a.id) AS atendimentos,
				COUNT(a.id) FILTER (WHERE a.status = 'Finalizado') AS finalizados
			FROM appointment a
			JOIN professional pr ON pr.id = a.professional_id
			WHERE a.start_at::date BETWEEN $1 AND $2
			GROUP BY pr.name
			ORDER BY atendimentos DESC`,
		Parameters: []string{paramStart, paramEnd},
	},
	{
		ID:          "pacientes",
		Name:        "Pacientes",
		Description: "Cadastro completo de pacientes",
		SQL: `SELECT name AS nome, cpf, phone AS telefone, email, created_at AS cadastro
			FROM patient ORDER BY name`,
		Parameters: []string{},
	},
	{
		ID:          "convenios",
		Name:        "Atendimentos por convênio",
		Description: "Atendimentos do período agrupados pelo convênio do paciente",
		SQL: `SELECT c.name AS convenio, COUNT(a.id) AS atendimentos
			FROM appointment a
			JOIN patient p ON p.id = a.patient_id
			JOIN insurance_plan c ON c.id = p.insurance_plan_id
			WHERE a.start_at::date BETWEEN $1 AND $2
			GROUP BY c.name
			ORDER BY atendimentos DESC`,
		Parameters: []string{paramStart, paramEnd},
	},
	{
		ID:          "aniversariantes",
		Name:        "Aniversariantes do mês",
		Description: "Pacientes que fazem aniversário no mês de início do período",
		SQL: `SELECT name AS nome, to_char(birth_date, 'DD/MM') AS dia, phone AS telefone
			FROM patient
			WHERE birth_date IS NOT NULL AND EXTRACT(MONTH FROM birth_date) = EXTRACT(MONTH FROM $1::date)
			ORDER BY EXTRACT(DAY FROM birth_date)`,
		Parameters: []string{paramStart},
	},
}

func FindReport(id string) *ReportDefinition {
	for i := range PredefinedReports {
		if PredefinedReports[i].ID == id {
			return &PredefinedReports[i]
		}
	}
	return nil
}

// Range is an inclusive date range.
type Range struct {
	Start time.Time
	End   time.Time
}

// ParseRange reads YYYY-MM-DD bounds. Missing bounds default to the month
// containing now.
func ParseRange(start, end string, now time.Time) (Range, error) {
	first, next := wallclock.MonthBounds(now)
	r := Range{Start: first, End: next.AddDate(0, 0, -1)}
	var err error
	if start != "" {
		if r.Start, err = wallclock.ParseDate(start); err != nil {
			return Range{}, apperr.Validation("%s", err.Error())
		}
	}
	if end != "" {
		if r.End, err = wallclock.ParseDate(end); err != nil {
			return Range{}, apperr.Validation("%s", err.Error())
		}
	}
	if r.End.Before(r.Start) {
		return Range{}, apperr.Validation("fim (%s) antes de inicio (%s)",
			r.End.Format(wallclock.DateLayout), r.Start.Format(wallclock.DateLayout))
	}
	return r, nil
}

func (r Range) args(params []string) []interface{} {
	args := make([]interface{}, 0, len(params))
	for _, p := range params {
		switch p {
		case paramStart:
			args = append(args, r.Start)
		case paramEnd:
			args = append(args, r.End)
		}
	}
	return args
}

// Report is the result of running a ReportDefinition.
type Report struct {
	Type        string                   `json:"type"`
	Name        string                   `json:"name"`
	Start       wallclock.Date           `json:"inicio"`
	End         wallclock.Date           `json:"fim"`
	GeneratedAt time.Time                `json:"generated_at"`
	Columns     []string                 `json:"columns"`
	Results     []map[string]interface{} `json:"results"`
}
