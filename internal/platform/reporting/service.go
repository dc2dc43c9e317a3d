package reporting

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinica/clinica/internal/platform/apperr"
	"github.com/clinica/clinica/pkg/wallclock"
)

type Service struct {
	q         Querier
	backupDir string
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(q Querier, backupDir string, logger zerolog.Logger) *Service {
	return &Service{q: q, backupDir: backupDir, logger: logger, now: wallclock.Now}
}

func (s *Service) count(ctx context.Context, sql string, args ...interface{}) (int, error) {
	t, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return asInt(t.scalar()), nil
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := s.now()
	dayStart, dayEnd := wallclock.DayBounds(now)
	monthStart, monthEnd := wallclock.MonthBounds(now)

	d := &Dashboard{Upcoming: []UpcomingAppointment{}, BySpecialty: []SpecialtyCount{}}
	var err error
	if d.Today, err = s.count(ctx, sqlCountAppointments, dayStart, dayEnd); err != nil {
		return nil, err
	}
	if d.Month, err = s.count(ctx, sqlCountAppointments, monthStart, monthEnd); err != nil {
		return nil, err
	}
	if d.Overdue, err = s.count(ctx, sqlOverdueReceivables, dayStart); err != nil {
		return nil, err
	}

	revenue, err := s.q.Query(ctx, sqlMonthRevenue, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}
	d.MonthRevenue = asDecimal(revenue.scalar())

	upcoming, err := s.q.Query(ctx, sqlUpcoming, now, upcomingLimit)
	if err != nil {
		return nil, err
	}
	for _, row := range upcoming.Rows {
		start, _ := row[1].(time.Time)
		d.Upcoming = append(d.Upcoming, UpcomingAppointment{
			ID:           int64(asInt(row[0])),
			Start:        start,
			Patient:      asString(row[2]),
			Professional: asString(row[3]),
			Status:       asString(row[4]),
		})
	}

	bySpecialty, err := s.q.Query(ctx, sqlBySpecialty, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}
	for _, row := range bySpecialty.Rows {
		d.BySpecialty = append(d.BySpecialty, SpecialtyCount{Name: asString(row[0]), Total: asInt(row[1])})
	}
	return d, nil
}

// Report runs the predefined report id over r.
func (s *Service) Report(ctx context.Context, id string, r Range) (*Report, error) {
	def := FindReport(id)
	if def == nil {
		return nil, apperr.NotFound("report " + id)
	}
	t, err := s.q.Query(ctx, def.SQL, r.args(def.Parameters)...)
	if err != nil {
		return nil, err
	}
	columns := t.Columns
	if columns == nil {
		columns = []string{}
	}
	return &Report{
		Type:        def.ID,
		Name:        def.Name,
		Start:       wallclock.Date{Time: r.Start},
		End:         wallclock.Date{Time: r.End},
		GeneratedAt: s.now(),
		Columns:     columns,
		Results:     t.Maps(),
	}, nil
}

// -- CSV export --

type export struct {
	header []string
	sql    string
}

var exports = map[string]export{
	"financeiro": {
		header: []string{"Data", "Tipo", "Descricao", "Valor", "Usuario"},
		sql:    `SELECT created_at, direction, description, amount, actor FROM cash_entry ORDER BY created_at, id`,
	},
	"pacientes": {
		header: []string{"Nome", "CPF", "Tel", "Email"},
		sql:    `SELECT name, cpf, phone, email FROM patient ORDER BY name`,
	},
}

func writeCSV(w io.Writer, header []string, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for _, row := range t.Rows {
		record = record[:0]
		for _, v := range row {
			record = append(record, formatCell(v))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes the export kind as CSV to w.
func (s *Service) ExportCSV(ctx context.Context, kind string, w io.Writer) error {
	ex, ok := exports[kind]
	if !ok {
		return apperr.NotFound("export " + kind)
	}
	t, err := s.q.Query(ctx, ex.sql)
	if err != nil {
		return err
	}
	if err := writeCSV(w, ex.header, t); err != nil {
		return apperr.Storage("write csv", err)
	}
	return nil
}

// -- Backup --

// backupTables lists every table in the backup with its statement. Password
// hashes stay out of the archive.
var backupTables = []struct {
	name string
	sql  string
}{
	{"users", `SELECT id, username, role, created_at FROM users ORDER BY id`},
	{"clinic_settings", `SELECT * FROM clinic_settings`},
	{"especialidades", `SELECT * FROM especialidades ORDER BY id`},
	{"salas", `SELECT * FROM salas ORDER BY id`},
	{"procedimentos", `SELECT * FROM procedimentos ORDER BY id`},
	{"insurance_plan", `SELECT * FROM insurance_plan ORDER BY id`},
	{"patient", `SELECT * FROM patient ORDER BY id`},
	{"professional", `SELECT * FROM professional ORDER BY id`},
	{"appointment", `SELECT * FROM appointment ORDER BY id`},
	{"receivable", `SELECT * FROM receivable ORDER BY id`},
	{"payable", `SELECT * FROM payable ORDER BY id`},
	{"cash_entry", `SELECT * FROM cash_entry ORDER BY id`},
	{"clinical_note", `SELECT * FROM clinical_note ORDER BY id`},
	{"upload", `SELECT * FROM upload ORDER BY created_at`},
}

// Backup writes a zip with one CSV per table into the backup directory and
// returns its path.
func (s *Service) Backup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.backupDir, 0o750); err != nil {
		return "", apperr.Storage("create backup dir", err)
	}
	name := fmt.Sprintf("backup_%s.zip", s.now().Format("20060102_150405"))
	final := filepath.Join(s.backupDir, name)

	tmp, err := os.CreateTemp(s.backupDir, ".backup-*")
	if err != nil {
		return "", apperr.Storage("create backup file", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.writeArchive(ctx, tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", apperr.Storage("close backup file", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", apperr.Storage("store backup file", err)
	}
	s.logger.Info().Str("path", final).Msg("backup written")
	return final, nil
}

func (s *Service) writeArchive(ctx context.Context, w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, tbl := range backupTables {
		t, err := s.q.Query(ctx, tbl.sql)
		if err != nil {
			return err
		}
		f, err := zw.CreateHeader(&zip.FileHeader{
			Name:     tbl.name + ".csv",
			Method:   zip.Deflate,
			Modified: s.now(),
		})
		if err != nil {
			return apperr.Storage("add "+tbl.name+" to backup", err)
		}
		if err := writeCSV(f, t.Columns, t); err != nil {
			return apperr.Storage("write "+tbl.name+" to backup", err)
		}
	}
	if err := zw.Close(); err != nil {
		return apperr.Storage("finish backup", err)
	}
	return nil
}
