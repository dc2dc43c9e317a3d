package reporting

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/clinica/clinica/internal/platform/apperr"
)

type queryCall struct {
	sql  string
	args []interface{}
}

// fakeQuerier answers each statement with a canned table and records the
// arguments it was called with.
type fakeQuerier struct {
	tables map[string]*Table
	calls  []queryCall
	err    error
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{tables: make(map[string]*Table)}
}

func (f *fakeQuerier) Query(_ context.Context, sql string, args ...interface{}) (*Table, error) {
	f.calls = append(f.calls, queryCall{sql: sql, args: args})
	if f.err != nil {
		return nil, f.err
	}
	if t, ok := f.tables[sql]; ok {
		return t, nil
	}
	return &Table{}, nil
}

func (f *fakeQuerier) argsFor(sql string) [][]interface{} {
	var out [][]interface{}
	for _, c := range f.calls {
		if c.sql == sql {
			out = append(out, c.args)
		}
	}
	return out
}

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *fakeQuerier) {
	q := newFakeQuerier()
	svc := NewService(q, t.TempDir(), zerolog.Nop())
	svc.now = func() time.Time { return fixedNow }
	return svc, q
}

func scalarTable(v interface{}) *Table {
	return &Table{Columns: []string{"v"}, Rows: [][]interface{}{{v}}}
}

func TestDashboard(t *testing.T) {
	svc, q := newTestService(t)
	q.tables[sqlCountAppointments] = scalarTable(int64(4))
	q.tables[sqlMonthRevenue] = scalarTable(decimal.RequireFromString("1250.50"))
	q.tables[sqlOverdueReceivables] = scalarTable(int64(2))
	q.tables[sqlUpcoming] = &Table{Rows: [][]interface{}{
		{int64(7), time.Date(2024, 3, 15, 11, 0, 0, 0, time.UTC), "Ana", "Dr. Caio", "Confirmado"},
	}}
	q.tables[sqlBySpecialty] = &Table{Rows: [][]interface{}{{"Geral", int64(3)}, {"Cardiologia", int64(1)}}}

	d, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.Today != 4 || d.Month != 4 || d.Overdue != 2 {
		t.Errorf("unexpected counts %+v", d)
	}
	if !d.MonthRevenue.Equal(decimal.RequireFromString("1250.50")) {
		t.Errorf("expected revenue 1250.50, got %s", d.MonthRevenue)
	}
	if len(d.Upcoming) != 1 || d.Upcoming[0].ID != 7 || d.Upcoming[0].Professional != "Dr. Caio" {
		t.Errorf("unexpected upcoming %+v", d.Upcoming)
	}
	if len(d.BySpecialty) != 2 || d.BySpecialty[0].Name != "Geral" || d.BySpecialty[0].Total != 3 {
		t.Errorf("unexpected specialty chart %+v", d.BySpecialty)
	}

	counts := q.argsFor(sqlCountAppointments)
	if len(counts) != 2 {
		t.Fatalf("expected day and month counts, got %d calls", len(counts))
	}
	day := counts[0]
	if !day[0].(time.Time).Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) ||
		!day[1].(time.Time).Equal(time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected day bounds %v", day)
	}
	month := counts[1]
	if !month[0].(time.Time).Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) ||
		!month[1].(time.Time).Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected month bounds %v", month)
	}
	up := q.argsFor(sqlUpcoming)[0]
	if !up[0].(time.Time).Equal(fixedNow) || up[1] != upcomingLimit {
		t.Errorf("unexpected upcoming args %v", up)
	}
}

func TestDashboard_EmptyListsAreNotNil(t *testing.T) {
	svc, _ := newTestService(t)
	d, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.Upcoming == nil || d.BySpecialty == nil {
		t.Error("expected empty, non-nil lists")
	}
	if !d.MonthRevenue.IsZero() {
		t.Errorf("expected zero revenue, got %s", d.MonthRevenue)
	}
}

func TestDashboard_StorageError(t *testing.T) {
	svc, q := newTestService(t)
	q.err = apperr.Storage("run report query", errors.New("connection refused"))
	if _, err := svc.Dashboard(context.Background()); !errors.Is(err, apperr.ErrStorage) {
		t.Errorf("expected storage error, got %v", err)
	}
}

func TestPredefinedReports(t *testing.T) {
	want := []string{"agendamentos", "financeiro", "profissionais", "pacientes", "convenios", "aniversariantes"}
	if len(PredefinedReports) != len(want) {
		t.Fatalf("expected %d reports, got %d", len(want), len(PredefinedReports))
	}
	for i, id := range want {
		def := PredefinedReports[i]
		if def.ID != id || def.SQL == "" || def.Name == "" {
			t.Errorf("report %d: unexpected definition %+v", i, def)
		}
		if FindReport(id) == nil {
			t.Errorf("FindReport(%q) returned nil", id)
		}
	}
	if FindReport("nonexistent") != nil {
		t.Error("expected nil for unknown report")
	}
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("", "", fixedNow)
	if err != nil {
		t.Fatalf("default range: %v", err)
	}
	if !r.Start.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) || !r.End.Equal(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected default range %v - %v", r.Start, r.End)
	}

	if _, err := ParseRange("2024-03-10", "2024-03-01", fixedNow); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for reversed range, got %v", err)
	}
	if _, err := ParseRange("10/03/2024", "", fixedNow); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for bad date, got %v", err)
	}
}

func TestReport_PassesDeclaredParameters(t *testing.T) {
	svc, q := newTestService(t)
	r, _ := ParseRange("2024-03-01", "2024-03-31", fixedNow)

	def := FindReport("financeiro")
	q.tables[def.SQL] = &Table{
		Columns: []string{"data", "descricao", "categoria", "tipo", "valor"},
		Rows:    [][]interface{}{{time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), "Consulta", "Consultas", "Receita", decimal.NewFromInt(200)}},
	}

	rep, err := svc.Report(context.Background(), "financeiro", r)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(rep.Results) != 1 || rep.Results[0]["tipo"] != "Receita" {
		t.Errorf("unexpected results %v", rep.Results)
	}
	if args := q.argsFor(def.SQL)[0]; len(args) != 2 {
		t.Errorf("expected start and end args, got %v", args)
	}

	if _, err := svc.Report(context.Background(), "pacientes", r); err != nil {
		t.Fatalf("pacientes: %v", err)
	}
	if args := q.argsFor(FindReport("pacientes").SQL)[0]; len(args) != 0 {
		t.Errorf("expected no args for pacientes, got %v", args)
	}

	if _, err := svc.Report(context.Background(), "aniversariantes", r); err != nil {
		t.Fatalf("aniversariantes: %v", err)
	}
	if args := q.argsFor(FindReport("aniversariantes").SQL)[0]; len(args) != 1 {
		t.Errorf("expected only the start arg for aniversariantes, got %v", args)
	}
}

func TestReport_Unknown(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Report(context.Background(), "x", Range{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestExportCSV(t *testing.T) {
	svc, q := newTestService(t)
	q.tables[exports["financeiro"].sql] = &Table{Rows: [][]interface{}{
		{time.Date(2024, 3, 5, 9, 15, 0, 0, time.UTC), "Entrada", "Baixa: Consulta, retorno", decimal.NewFromInt(150), "caixa"},
		{time.Date(2024, 3, 6, 14, 0, 0, 0, time.UTC), "Saída", "Baixa: Aluguel", decimal.RequireFromString("1200.5"), nil},
	}}

	var buf bytes.Buffer
	if err := svc.ExportCSV(context.Background(), "financeiro", &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	want := "Data,Tipo,Descricao,Valor,Usuario\n" +
		"2024-03-05 09:15:00,Entrada,\"Baixa: Consulta, retorno\",150.00,caixa\n" +
		"2024-03-06 14:00:00,Saída,Baixa: Aluguel,1200.50,\n"
	if buf.String() != want {
		t.Errorf("unexpected csv:\n%s\nwant:\n%s", buf.String(), want)
	}

	if err := svc.ExportCSV(context.Background(), "agenda", &buf); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found for unknown export, got %v", err)
	}
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"abc", "abc"},
		{[]byte(`{"a":1}`), `{"a":1}`},
		{true, "true"},
		{int64(42), "42"},
		{decimal.RequireFromString("3.5"), "3.50"},
		{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "2024-01-02"},
		{time.Date(2024, 1, 2, 8, 30, 0, 0, time.UTC), "2024-01-02 08:30:00"},
	}
	for _, tt := range tests {
		if got := formatCell(tt.in); got != tt.want {
			t.Errorf("formatCell(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBackup_WritesZipPerTable(t *testing.T) {
	svc, q := newTestService(t)
	q.tables[`SELECT * FROM patient ORDER BY id`] = &Table{
		Columns: []string{"id", "name"},
		Rows:    [][]interface{}{{int64(1), "Ana"}},
	}

	path, err := svc.Backup(context.Background())
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if filepath.Base(path) != "backup_20240315_103000.zip" {
		t.Errorf("unexpected backup name %q", path)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != len(backupTables) {
		t.Errorf("expected %d entries, got %d", len(backupTables), len(zr.File))
	}
	for _, f := range zr.File {
		if f.Name != "patient.csv" {
			continue
		}
		rc, _ := f.Open()
		data, _ := io.ReadAll(rc)
		rc.Close()
		if string(data) != "id,name\n1,Ana\n" {
			t.Errorf("unexpected patient.csv %q", data)
		}
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".backup-") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestBackup_ExcludesPasswordHashes(t *testing.T) {
	for _, tbl := range backupTables {
		if tbl.name == "users" && strings.Contains(tbl.sql, "password") {
			t.Error("users backup must not select password hashes")
		}
	}
}
