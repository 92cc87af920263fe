package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"alert-digest/internal/config"
	"alert-digest/internal/digest"
	"alert-digest/internal/directory"
)

const fixture = `- subject: "Azure: Activated Severity: 2 High CPU"
  sender: azure-noreply@microsoft.com
  received_at: "2024-05-01T13:00:00Z"
  body: "resourceId = /subscriptions/abc-123/resourceGroups/rg/providers/Microsoft.Compute/virtualMachines/vm1"
- subject: "Phishing"
  sender: evil@example.com
  received_at: "2024-05-01T13:05:00Z"
- subject: "Azure: Deactivated Severity: 2 High CPU"
  sender: azure-noreply@microsoft.com
  received_at: "2024-05-01T14:00:00Z"
  body: "resourceId = /subscriptions/abc-123/resourceGroups/rg/providers/Microsoft.Compute/virtualMachines/vm1"
`

const cpuLine = "Se recibe alerta de CPU para vm1 en Produccion de Acme [(2) 08:00 am-09:00 am]"

func newTestApp(t *testing.T) (*App, string) {
	t.Helper()
	dir := t.TempDir()

	table := "ID_SUSCRIPCION;NOMBRE_SUSCRIPCION;CLIENTE\nabc-123;Produccion;Acme\n"
	if err := os.WriteFile(filepath.Join(dir, "suscripciones.csv"), []byte(table), 0o644); err != nil {
		t.Fatalf("write table: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "mail.yaml"), []byte(fixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg := &config.Config{
		Extraction: config.ExtractionConfig{VendorMarker: "microsoft", UTCOffset: 5 * time.Hour, Workers: 2},
		Directory:  config.DirectoryConfig{Path: filepath.Join(dir, "suscripciones.csv")},
		Source:     config.SourceConfig{Extensions: []string{".eml", ".yaml", ".yml"}},
		Report:     config.ReportConfig{Format: FormatText},
		Export:     config.ExportConfig{ChartWidth: 640, ChartHeight: 480},
	}
	return NewApp(cfg, zerolog.Nop()), dir
}

func TestProcessWritesTextReport(t *testing.T) {
	app, dir := newTestApp(t)
	out := filepath.Join(dir, "out", "report.txt")

	err := app.Process(context.Background(), ProcessOptions{Paths: []string{filepath.Join(dir, "mail.yaml")}, Output: out})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	want := "== 2024-05-01 ==\n" +
		cpuLine + "\n" +
		"\n" +
		"Errores (1):\n" +
		"- Correo ignorado (no Microsoft) - Asunto: Phishing - Fecha: 2024-05-01 - Hora: 08:05\n"
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessWritesJSONReport(t *testing.T) {
	app, dir := newTestApp(t)
	out := filepath.Join(dir, "report.json")

	err := app.Process(context.Background(), ProcessOptions{
		Paths:  []string{dir},
		Output: out,
		Format: FormatJSON,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var doc struct {
		Results map[string][]string `json:"resultados"`
		Errors  []string            `json:"errores"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode report: %v", err)
	}

	if diff := cmp.Diff(map[string][]string{"2024-05-01": {cpuLine}}, doc.Results); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
	// The directory walk also sees the subscription table, which no source reads.
	if len(doc.Errors) != 2 || !strings.HasPrefix(doc.Errors[0], "Archivo ignorado: ") {
		t.Fatalf("unexpected errors %q", doc.Errors)
	}
}

func TestProcessHonoursZeroOffset(t *testing.T) {
	app, dir := newTestApp(t)
	app.Config.Extraction.UTCOffset = 0
	out := filepath.Join(dir, "report.txt")

	err := app.Process(context.Background(), ProcessOptions{Paths: []string{filepath.Join(dir, "mail.yaml")}, Output: out})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "[(2) 13:00 pm-14:00 pm]") {
		t.Fatalf("report should keep UTC clock:\n%s", data)
	}
}

func TestProcessRejectsUnknownFormat(t *testing.T) {
	app, dir := newTestApp(t)
	err := app.Process(context.Background(), ProcessOptions{Paths: []string{dir}, Format: "xml"})
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestProcessRequiresPaths(t *testing.T) {
	app, _ := newTestApp(t)
	if err := app.Process(context.Background(), ProcessOptions{Format: FormatText}); err == nil {
		t.Fatal("expected error without input paths")
	}
}

func TestProcessNotifiesPerDate(t *testing.T) {
	var (
		mu    sync.Mutex
		texts []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		mu.Lock()
		texts = append(texts, payload["text"])
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	app, dir := newTestApp(t)
	app.Config.Alerting = config.AlertingConfig{
		Enabled: true,
		Telegram: config.TelegramConfig{
			Enabled:  true,
			BotToken: "token",
			ChatID:   "chat",
			APIBase:  srv.URL,
			Timeout:  time.Second,
		},
	}

	err := app.Process(context.Background(), ProcessOptions{
		Paths:  []string{filepath.Join(dir, "mail.yaml")},
		Output: filepath.Join(dir, "report.txt"),
		Notify: true,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(texts) != 1 {
		t.Fatalf("expected one message, got %d", len(texts))
	}
	if !strings.Contains(texts[0], cpuLine) {
		t.Fatalf("message %q should contain the digest line", texts[0])
	}
}

func TestProcessNotifyWithoutChannel(t *testing.T) {
	app, dir := newTestApp(t)
	err := app.Process(context.Background(), ProcessOptions{
		Paths:  []string{filepath.Join(dir, "mail.yaml")},
		Output: filepath.Join(dir, "report.txt"),
		Notify: true,
	})
	if err == nil {
		t.Fatal("expected error when no delivery channel is configured")
	}
}

func TestProcessWritesMetricsTextfile(t *testing.T) {
	app, dir := newTestApp(t)
	app.Config.Metrics.Textfile = filepath.Join(dir, "alertdigest.prom")

	err := app.Process(context.Background(), ProcessOptions{
		Paths:  []string{filepath.Join(dir, "mail.yaml")},
		Output: filepath.Join(dir, "report.txt"),
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	data, err := os.ReadFile(app.Config.Metrics.Textfile)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(data), "alertdigest_report_lines 1") {
		t.Fatalf("metrics missing report lines:\n%s", data)
	}
}

func TestExportWritesCSV(t *testing.T) {
	app, dir := newTestApp(t)
	out := filepath.Join(dir, "export", "events.csv")

	err := app.Export(context.Background(), ExportOptions{Paths: []string{filepath.Join(dir, "mail.yaml")}, CSVPath: out})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	file, err := os.Open(out)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and two events, got %d rows", len(rows))
	}
	want := []string{"2024-05-01", "08:00", "Activated", "High CPU", "Se recibe alerta de CPU para vm1 en Produccion de Acme", "Azure: Activated Severity: 2 High CPU"}
	if diff := cmp.Diff(want, rows[1]); diff != "" {
		t.Fatalf("row mismatch (-want +got):\n%s", diff)
	}
}

func TestExportRequiresTarget(t *testing.T) {
	app, dir := newTestApp(t)
	if err := app.Export(context.Background(), ExportOptions{Paths: []string{dir}}); err == nil {
		t.Fatal("expected error without --csv or --png")
	}
}

func TestCountByDateKeepsFirstSeenOrder(t *testing.T) {
	events := []digest.Event{
		{Date: "2024-05-02"},
		{Date: "2024-05-01"},
		{Date: "2024-05-02"},
	}
	want := []dateCount{{Date: "2024-05-02", Count: 2}, {Date: "2024-05-01", Count: 1}}
	if diff := cmp.Diff(want, countByDate(events)); diff != "" {
		t.Fatalf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteDirectoryFilters(t *testing.T) {
	entries := []directory.Subscription{
		{ID: "abc-123", Name: "Produccion", Client: "Acme"},
		{ID: "def-456", Name: "Desarrollo", Client: "Globex"},
	}

	var buf bytes.Buffer
	if err := writeDirectory(&buf, entries, "acme"); err != nil {
		t.Fatalf("write directory: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "abc-123") || strings.Contains(out, "def-456") {
		t.Fatalf("unexpected table:\n%s", out)
	}

	buf.Reset()
	if err := writeDirectory(&buf, entries, "initech"); err != nil {
		t.Fatalf("write directory: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "no subscriptions found" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
