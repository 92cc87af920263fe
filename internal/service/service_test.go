package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"alert-digest/internal/config"
	"alert-digest/internal/digest"
	"alert-digest/internal/directory"
	"alert-digest/internal/extract"
	"alert-digest/internal/metrics"
)

const vendor = "azure-noreply@microsoft.com"

func testConfig(workers int) *config.Config {
	return &config.Config{
		Extraction: config.ExtractionConfig{VendorMarker: "microsoft", UTCOffset: 5 * time.Hour, Workers: workers},
		Report:     config.ReportConfig{Format: "text"},
	}
}

func newService(workers int) *Service {
	dir := directory.New([]directory.Subscription{
		{ID: "abc-123", Name: "Produccion", Client: "Acme"},
	})
	ex := extract.New(extract.Options{}, dir, zerolog.Nop())
	return New(testConfig(workers), ex, metrics.NewRecorder(), zerolog.Nop())
}

func at(day, hour, minute int) time.Time {
	return time.Date(2024, 5, day, hour, minute, 0, 0, time.UTC)
}

const vmBody = "resourceId = /subscriptions/abc-123/resourceGroups/rg/providers/Microsoft.Compute/virtualMachines/vm1"

func sampleRecords() []digest.Record {
	return []digest.Record{
		{Subject: "Azure: Activated Severity: 2 High CPU", Sender: vendor, ReceivedAt: at(1, 13, 0), Body: vmBody},
		{Subject: "Phishing: Alert 'x' was fired", Sender: "evil@example.com", ReceivedAt: at(1, 13, 5), Body: vmBody},
		{Subject: "Your budget alert threshold was reached", Sender: vendor, ReceivedAt: at(1, 12, 0), Body: "Subscription ID: abc-123"},
		{Subject: "Azure: Deactivated Severity: 2 High CPU", Sender: vendor, ReceivedAt: at(1, 14, 0), Body: vmBody},
		{Subject: "Newsletter", Sender: vendor, ReceivedAt: at(1, 15, 0)},
		{Subject: "Planned Maintenance notification to db1", Sender: vendor, ReceivedAt: at(2, 20, 0)},
	}
}

func TestProcessEndToEnd(t *testing.T) {
	svc := newService(4)
	sourceFailure := digest.NewIgnoredFileRejection("notes.txt")

	res, err := svc.Process(context.Background(), sampleRecords(), []digest.Rejection{sourceFailure})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if diff := cmp.Diff([]string{"2024-05-01", "2024-05-02"}, res.Report.Dates()); diff != "" {
		t.Fatalf("dates mismatch (-want +got):\n%s", diff)
	}

	want := []string{
		"Se recibe alerta de billing en Produccion de Acme [(1) 07:00 am]",
		"Se recibe alerta de CPU para vm1 en Produccion de Acme [(2) 08:00 am-09:00 am]",
	}
	if diff := cmp.Diff(want, res.Report.Lines("2024-05-01")); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Se recibe alerta de mantenimiento programado para db1 [(1) 15:00 pm]"}, res.Report.Lines("2024-05-02")); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}

	kinds := make([]digest.RejectionKind, 0, len(res.Rejections))
	for _, r := range res.Rejections {
		kinds = append(kinds, r.Kind)
	}
	wantKinds := []digest.RejectionKind{digest.SourceUnavailable, digest.SenderRejected, digest.ExtractionFailed}
	if diff := cmp.Diff(wantKinds, kinds); diff != "" {
		t.Fatalf("rejection order mismatch (-want +got):\n%s", diff)
	}

	for _, ev := range res.Events {
		if ev.OriginalSubject == "Phishing: Alert 'x' was fired" {
			t.Fatal("foreign sender accepted")
		}
	}

	s := res.Summary
	if s.Records != 6 || s.Accepted != 4 || s.Rejected != 2 || s.Lines != 3 || s.Dates != 2 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.AcceptancePct.StringFixed(2) != "66.67" {
		t.Fatalf("unexpected acceptance %s", s.AcceptancePct.StringFixed(2))
	}
	if s.RunID == "" {
		t.Fatal("run id missing")
	}
}

func TestProcessMatchesSequentialRun(t *testing.T) {
	var records []digest.Record
	for i := 0; i < 200; i++ {
		kind := "Activated"
		if i%2 == 1 {
			kind = "Deactivated"
		}
		records = append(records, digest.Record{
			Subject:    fmt.Sprintf("Azure: %s Severity: 3 High CPU %d", kind, i/2%5),
			Sender:     vendor,
			ReceivedAt: at(1+i%3, 6+i%12, i%60),
			Body:       vmBody,
		})
	}

	sequential, err := newService(1).Process(context.Background(), records, nil)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	parallel, err := newService(8).Process(context.Background(), records, nil)
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}

	if diff := cmp.Diff(sequential.Events, parallel.Events); diff != "" {
		t.Fatalf("events differ (-seq +par):\n%s", diff)
	}
	for _, date := range sequential.Report.Dates() {
		if diff := cmp.Diff(sequential.Report.Lines(date), parallel.Report.Lines(date)); diff != "" {
			t.Fatalf("%s differs (-seq +par):\n%s", date, diff)
		}
	}
}

func TestProcessSortDates(t *testing.T) {
	cfg := testConfig(2)
	cfg.Report.SortDates = true
	svc := New(cfg, extract.New(extract.Options{}, nil, zerolog.Nop()), nil, zerolog.Nop())

	records := []digest.Record{
		{Subject: "Alert 'a' was fired", Sender: vendor, ReceivedAt: at(3, 12, 0), Body: "Target resource name r1"},
		{Subject: "Alert 'a' was fired", Sender: vendor, ReceivedAt: at(1, 12, 0), Body: "Target resource name r1"},
	}
	res, err := svc.Process(context.Background(), records, nil)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if diff := cmp.Diff([]string{"2024-05-01", "2024-05-03"}, res.Report.Dates()); diff != "" {
		t.Fatalf("dates mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newService(2).Process(ctx, sampleRecords(), nil); err == nil {
		t.Fatal("cancelled context should fail the run")
	}
}

func TestProcessEmpty(t *testing.T) {
	res, err := newService(2).Process(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Report.Len() != 0 || !res.Summary.AcceptancePct.IsZero() {
		t.Fatalf("unexpected result %+v", res.Summary)
	}
}
