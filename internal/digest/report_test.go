package digest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestReportKeepsInsertionOrder(t *testing.T) {
	r := NewReport()
	r.Append("2024-05-02", "b")
	r.Append("2024-05-01", "a")
	r.Append("2024-05-02", "c")

	if diff := cmp.Diff([]string{"2024-05-02", "2024-05-01"}, r.Dates()); diff != "" {
		t.Fatalf("dates mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b", "c"}, r.Lines("2024-05-02")); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
	if r.LineCount() != 3 {
		t.Fatalf("expected 3 lines, got %d", r.LineCount())
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	want := `{"2024-05-02":["b","c"],"2024-05-01":["a"]}`
	if string(data) != want {
		t.Fatalf("unexpected json %s", data)
	}
}

func TestReportSorted(t *testing.T) {
	r := NewReport()
	r.Append("2024-05-02", "b")
	r.Append("2024-05-01", "a")

	sorted := r.Sorted()
	if diff := cmp.Diff([]string{"2024-05-01", "2024-05-02"}, sorted.Dates()); diff != "" {
		t.Fatalf("dates mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"2024-05-02", "2024-05-01"}, r.Dates()); diff != "" {
		t.Fatalf("original report must not change:\n%s", diff)
	}
}

func TestLocalTimeSubtractsOffset(t *testing.T) {
	received := time.Date(2024, 5, 2, 3, 30, 0, 0, time.UTC)
	date, clock := LocalTime(received, 5*time.Hour)
	if date != "2024-05-01" || clock != "22:30" {
		t.Fatalf("expected 2024-05-01 22:30, got %s %s", date, clock)
	}
}

func TestLocalTimeIgnoresInputZone(t *testing.T) {
	utc := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	shifted := utc.In(time.FixedZone("-0300", -3*60*60))

	utcDate, utcClock := LocalTime(utc, 5*time.Hour)
	zonedDate, zonedClock := LocalTime(shifted, 5*time.Hour)
	if utcDate != zonedDate || utcClock != zonedClock {
		t.Fatalf("same instant rendered differently: %s %s vs %s %s", utcDate, utcClock, zonedDate, zonedClock)
	}
	if utcDate != "2024-01-02" || utcClock != "10:00" {
		t.Fatalf("expected 2024-01-02 10:00, got %s %s", utcDate, utcClock)
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindActivated:   "Activated",
		KindDeactivated: "Deactivated",
		KindOther:       "Other",
	}
	for kind, want := range cases {
		if kind.String() != want {
			t.Fatalf("expected %s, got %s", want, kind.String())
		}
	}
}
