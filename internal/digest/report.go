package digest

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Report maps a date to its display lines. Dates keep the order in which
// they were first added.
type Report struct {
	dates []string
	lines map[string][]string
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{lines: make(map[string][]string)}
}

// Append adds lines under date, registering the date on first use.
func (r *Report) Append(date string, lines ...string) {
	if _, ok := r.lines[date]; !ok {
		r.dates = append(r.dates, date)
		r.lines[date] = make([]string, 0, len(lines))
	}
	r.lines[date] = append(r.lines[date], lines...)
}

// Dates returns the report dates in insertion order.
func (r *Report) Dates() []string {
	out := make([]string, len(r.dates))
	copy(out, r.dates)
	return out
}

// Lines returns the lines recorded for date.
func (r *Report) Lines(date string) []string {
	src := r.lines[date]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// Len reports the number of dates.
func (r *Report) Len() int {
	return len(r.dates)
}

// LineCount reports the number of lines across all dates.
func (r *Report) LineCount() int {
	total := 0
	for _, date := range r.dates {
		total += len(r.lines[date])
	}
	return total
}

// Sorted returns a copy with dates in ascending order.
func (r *Report) Sorted() *Report {
	out := NewReport()
	dates := r.Dates()
	sort.Strings(dates)
	for _, date := range dates {
		out.Append(date, r.lines[date]...)
	}
	return out
}

// MarshalJSON encodes the report as an object whose keys follow Dates().
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, date := range r.dates {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(date)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		lines := r.lines[date]
		if lines == nil {
			lines = []string{}
		}
		value, err := json.Marshal(lines)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
