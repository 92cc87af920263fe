package directory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	ColumnID     = "ID_SUSCRIPCION"
	ColumnName   = "NOMBRE_SUSCRIPCION"
	ColumnClient = "CLIENTE"
)

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("directory: missing column")

// Subscription identifies a cloud subscription and the client that owns it.
type Subscription struct {
	ID     string
	Name   string
	Client string
}

// Directory resolves subscriptions by id or by display name.
type Directory struct {
	byID  map[string]Subscription
	order []string
}

// New builds a directory from entries. Ids are trimmed and lowercased;
// a later duplicate id replaces the earlier entry.
func New(entries []Subscription) *Directory {
	d := &Directory{byID: make(map[string]Subscription, len(entries))}
	for _, e := range entries {
		d.add(e)
	}
	return d
}

func (d *Directory) add(e Subscription) {
	e.ID = NormalizeID(e.ID)
	e.Name = strings.TrimSpace(e.Name)
	e.Client = strings.TrimSpace(e.Client)
	if _, exists := d.byID[e.ID]; !exists {
		d.order = append(d.order, e.ID)
	}
	d.byID[e.ID] = e
}

// NormalizeID applies the key normalization used for lookups.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Lookup returns the subscription registered under id.
func (d *Directory) Lookup(id string) (Subscription, bool) {
	if d == nil {
		return Subscription{}, false
	}
	s, ok := d.byID[NormalizeID(id)]
	return s, ok
}

// FindByName returns the first subscription, in load order, whose name
// matches name ignoring case.
func (d *Directory) FindByName(name string) (Subscription, bool) {
	if d == nil {
		return Subscription{}, false
	}
	want := strings.ToLower(name)
	for _, id := range d.order {
		s := d.byID[id]
		if strings.ToLower(s.Name) == want {
			return s, true
		}
	}
	return Subscription{}, false
}

// Entries returns all subscriptions in load order.
func (d *Directory) Entries() []Subscription {
	if d == nil {
		return nil
	}
	out := make([]Subscription, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byID[id])
	}
	return out
}

// Len reports the number of subscriptions.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.order)
}

// LoadFile reads a semicolon-delimited subscription table from path.
func LoadFile(path string) (*Directory, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open subscription table: %w", err)
	}
	defer file.Close()

	d, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return d, nil
}

// Parse reads a semicolon-delimited table with a header row naming
// ID_SUSCRIPCION, NOMBRE_SUSCRIPCION and CLIENTE.
func Parse(r io.Reader) (*Directory, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return New(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var entries []Subscription
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if isBlank(row) {
			continue
		}
		entries = append(entries, Subscription{
			ID:     field(row, idx[ColumnID]),
			Name:   field(row, idx[ColumnName]),
			Client: field(row, idx[ColumnClient]),
		})
	}
	return New(entries), nil
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		idx[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{ColumnID, ColumnName, ColumnClient} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("%w %s", ErrMissingColumn, required)
		}
	}
	return idx, nil
}

func field(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
