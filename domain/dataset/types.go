package dataset

import (
	"fmt"
	"strings"

	"sheetsync/domain/core"
)

// Name identifies one of the spreadsheet tabs served by the remote endpoint
type Name string

const (
	Donations  Name = "donate"
	Contacts   Name = "contact"
	Volunteers Name = "register"
)

var labels = map[Name]string{
	Donations:  "Donations",
	Contacts:   "Contacts",
	Volunteers: "Volunteers",
}

// Names returns the closed set of known datasets in display order
func Names() []Name {
	return []Name{Donations, Contacts, Volunteers}
}

// Valid reports whether n is one of the known datasets
func (n Name) Valid() bool {
	_, ok := labels[n]
	return ok
}

// Label returns the human readable section title
func (n Name) Label() string {
	if l, ok := labels[n]; ok {
		return l
	}
	return string(n)
}

func (n Name) String() string { return string(n) }

// ParseName parses a dataset name, rejecting anything outside the known set
func ParseName(s string) (Name, error) {
	n := Name(strings.TrimSpace(s))
	if !n.Valid() {
		return "", core.NewUnknownDatasetError(s)
	}
	return n, nil
}

// ParseNames parses a list of names, dropping duplicates while keeping first-seen order
func ParseNames(raw []string) ([]Name, error) {
	seen := make(map[Name]bool, len(raw))
	out := make([]Name, 0, len(raw))
	for _, s := range raw {
		n, err := ParseName(s)
		if err != nil {
			return nil, err
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out, nil
}

// Row is one record, positionally aligned with Dataset.Headers
type Row []string

// Dataset is a normalized, timestamp-sorted sheet. It is replaced wholesale on
// reload and must not be mutated after construction.
type Dataset struct {
	Name    Name     `json:"name"`
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// Payload is the decoded response of the remote source before normalization
type Payload struct {
	Headers []string
	Rows    [][]string
}

// New validates a payload and builds a Dataset with rows sorted newest first
func New(name Name, p Payload) (*Dataset, error) {
	if !name.Valid() {
		return nil, core.NewUnknownDatasetError(string(name))
	}
	if p.Headers == nil {
		return nil, core.ErrMissingHeaders
	}

	seen := make(map[string]bool, len(p.Headers))
	for _, h := range p.Headers {
		if seen[h] {
			return nil, fmt.Errorf("%w: %q", core.ErrDuplicateHeader, h)
		}
		seen[h] = true
	}

	rows := make([]Row, len(p.Rows))
	for i, r := range p.Rows {
		if len(r) != len(p.Headers) {
			return nil, core.NewRowLengthError(i, len(r), len(p.Headers))
		}
		rows[i] = append(Row(nil), r...)
	}

	headers := append([]string(nil), p.Headers...)
	return &Dataset{
		Name:    name,
		Headers: headers,
		Rows:    SortByTimestamp(headers, rows),
	}, nil
}

// Len returns the row count
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Head returns a dataset view over the first n rows (the n most recent records)
func (d *Dataset) Head(n int) *Dataset {
	if d == nil {
		return nil
	}
	if n < 0 || n > len(d.Rows) {
		n = len(d.Rows)
	}
	return &Dataset{Name: d.Name, Headers: d.Headers, Rows: d.Rows[:n:n]}
}
