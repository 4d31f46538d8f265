package dataset

import (
	"sort"
	"strings"
	"time"
)

// TimestampField is the column every sheet is ordered by
const TimestampField = "Timestamp"

// Display layouts for timestamps
const (
	DisplayLayout     = "02 Jan 2006, 03:04 PM"
	LongDisplayLayout = "02 January 2006, 03:04 PM"
)

// Unparseable is shown wherever a timestamp cell is missing or not a date
const Unparseable = "N/A"

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"01/02/2006",
	"2006/01/02",
}

// ParseTimestamp parses a sheet timestamp cell. ok is false for empty or unrecognized text.
func ParseTimestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders a timestamp cell with layout, or Unparseable
func FormatTimestamp(raw, layout string) string {
	t, ok := ParseTimestamp(raw)
	if !ok {
		return Unparseable
	}
	return t.Format(layout)
}

type keyedRow struct {
	row Row
	at  time.Time
	ok  bool
}

// SortByTimestamp returns a new slice ordered latest first. Rows whose
// timestamp does not parse go last, keeping their original relative order.
// The input slice is not modified.
func SortByTimestamp(headers []string, rows []Row) []Row {
	idx := indexOf(headers, TimestampField)

	keyed := make([]keyedRow, len(rows))
	for i, r := range rows {
		keyed[i].row = r
		if idx != NotFound && idx < len(r) {
			keyed[i].at, keyed[i].ok = ParseTimestamp(r[idx])
		}
	}

	sort.SliceStable(keyed, func(i, j int) bool {
		a, b := keyed[i], keyed[j]
		if a.ok != b.ok {
			return a.ok
		}
		return a.ok && a.at.After(b.at)
	})

	out := make([]Row, len(keyed))
	for i, k := range keyed {
		out[i] = k.row
	}
	return out
}
