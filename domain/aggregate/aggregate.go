// Package aggregate derives summary values from a dataset. Every function
// recomputes from the rows it is given; nothing is cached.
package aggregate

import (
	"math"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"sheetsync/domain/dataset"
)

// Predicate tests a single cell value
type Predicate func(value string) bool

// EqualFold matches cells equal to target ignoring case and surrounding space
func EqualFold(target string) Predicate {
	target = strings.TrimSpace(target)
	return func(value string) bool {
		return strings.EqualFold(strings.TrimSpace(value), target)
	}
}

// Count returns the number of rows
func Count(ds *dataset.Dataset) int {
	return ds.Len()
}

// CountWhere counts rows whose field value satisfies pred. Missing cells are
// tested as the empty string.
func CountWhere(ds *dataset.Dataset, field dataset.Field, pred Predicate) int {
	if ds == nil || pred == nil {
		return 0
	}
	cols := dataset.ResolveColumns(ds)
	n := 0
	for _, row := range ds.Rows {
		if pred(cols.Read(row, field, "")) {
			n++
		}
	}
	return n
}

// SumNumeric adds up field across all rows. Cells that are missing or do not
// parse as a number count as zero.
func SumNumeric(ds *dataset.Dataset, field dataset.Field) float64 {
	values := numericColumn(ds, field)
	sum, err := stats.Sum(values)
	if err != nil {
		// stats reports EmptyInputErr for no rows
		return 0
	}
	return sum
}

// SumDecimal is the exact variant of SumNumeric, used for currency totals
func SumDecimal(ds *dataset.Dataset, field dataset.Field) decimal.Decimal {
	total := decimal.Zero
	if ds == nil {
		return total
	}
	idx := dataset.ResolveColumns(ds).Index(field)
	if idx == dataset.NotFound {
		return total
	}
	for _, row := range ds.Rows {
		if idx >= len(row) {
			continue
		}
		clean, ok := cleanNumber(row[idx])
		if !ok {
			continue
		}
		d, err := decimal.NewFromString(clean)
		if err != nil {
			continue
		}
		total = total.Add(d)
	}
	return total
}

func numericColumn(ds *dataset.Dataset, field dataset.Field) stats.Float64Data {
	if ds == nil {
		return nil
	}
	idx := dataset.ResolveColumns(ds).Index(field)
	if idx == dataset.NotFound {
		return nil
	}
	values := make(stats.Float64Data, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		if idx >= len(row) {
			continue
		}
		if v, ok := ParseNumber(row[idx]); ok {
			values = append(values, v)
		}
	}
	return values
}

var currencyPrefixes = []string{"₹", "$", "€", "£", "Rs.", "Rs", "INR"}

// cleanNumber strips a leading currency marker and thousands separators
func cleanNumber(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	for _, p := range currencyPrefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSpace(strings.TrimPrefix(s, p))
			break
		}
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return "", false
	}
	return s, true
}

// ParseNumber parses a numeric cell. ok is false for empty, non-numeric, NaN
// or infinite text.
func ParseNumber(raw string) (float64, bool) {
	s, ok := cleanNumber(raw)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
