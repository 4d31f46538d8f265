package dataset

import "time"

// Field is a logical column name as it appears in the sheet header row
type Field = string

const (
	FieldFullName      Field = "Full Name"
	FieldAmount        Field = "Amount"
	FieldTimestamp     Field = TimestampField
	FieldEmail         Field = "Email Address"
	FieldPhone         Field = "Phone Number"
	FieldTransactionID Field = "Transaction ID"
	FieldNote          Field = "Message (Optional)"
	FieldSubject       Field = "Subject"
	FieldMessage       Field = "Message"
	FieldStatus        Field = "Status"
	FieldCity          Field = "City"
	FieldOccupation    Field = "Occupation"
)

// NotFound is the index returned when a field is absent from the headers
const NotFound = -1

func indexOf(headers []string, field Field) int {
	for i, h := range headers {
		if h == field {
			return i
		}
	}
	return NotFound
}

// Resolve returns the position of field in the dataset headers, or NotFound.
// Matching is exact and case-sensitive; the first match wins.
func Resolve(ds *Dataset, field Field) int {
	if ds == nil {
		return NotFound
	}
	return indexOf(ds.Headers, field)
}

// Read returns the cell for field in row, or fallback when the field is
// missing or the cell is empty. It never panics.
func Read(ds *Dataset, row Row, field Field, fallback string) string {
	return cell(row, Resolve(ds, field), fallback)
}

func cell(row Row, idx int, fallback string) string {
	if idx == NotFound || idx >= len(row) {
		return fallback
	}
	if v := row[idx]; v != "" {
		return v
	}
	return fallback
}

// Columns maps every header of a dataset to its position. Build it once per
// dataset and reuse it for all rows instead of scanning headers per cell.
type Columns struct {
	index map[Field]int
}

// ResolveColumns indexes the headers of ds
func ResolveColumns(ds *Dataset) Columns {
	c := Columns{index: make(map[Field]int)}
	if ds == nil {
		return c
	}
	for i, h := range ds.Headers {
		if _, dup := c.index[h]; !dup {
			c.index[h] = i
		}
	}
	return c
}

// Index returns the position of field, or NotFound
func (c Columns) Index(field Field) int {
	if i, ok := c.index[field]; ok {
		return i
	}
	return NotFound
}

// Has reports whether the dataset carries field
func (c Columns) Has(field Field) bool {
	return c.Index(field) != NotFound
}

// Read is the resolved-index variant of the package level Read
func (c Columns) Read(row Row, field Field, fallback string) string {
	return cell(row, c.Index(field), fallback)
}

// ReadTime parses the cell for field as a timestamp
func (c Columns) ReadTime(row Row, field Field) (time.Time, bool) {
	return ParseTimestamp(c.Read(row, field, ""))
}

// ReadTimestamp formats the cell for field for display, Unparseable on failure
func (c Columns) ReadTimestamp(row Row, field Field, layout string) string {
	return FormatTimestamp(c.Read(row, field, ""), layout)
}
