package testkit

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/xuri/excelize/v2"

	"sheetsync/domain/dataset"
)

// SheetGeneratorConfig configures the demo sheet generator
type SheetGeneratorConfig struct {
	Rows            int       `json:"rows"` // per dataset
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	BlankRate       float64   `json:"blank_rate"`       // chance an optional cell is left empty
	UnparseableRate float64   `json:"unparseable_rate"` // chance a timestamp is not a date
	Seed            int64     `json:"seed"`
}

// DefaultSheetConfig returns sensible defaults for demo data generation
func DefaultSheetConfig() SheetGeneratorConfig {
	return SheetGeneratorConfig{
		Rows:            25,
		StartDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC),
		BlankRate:       0.1,
		UnparseableRate: 0.05,
		Seed:            42,
	}
}

// SheetGenerator produces deterministic donation, contact and volunteer sheets
// shaped like the ones the script endpoint serves.
type SheetGenerator struct {
	config SheetGeneratorConfig
	rng    *rand.Rand
}

// NewSheetGenerator creates a new sheet generator
func NewSheetGenerator(config SheetGeneratorConfig) *SheetGenerator {
	return &SheetGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

var (
	firstNames  = []string{"Aarav", "Priya", "Rohan", "Meera", "Kabir", "Ananya", "Vikram", "Isha", "Arjun", "Nisha"}
	lastNames   = []string{"Sharma", "Iyer", "Patel", "Reddy", "Khan", "Das", "Nair", "Gupta"}
	cities      = []string{"Mumbai", "Pune", "Delhi", "Chennai", "Kolkata", "Bengaluru"}
	occupations = []string{"Student", "Teacher", "Engineer", "Nurse", "Retired", "Designer"}
	subjects    = []string{"Volunteering", "Donation receipt", "Partnership", "Event query", "Feedback"}
	statuses    = []string{"Pending", "Approved", "pending", "Rejected"}
)

// Generate builds one payload per known dataset. Rows are emitted in
// chronological order, the way a form appends them to a sheet.
func (g *SheetGenerator) Generate() map[dataset.Name]dataset.Payload {
	return map[dataset.Name]dataset.Payload{
		dataset.Donations:  g.donations(),
		dataset.Contacts:   g.contacts(),
		dataset.Volunteers: g.volunteers(),
	}
}

func (g *SheetGenerator) donations() dataset.Payload {
	p := dataset.Payload{Headers: []string{
		dataset.FieldTimestamp, dataset.FieldFullName, dataset.FieldEmail, dataset.FieldPhone,
		dataset.FieldAmount, dataset.FieldTransactionID, dataset.FieldNote,
	}}
	for i, at := range g.timestamps() {
		name := g.name()
		p.Rows = append(p.Rows, []string{
			at,
			g.maybe(name),
			g.email(),
			g.phone(),
			fmt.Sprintf("%d", 100*(1+g.rng.Intn(50))),
			fmt.Sprintf("TXN%06d", i+1),
			g.maybe("Keep up the good work"),
		})
	}
	return p
}

func (g *SheetGenerator) contacts() dataset.Payload {
	p := dataset.Payload{Headers: []string{
		dataset.FieldTimestamp, dataset.FieldFullName, dataset.FieldEmail, dataset.FieldPhone,
		dataset.FieldSubject, dataset.FieldMessage,
	}}
	for _, at := range g.timestamps() {
		p.Rows = append(p.Rows, []string{
			at,
			g.maybe(g.name()),
			g.maybe(g.email()),
			g.maybe(g.phone()),
			pick(g.rng, subjects),
			"Hello, I would like to know more.",
		})
	}
	return p
}

func (g *SheetGenerator) volunteers() dataset.Payload {
	p := dataset.Payload{Headers: []string{
		dataset.FieldTimestamp, dataset.FieldFullName, dataset.FieldEmail, dataset.FieldPhone,
		dataset.FieldCity, dataset.FieldOccupation, dataset.FieldStatus,
	}}
	for _, at := range g.timestamps() {
		p.Rows = append(p.Rows, []string{
			at,
			g.maybe(g.name()),
			g.email(),
			g.phone(),
			pick(g.rng, cities),
			g.maybe(pick(g.rng, occupations)),
			g.maybe(pick(g.rng, statuses)),
		})
	}
	return p
}

// timestamps returns ascending timestamps, a few of them unparseable
func (g *SheetGenerator) timestamps() []string {
	rows := g.config.Rows
	if rows < 0 {
		rows = 0
	}
	step := g.config.EndDate.Sub(g.config.StartDate) / time.Duration(rows+1)

	out := make([]string, rows)
	for i := range out {
		if g.rng.Float64() < g.config.UnparseableRate {
			out[i] = "pending review"
			continue
		}
		at := g.config.StartDate.Add(step * time.Duration(i+1)).Add(time.Duration(g.rng.Intn(3600)) * time.Second)
		out[i] = at.Format("2006-01-02T15:04:05")
	}
	return out
}

func (g *SheetGenerator) name() string {
	return pick(g.rng, firstNames) + " " + pick(g.rng, lastNames)
}

func (g *SheetGenerator) email() string {
	return fmt.Sprintf("supporter%04d@example.org", g.rng.Intn(10000))
}

func (g *SheetGenerator) phone() string {
	return fmt.Sprintf("+91 9%09d", g.rng.Intn(1_000_000_000))
}

func (g *SheetGenerator) maybe(v string) string {
	if g.rng.Float64() < g.config.BlankRate {
		return ""
	}
	return v
}

func pick(rng *rand.Rand, options []string) string {
	return options[rng.Intn(len(options))]
}

// WriteWorkbook writes payloads to path as one sheet per dataset, in the
// layout the workbook source reads.
func WriteWorkbook(path string, payloads map[dataset.Name]dataset.Payload) error {
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for _, name := range dataset.Names() {
		p, ok := payloads[name]
		if !ok {
			continue
		}
		sheet := name.String()
		if first {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", sheet, err)
			}
			first = false
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", sheet, err)
		}

		rows := append([][]string{p.Headers}, p.Rows...)
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return err
			}
			values := make([]interface{}, len(row))
			for j, v := range row {
				values[j] = v
			}
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}
