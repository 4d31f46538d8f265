package app

import (
	"github.com/shopspring/decimal"

	"sheetsync/domain/aggregate"
	"sheetsync/domain/core"
	"sheetsync/domain/dataset"
	"sheetsync/domain/snapshot"
)

// RecentLimit is the number of records shown per dashboard section
const RecentLimit = 5

// Section carries the error text for a dataset that could not be shown
type Section struct {
	Name  dataset.Name `json:"name"`
	Label string       `json:"label"`
	Error string       `json:"error,omitempty"`
}

// DonationCard is one donation list entry with its detail view
type DonationCard struct {
	Name          string `json:"name"`
	Amount        string `json:"amount"`
	Date          string `json:"date"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	TransactionID string `json:"transaction_id"`
	Note          string `json:"note"`
}

// ContactCard is one contact form submission
type ContactCard struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	Date    string `json:"date"`
}

// DetailField is a header/value pair of a volunteer detail view
type DetailField struct {
	Header string `json:"header"`
	Value  string `json:"value"`
}

// VolunteerCard is one volunteer registration
type VolunteerCard struct {
	Name       string        `json:"name"`
	Status     string        `json:"status"`
	City       string        `json:"city"`
	Occupation string        `json:"occupation"`
	Date       string        `json:"date"`
	Details    []DetailField `json:"details"`
}

// DonationsView backs the donations screen
type DonationsView struct {
	Section
	Cards       []DonationCard  `json:"cards"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	DonorCount  int             `json:"donor_count"`
}

// ContactsView backs the contacts screen
type ContactsView struct {
	Section
	Cards []ContactCard `json:"cards"`
	Total int           `json:"total"`
}

// VolunteersView backs the volunteers screen
type VolunteersView struct {
	Section
	Cards   []VolunteerCard `json:"cards"`
	Total   int             `json:"total"`
	Pending int             `json:"pending"`
}

// DashboardView shows the most recent records of every dataset
type DashboardView struct {
	LoadedAt   core.Timestamp `json:"loaded_at"`
	Donations  DonationsView  `json:"donations"`
	Contacts   ContactsView   `json:"contacts"`
	Volunteers VolunteersView `json:"volunteers"`
	AllFailed  bool           `json:"all_failed"`
}

// DatasetSummary is one line of the CLI summary
type DatasetSummary struct {
	Name    dataset.Name `json:"name"`
	Label   string       `json:"label"`
	Rows    int          `json:"rows"`
	Amount  float64      `json:"amount,omitempty"`
	Pending int          `json:"pending,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// lookup fetches a dataset from snap and fills in the section
func lookup(snap *snapshot.Snapshot, name dataset.Name) (*dataset.Dataset, Section) {
	sec := Section{Name: name, Label: name.Label()}
	if snap == nil {
		sec.Error = core.ErrNotLoaded.Error()
		return nil, sec
	}
	ds, err := snap.Dataset(name)
	if err != nil {
		sec.Error = err.Error()
		return nil, sec
	}
	return ds, sec
}

func donationCards(ds *dataset.Dataset, layout string) []DonationCard {
	cols := dataset.ResolveColumns(ds)
	cards := make([]DonationCard, 0, ds.Len())
	for _, row := range rowsOf(ds) {
		cards = append(cards, DonationCard{
			Name:          cols.Read(row, dataset.FieldFullName, "Anonymous"),
			Amount:        cols.Read(row, dataset.FieldAmount, "0"),
			Date:          cols.ReadTimestamp(row, dataset.FieldTimestamp, layout),
			Email:         cols.Read(row, dataset.FieldEmail, dataset.Unparseable),
			Phone:         cols.Read(row, dataset.FieldPhone, dataset.Unparseable),
			TransactionID: cols.Read(row, dataset.FieldTransactionID, dataset.Unparseable),
			Note:          cols.Read(row, dataset.FieldNote, dataset.Unparseable),
		})
	}
	return cards
}

func contactCards(ds *dataset.Dataset) []ContactCard {
	cols := dataset.ResolveColumns(ds)
	cards := make([]ContactCard, 0, ds.Len())
	for _, row := range rowsOf(ds) {
		cards = append(cards, ContactCard{
			Name:    cols.Read(row, dataset.FieldFullName, "Unknown"),
			Email:   cols.Read(row, dataset.FieldEmail, "-"),
			Phone:   cols.Read(row, dataset.FieldPhone, "-"),
			Subject: cols.Read(row, dataset.FieldSubject, ""),
			Message: cols.Read(row, dataset.FieldMessage, ""),
			Date:    cols.ReadTimestamp(row, dataset.FieldTimestamp, dataset.DisplayLayout),
		})
	}
	return cards
}

func volunteerCards(ds *dataset.Dataset, unnamed string) []VolunteerCard {
	cols := dataset.ResolveColumns(ds)
	cards := make([]VolunteerCard, 0, ds.Len())
	for _, row := range rowsOf(ds) {
		details := make([]DetailField, len(ds.Headers))
		for i, h := range ds.Headers {
			details[i] = DetailField{Header: h, Value: cols.Read(row, h, dataset.Unparseable)}
		}
		cards = append(cards, VolunteerCard{
			Name:       cols.Read(row, dataset.FieldFullName, unnamed),
			Status:     cols.Read(row, dataset.FieldStatus, "Pending"),
			City:       cols.Read(row, dataset.FieldCity, "-"),
			Occupation: cols.Read(row, dataset.FieldOccupation, "-"),
			Date:       cols.ReadTimestamp(row, dataset.FieldTimestamp, dataset.DisplayLayout),
			Details:    details,
		})
	}
	return cards
}

func rowsOf(ds *dataset.Dataset) []dataset.Row {
	if ds == nil {
		return nil
	}
	return ds.Rows
}

// BuildDonations builds the donations screen. Totals cover every row.
func BuildDonations(snap *snapshot.Snapshot) DonationsView {
	ds, sec := lookup(snap, dataset.Donations)
	return DonationsView{
		Section:     sec,
		Cards:       donationCards(ds, dataset.LongDisplayLayout),
		TotalAmount: aggregate.SumDecimal(ds, dataset.FieldAmount),
		DonorCount:  aggregate.Count(ds),
	}
}

// BuildContacts builds the contacts screen
func BuildContacts(snap *snapshot.Snapshot) ContactsView {
	ds, sec := lookup(snap, dataset.Contacts)
	return ContactsView{
		Section: sec,
		Cards:   contactCards(ds),
		Total:   aggregate.Count(ds),
	}
}

// BuildVolunteers builds the volunteers screen
func BuildVolunteers(snap *snapshot.Snapshot) VolunteersView {
	ds, sec := lookup(snap, dataset.Volunteers)
	return VolunteersView{
		Section: sec,
		Cards:   volunteerCards(ds, "Unnamed"),
		Total:   aggregate.Count(ds),
		Pending: aggregate.CountWhere(ds, dataset.FieldStatus, aggregate.EqualFold("pending")),
	}
}

// BuildDashboard builds the dashboard from the RecentLimit newest records of
// each dataset. Totals still cover the whole dataset.
func BuildDashboard(snap *snapshot.Snapshot) DashboardView {
	view := DashboardView{AllFailed: snap.AllFailed()}
	if snap != nil {
		view.LoadedAt = snap.LoadedAt
	}

	donations, sec := lookup(snap, dataset.Donations)
	view.Donations = DonationsView{
		Section:     sec,
		Cards:       donationCards(donations.Head(RecentLimit), dataset.DisplayLayout),
		TotalAmount: aggregate.SumDecimal(donations, dataset.FieldAmount),
		DonorCount:  aggregate.Count(donations),
	}

	contacts, sec := lookup(snap, dataset.Contacts)
	view.Contacts = ContactsView{
		Section: sec,
		Cards:   contactCards(contacts.Head(RecentLimit)),
		Total:   aggregate.Count(contacts),
	}

	volunteers, sec := lookup(snap, dataset.Volunteers)
	view.Volunteers = VolunteersView{
		Section: sec,
		Cards:   volunteerCards(volunteers.Head(RecentLimit), "Unknown"),
		Total:   aggregate.Count(volunteers),
		Pending: aggregate.CountWhere(volunteers, dataset.FieldStatus, aggregate.EqualFold("pending")),
	}
	return view
}

// Summarize reports row counts and headline figures for every entry of snap
func Summarize(snap *snapshot.Snapshot) []DatasetSummary {
	if snap == nil {
		return nil
	}
	out := make([]DatasetSummary, 0, len(snap.Entries()))
	for _, e := range snap.Entries() {
		s := DatasetSummary{Name: e.Name, Label: e.Name.Label()}
		if !e.OK() {
			s.Error = e.Err().Error()
			out = append(out, s)
			continue
		}
		s.Rows = aggregate.Count(e.Dataset)
		switch e.Name {
		case dataset.Donations:
			s.Amount = aggregate.SumNumeric(e.Dataset, dataset.FieldAmount)
		case dataset.Volunteers:
			s.Pending = aggregate.CountWhere(e.Dataset, dataset.FieldStatus, aggregate.EqualFold("pending"))
		}
		out = append(out, s)
	}
	return out
}
