package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetsync/adapters/sheets"
	"sheetsync/domain/aggregate"
	"sheetsync/domain/core"
	"sheetsync/domain/dataset"
	"sheetsync/domain/snapshot"
)

func mustDataset(t *testing.T, name dataset.Name, p dataset.Payload) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(name, p)
	require.NoError(t, err)
	return ds
}

func fullSnapshot(t *testing.T) *snapshot.Snapshot {
	t.Helper()
	return snapshot.New(core.NewSnapshotID(), core.Now(), []snapshot.Entry{
		snapshot.Loaded(mustDataset(t, dataset.Donations, donatePayload())),
		snapshot.Loaded(mustDataset(t, dataset.Contacts, contactPayload())),
		snapshot.Loaded(mustDataset(t, dataset.Volunteers, registerPayload())),
	})
}

func TestBuildDonations(t *testing.T) {
	view := BuildDonations(fullSnapshot(t))

	assert.Empty(t, view.Error)
	assert.Equal(t, "Donations", view.Label)
	assert.Equal(t, 2, view.DonorCount)
	assert.Equal(t, "100", view.TotalAmount.String())

	require.Len(t, view.Cards, 2)
	bob := view.Cards[0]
	assert.Equal(t, "Bob", bob.Name)
	assert.Equal(t, "60", bob.Amount)
	assert.Equal(t, "02 January 2024, 10:00 AM", bob.Date)
	assert.Equal(t, dataset.Unparseable, bob.Email)
	assert.Equal(t, dataset.Unparseable, bob.Note)
}

func TestBuildDonations_Fallbacks(t *testing.T) {
	ds := mustDataset(t, dataset.Donations, dataset.Payload{
		Headers: []string{"Full Name", "Amount", "Timestamp"},
		Rows:    [][]string{{"", "", "yesterday"}},
	})
	snap := snapshot.New(core.NewSnapshotID(), core.Now(), []snapshot.Entry{snapshot.Loaded(ds)})

	view := BuildDonations(snap)
	require.Len(t, view.Cards, 1)
	assert.Equal(t, "Anonymous", view.Cards[0].Name)
	assert.Equal(t, "0", view.Cards[0].Amount)
	assert.Equal(t, dataset.Unparseable, view.Cards[0].Date)
	assert.True(t, view.TotalAmount.IsZero())
}

func TestBuildContacts(t *testing.T) {
	view := BuildContacts(fullSnapshot(t))

	assert.Equal(t, 1, view.Total)
	require.Len(t, view.Cards, 1)
	card := view.Cards[0]
	assert.Equal(t, "Carol", card.Name)
	assert.Equal(t, "carol@example.org", card.Email)
	assert.Equal(t, "-", card.Phone)
	assert.Equal(t, "Visit", card.Subject)
	assert.Equal(t, "01 Feb 2024, 09:00 AM", card.Date)
}

func TestBuildVolunteers(t *testing.T) {
	view := BuildVolunteers(fullSnapshot(t))

	assert.Equal(t, 3, view.Total)
	// "pending" matches case-insensitively; an empty status is not counted
	assert.Equal(t, 1, view.Pending)

	require.Len(t, view.Cards, 3)
	newest := view.Cards[0]
	assert.Equal(t, "Unnamed", newest.Name)
	assert.Equal(t, "Pending", newest.Status)
	assert.Equal(t, "Goa", newest.City)
	assert.Equal(t, "-", newest.Occupation)
	assert.Equal(t, []DetailField{
		{Header: "Full Name", Value: dataset.Unparseable},
		{Header: "City", Value: "Goa"},
		{Header: "Status", Value: dataset.Unparseable},
		{Header: "Timestamp", Value: "2024-03-03T08:00:00"},
	}, newest.Details)
}

func TestBuildDashboard_PartialFailure(t *testing.T) {
	rows := make([][]string, 0, 7)
	for i := 1; i <= 7; i++ {
		rows = append(rows, []string{fmt.Sprintf("Donor %d", i), "10", fmt.Sprintf("2024-01-0%dT10:00:00", i)})
	}
	donations := mustDataset(t, dataset.Donations, dataset.Payload{
		Headers: []string{"Full Name", "Amount", "Timestamp"},
		Rows:    rows,
	})
	snap := snapshot.New(core.NewSnapshotID(), core.Now(), []snapshot.Entry{
		snapshot.Loaded(donations),
		snapshot.Failed(dataset.Contacts, snapshot.Failure{Kind: snapshot.KindMalformed, Message: "not json"}),
		snapshot.Loaded(mustDataset(t, dataset.Volunteers, registerPayload())),
	})

	view := BuildDashboard(snap)
	assert.False(t, view.AllFailed)
	assert.Equal(t, snap.LoadedAt, view.LoadedAt)

	require.Len(t, view.Donations.Cards, RecentLimit)
	assert.Equal(t, "Donor 7", view.Donations.Cards[0].Name)
	assert.Equal(t, "07 Jan 2024, 10:00 AM", view.Donations.Cards[0].Date)
	assert.Equal(t, 7, view.Donations.DonorCount)
	assert.Equal(t, "70", view.Donations.TotalAmount.String())

	assert.Contains(t, view.Contacts.Error, "not json")
	assert.Empty(t, view.Contacts.Cards)

	assert.Equal(t, "Unknown", view.Volunteers.Cards[0].Name)
	assert.Equal(t, 1, view.Volunteers.Pending)
}

func TestBuildDashboard_NotLoaded(t *testing.T) {
	view := BuildDashboard(nil)
	assert.False(t, view.AllFailed)
	assert.Equal(t, core.ErrNotLoaded.Error(), view.Donations.Error)
	assert.Empty(t, view.Volunteers.Cards)
}

func TestSummarize(t *testing.T) {
	snap := snapshot.New(core.NewSnapshotID(), core.Now(), []snapshot.Entry{
		snapshot.Loaded(mustDataset(t, dataset.Donations, donatePayload())),
		snapshot.Failed(dataset.Contacts, snapshot.Failure{Kind: snapshot.KindNetwork, Message: "timeout"}),
		snapshot.Loaded(mustDataset(t, dataset.Volunteers, registerPayload())),
	})

	got := Summarize(snap)
	require.Len(t, got, 3)
	assert.Equal(t, DatasetSummary{Name: dataset.Donations, Label: "Donations", Rows: 2, Amount: 100}, got[0])
	assert.Contains(t, got[1].Error, "timeout")
	assert.Equal(t, 1, got[2].Pending)
	assert.Nil(t, Summarize(nil))
}

// End to end: script endpoint -> fetcher -> loader -> controller -> views
func TestDonateScenario_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("sheet") != "donate" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"headers":["Full Name","Amount","Timestamp"],` +
			`"data":[["Alice","40","2024-01-01T10:00:00"],["Bob","60","2024-01-02T10:00:00"]]}`))
	}))
	defer srv.Close()

	client := sheets.NewClient(sheets.Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	defer client.Close()

	loader := NewMultiDatasetLoader(NewDatasetFetcher(client, quietLogger()), LoaderConfig{}, quietLogger())
	controller, err := NewRefreshController(loader, []dataset.Name{dataset.Donations}, quietLogger())
	require.NoError(t, err)

	snap, err := controller.Mount(context.Background())
	require.NoError(t, err)

	ds, err := snap.Dataset(dataset.Donations)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, "Bob", ds.Rows[0][0])
	assert.Equal(t, "Alice", ds.Rows[1][0])
	assert.Equal(t, 100.0, aggregate.SumNumeric(ds, dataset.FieldAmount))

	view := BuildDonations(controller.Current().Snapshot)
	assert.Equal(t, "100", view.TotalAmount.String())

	_, err = snap.Dataset(dataset.Contacts)
	assert.True(t, errors.Is(err, core.ErrNotLoaded))
}
