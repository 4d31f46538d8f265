package snapshot

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetsync/domain/core"
	"sheetsync/domain/dataset"
)

func mustDataset(t *testing.T, name dataset.Name) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(name, dataset.Payload{
		Headers: []string{"Full Name", "Timestamp"},
		Rows:    [][]string{{"Ravi", "2024-01-01"}},
	})
	require.NoError(t, err)
	return ds
}

func TestSnapshot_MixedOutcomes(t *testing.T) {
	at := core.NewTimestamp(time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC))
	snap := New(core.NewSnapshotID(), at, []Entry{
		Loaded(mustDataset(t, dataset.Donations)),
		Failed(dataset.Contacts, Failure{Kind: KindNetwork, Message: "dial tcp: timeout", Retryable: true}),
		Loaded(mustDataset(t, dataset.Volunteers)),
	})

	assert.Equal(t, []dataset.Name{dataset.Donations, dataset.Contacts, dataset.Volunteers}, snap.Names())
	assert.Equal(t, 2, snap.Succeeded())
	assert.False(t, snap.AllFailed())

	failures := snap.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, dataset.Contacts, failures[0].Name)
	assert.Equal(t, KindNetwork, failures[0].Failure.Kind)

	ds, err := snap.Dataset(dataset.Donations)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())

	_, err = snap.Dataset(dataset.Contacts)
	assert.ErrorIs(t, err, core.ErrDatasetFailed)
}

func TestSnapshot_NotLoaded(t *testing.T) {
	snap := New(core.NewSnapshotID(), core.Now(), []Entry{Loaded(mustDataset(t, dataset.Donations))})

	_, err := snap.Dataset(dataset.Volunteers)
	assert.ErrorIs(t, err, core.ErrNotLoaded)

	var nilSnap *Snapshot
	_, ok := nilSnap.Entry(dataset.Donations)
	assert.False(t, ok)
	assert.False(t, nilSnap.AllFailed())
}

func TestSnapshot_AllFailed(t *testing.T) {
	snap := New(core.NewSnapshotID(), core.Now(), []Entry{
		Failed(dataset.Donations, Failure{Kind: KindMalformed, Message: "bad json"}),
		Failed(dataset.Contacts, Failure{Kind: KindNetwork, Message: "refused"}),
	})
	assert.True(t, snap.AllFailed())
	assert.Equal(t, 0, snap.Succeeded())
}

func TestSnapshot_JSON(t *testing.T) {
	at := core.NewTimestamp(time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC))
	snap := New(core.SnapshotID("snap-1"), at, []Entry{
		Loaded(mustDataset(t, dataset.Donations)),
		Failed(dataset.Contacts, Failure{Kind: KindNetwork, Message: "refused", Retryable: true}),
	})

	raw, err := json.Marshal(snap)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "snap-1", decoded["id"])
	assert.Equal(t, "2024-04-01T08:00:00Z", decoded["loaded_at"])

	entries := decoded["entries"].([]any)
	require.Len(t, entries, 2)
	failed := entries[1].(map[string]any)
	assert.Equal(t, "contact", failed["name"])
	assert.Nil(t, failed["dataset"])
	assert.Equal(t, "network", failed["failure"].(map[string]any)["kind"])
}
