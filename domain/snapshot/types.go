package snapshot

import (
	"encoding/json"

	"sheetsync/domain/core"
	"sheetsync/domain/dataset"
)

// ErrorKind classifies why a dataset slot failed
type ErrorKind string

const (
	KindNetwork   ErrorKind = "network"
	KindMalformed ErrorKind = "malformed"
	KindInvalid   ErrorKind = "invalid"
	KindUnknown   ErrorKind = "unknown"
)

// Failure is the marker stored in place of a dataset that could not be loaded
type Failure struct {
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

// Entry is one dataset slot: exactly one of Dataset or Failure is set
type Entry struct {
	Name    dataset.Name     `json:"name"`
	Dataset *dataset.Dataset `json:"dataset,omitempty"`
	Failure *Failure         `json:"failure,omitempty"`
}

// Loaded returns an entry for a successfully fetched dataset
func Loaded(ds *dataset.Dataset) Entry {
	return Entry{Name: ds.Name, Dataset: ds}
}

// Failed returns a failure marker entry
func Failed(name dataset.Name, f Failure) Entry {
	return Entry{Name: name, Failure: &f}
}

// OK reports whether the slot holds a dataset
func (e Entry) OK() bool {
	return e.Dataset != nil && e.Failure == nil
}

// Err returns the failure as an error, nil for loaded slots
func (e Entry) Err() error {
	if e.OK() {
		return nil
	}
	if e.Failure == nil {
		return core.NewDatasetFailedError(e.Name.String(), "empty slot")
	}
	return core.NewDatasetFailedError(e.Name.String(), e.Failure.Message)
}

// Snapshot is the outcome of one load cycle. Every dataset in it shares LoadedAt.
// A snapshot is immutable; a reload produces a new one.
type Snapshot struct {
	ID       core.SnapshotID
	LoadedAt core.Timestamp

	order   []dataset.Name
	entries map[dataset.Name]Entry
}

// New assembles a snapshot from settled entries, preserving their order
func New(id core.SnapshotID, loadedAt core.Timestamp, entries []Entry) *Snapshot {
	s := &Snapshot{
		ID:       id,
		LoadedAt: loadedAt,
		order:    make([]dataset.Name, 0, len(entries)),
		entries:  make(map[dataset.Name]Entry, len(entries)),
	}
	for _, e := range entries {
		if _, dup := s.entries[e.Name]; !dup {
			s.order = append(s.order, e.Name)
		}
		s.entries[e.Name] = e
	}
	return s
}

// Names returns the dataset names in load order
func (s *Snapshot) Names() []dataset.Name {
	if s == nil {
		return nil
	}
	return append([]dataset.Name(nil), s.order...)
}

// Entry returns the slot for name
func (s *Snapshot) Entry(name dataset.Name) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	e, ok := s.entries[name]
	return e, ok
}

// Entries returns all slots in load order
func (s *Snapshot) Entries() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.entries[n])
	}
	return out
}

// Dataset returns the loaded dataset for name. It fails with ErrNotLoaded when
// name was not part of the load and ErrDatasetFailed when its fetch failed.
func (s *Snapshot) Dataset(name dataset.Name) (*dataset.Dataset, error) {
	e, ok := s.Entry(name)
	if !ok {
		return nil, core.ErrNotLoaded
	}
	if err := e.Err(); err != nil {
		return nil, err
	}
	return e.Dataset, nil
}

// Succeeded counts loaded slots
func (s *Snapshot) Succeeded() int {
	n := 0
	for _, e := range s.Entries() {
		if e.OK() {
			n++
		}
	}
	return n
}

// Failures returns the failed slots in load order
func (s *Snapshot) Failures() []Entry {
	var out []Entry
	for _, e := range s.Entries() {
		if !e.OK() {
			out = append(out, e)
		}
	}
	return out
}

// AllFailed reports the degenerate case where no dataset could be loaded
func (s *Snapshot) AllFailed() bool {
	return s != nil && len(s.order) > 0 && s.Succeeded() == 0
}

type snapshotJSON struct {
	ID       core.SnapshotID `json:"id"`
	LoadedAt core.Timestamp  `json:"loaded_at"`
	Entries  []Entry         `json:"entries"`
}

func (s *Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{ID: s.ID, LoadedAt: s.LoadedAt, Entries: s.Entries()})
}
