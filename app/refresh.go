package app

import (
	"context"
	"sync"

	"sheetsync/domain/core"
	"sheetsync/domain/dataset"
	"sheetsync/domain/snapshot"
	"sheetsync/internal"
	apperrors "sheetsync/internal/errors"
	"sheetsync/ports"
)

// State is the refresh controller lifecycle state
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateRefreshing State = "refreshing"
	StateLoaded     State = "loaded"
	StateFailed     State = "failed"
)

// Busy reports whether a load is in flight
func (s State) Busy() bool {
	return s == StateLoading || s == StateRefreshing
}

// Status is a consistent view of the controller
type Status struct {
	State    State              `json:"state"`
	Snapshot *snapshot.Snapshot `json:"snapshot,omitempty"`
}

// RefreshController owns the current snapshot and allows one load at a time.
// A request arriving while a load is in flight is dropped with ErrLoadInFlight.
type RefreshController struct {
	loader ports.SnapshotLoader
	names  []dataset.Name
	logger *internal.Logger

	mu          sync.RWMutex
	state       State
	snap        *snapshot.Snapshot
	subscribers map[int]chan Status
	nextSubID   int
}

// NewRefreshController creates a controller loading names on every cycle
func NewRefreshController(loader ports.SnapshotLoader, names []dataset.Name, logger *internal.Logger) (*RefreshController, error) {
	unique, err := validateNames(names)
	if err != nil {
		return nil, apperrors.Wrap(err, "refresh controller datasets")
	}
	return &RefreshController{
		loader:      loader,
		names:       unique,
		logger:      logger.Named("refresh"),
		state:       StateIdle,
		subscribers: make(map[int]chan Status),
	}, nil
}

// Names returns the datasets loaded on each cycle
func (c *RefreshController) Names() []dataset.Name {
	return append([]dataset.Name(nil), c.names...)
}

// Current returns the state and the latest settled snapshot
func (c *RefreshController) Current() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{State: c.state, Snapshot: c.snap}
}

// Mount performs the initial load for a screen. Mounting again after the
// first load reloads like a refresh.
func (c *RefreshController) Mount(ctx context.Context) (*snapshot.Snapshot, error) {
	return c.run(ctx, "mount")
}

// Refresh reloads every dataset on explicit user request
func (c *RefreshController) Refresh(ctx context.Context) (*snapshot.Snapshot, error) {
	return c.run(ctx, "refresh")
}

func (c *RefreshController) run(ctx context.Context, trigger string) (*snapshot.Snapshot, error) {
	c.mu.Lock()
	if c.state.Busy() {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("%s dropped: %s in progress", trigger, state)
		return nil, core.ErrLoadInFlight
	}
	if c.snap == nil {
		c.state = StateLoading
	} else {
		c.state = StateRefreshing
	}
	status := Status{State: c.state, Snapshot: c.snap}
	c.mu.Unlock()

	c.logger.Info("%s: %s", trigger, status.State)
	c.publish(status)

	snap, err := c.loader.LoadAll(ctx, c.names)

	c.mu.Lock()
	switch {
	case err != nil:
		c.state = StateFailed
	case snap.AllFailed():
		c.snap = snap
		c.state = StateFailed
	default:
		c.snap = snap
		c.state = StateLoaded
	}
	status = Status{State: c.state, Snapshot: c.snap}
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("%s failed: %v", trigger, err)
	} else {
		c.logger.Info("%s settled: %s (%d/%d datasets)", trigger, status.State, snap.Succeeded(), len(c.names))
	}
	c.publish(status)
	return snap, err
}

// Subscribe returns a channel receiving every state change and a function
// to stop receiving. Slow subscribers miss updates rather than block loads.
func (c *RefreshController) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 4)

	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
			close(ch)
		})
	}
}

func (c *RefreshController) publish(status Status) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ch := range c.subscribers {
		select {
		case ch <- status:
		default:
		}
	}
}
