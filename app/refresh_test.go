package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sheetsync/domain/core"
	"sheetsync/domain/dataset"
	"sheetsync/domain/snapshot"
)

// MockSnapshotLoader is a testify mock of ports.SnapshotLoader
type MockSnapshotLoader struct {
	mock.Mock
}

func (m *MockSnapshotLoader) LoadAll(ctx context.Context, names []dataset.Name) (*snapshot.Snapshot, error) {
	args := m.Called(ctx, names)
	snap, _ := args.Get(0).(*snapshot.Snapshot)
	return snap, args.Error(1)
}

// gatedSource counts fetches and blocks each one until release is closed
type gatedSource struct {
	fetches atomic.Int32
	started chan struct{}
	release chan struct{}
}

func newGatedSource() *gatedSource {
	return &gatedSource{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (g *gatedSource) FetchDataset(ctx context.Context, name dataset.Name) (dataset.Payload, error) {
	g.fetches.Add(1)
	g.started <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return dataset.Payload{}, ctx.Err()
	}
	return payloads()[name], nil
}

func newGatedController(t *testing.T, src *gatedSource) *RefreshController {
	t.Helper()
	loader := NewMultiDatasetLoader(NewDatasetFetcher(src, quietLogger()), LoaderConfig{FetchTimeout: 5 * time.Second}, quietLogger())
	c, err := NewRefreshController(loader, dataset.Names(), quietLogger())
	require.NoError(t, err)
	return c
}

func waitStarted(t *testing.T, src *gatedSource, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-src.started:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d fetches started", i, n)
		}
	}
}

func TestRefreshController_DropsRequestsWhileLoading(t *testing.T) {
	src := newGatedSource()
	c := newGatedController(t, src)
	assert.Equal(t, StateIdle, c.Current().State)

	done := make(chan error, 1)
	go func() {
		_, err := c.Mount(context.Background())
		done <- err
	}()
	waitStarted(t, src, 3)

	assert.Equal(t, StateLoading, c.Current().State)
	assert.Nil(t, c.Current().Snapshot)

	_, err := c.Refresh(context.Background())
	assert.ErrorIs(t, err, core.ErrLoadInFlight)
	_, err = c.Mount(context.Background())
	assert.ErrorIs(t, err, core.ErrLoadInFlight)

	close(src.release)
	require.NoError(t, <-done)

	// one cycle of three datasets; the dropped requests fetched nothing
	assert.Equal(t, int32(3), src.fetches.Load())

	status := c.Current()
	assert.Equal(t, StateLoaded, status.State)
	require.NotNil(t, status.Snapshot)
	assert.Equal(t, 3, status.Snapshot.Succeeded())
}

func TestRefreshController_RefreshKeepsPreviousSnapshotVisible(t *testing.T) {
	src := newGatedSource()
	c := newGatedController(t, src)
	close(src.release)

	first, err := c.Mount(context.Background())
	require.NoError(t, err)
	waitStarted(t, src, 3)

	gate := newGatedSource()
	c.loader = NewMultiDatasetLoader(NewDatasetFetcher(gate, quietLogger()), LoaderConfig{}, quietLogger())

	done := make(chan *snapshot.Snapshot, 1)
	go func() {
		snap, _ := c.Refresh(context.Background())
		done <- snap
	}()
	waitStarted(t, gate, 3)

	status := c.Current()
	assert.Equal(t, StateRefreshing, status.State)
	assert.Same(t, first, status.Snapshot)

	close(gate.release)
	second := <-done
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Same(t, second, c.Current().Snapshot)
	assert.Equal(t, StateLoaded, c.Current().State)
}

func TestRefreshController_AllFailedAndLoaderError(t *testing.T) {
	failedSnap := snapshot.New(core.NewSnapshotID(), core.Now(), []snapshot.Entry{
		snapshot.Failed(dataset.Donations, snapshot.Failure{Kind: snapshot.KindNetwork, Message: "offline", Retryable: true}),
	})

	loader := new(MockSnapshotLoader)
	loader.On("LoadAll", mock.Anything, []dataset.Name{dataset.Donations}).Return(failedSnap, nil).Once()
	loader.On("LoadAll", mock.Anything, []dataset.Name{dataset.Donations}).Return(nil, errors.New("boom")).Once()

	c, err := NewRefreshController(loader, []dataset.Name{dataset.Donations}, quietLogger())
	require.NoError(t, err)

	snap, err := c.Mount(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.AllFailed())
	assert.Equal(t, StateFailed, c.Current().State)
	assert.Same(t, failedSnap, c.Current().Snapshot)

	_, err = c.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, c.Current().State)
	assert.Same(t, failedSnap, c.Current().Snapshot)

	loader.AssertExpectations(t)
}

func TestRefreshController_Subscribe(t *testing.T) {
	src := newGatedSource()
	close(src.release)
	c := newGatedController(t, src)

	updates, cancel := c.Subscribe()
	_, err := c.Mount(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateLoading, (<-updates).State)
	loaded := <-updates
	assert.Equal(t, StateLoaded, loaded.State)
	assert.NotNil(t, loaded.Snapshot)

	cancel()
	cancel()
	_, open := <-updates
	assert.False(t, open)
}

func TestNewRefreshController_RejectsBadNames(t *testing.T) {
	loader := new(MockSnapshotLoader)

	_, err := NewRefreshController(loader, nil, quietLogger())
	assert.ErrorIs(t, err, core.ErrNoDatasets)

	_, err = NewRefreshController(loader, []dataset.Name{"volunteers"}, quietLogger())
	assert.ErrorIs(t, err, core.ErrUnknownDataset)
}
