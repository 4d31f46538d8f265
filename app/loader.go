package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"sheetsync/domain/core"
	"sheetsync/domain/dataset"
	"sheetsync/domain/snapshot"
	"sheetsync/internal"
	apperrors "sheetsync/internal/errors"
	"sheetsync/ports"
)

// DefaultFetchTimeout bounds a single dataset fetch
const DefaultFetchTimeout = 15 * time.Second

// LoaderConfig tunes the multi-dataset loader
type LoaderConfig struct {
	FetchTimeout   time.Duration // per dataset; 0 means DefaultFetchTimeout
	MaxConcurrency int           // 0 means one goroutine per dataset
}

// MultiDatasetLoader fetches several datasets concurrently and settles every
// one of them before assembling a snapshot.
type MultiDatasetLoader struct {
	fetcher ports.DatasetFetcher
	config  LoaderConfig
	clock   core.Clock
	logger  *internal.Logger
}

// LoaderOption customizes a MultiDatasetLoader
type LoaderOption func(*MultiDatasetLoader)

// WithClock pins the clock used for LoadedAt
func WithClock(clock core.Clock) LoaderOption {
	return func(l *MultiDatasetLoader) { l.clock = clock }
}

// NewMultiDatasetLoader creates a loader over fetcher
func NewMultiDatasetLoader(fetcher ports.DatasetFetcher, config LoaderConfig, logger *internal.Logger, opts ...LoaderOption) *MultiDatasetLoader {
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = DefaultFetchTimeout
	}
	l := &MultiDatasetLoader{
		fetcher: fetcher,
		config:  config,
		clock:   core.SystemClock,
		logger:  logger.Named("loader"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadAll fetches every name concurrently. A failing dataset becomes a
// failure marker in the snapshot; LoadAll itself only fails for an empty or
// invalid name list. Caller cancellation does not abort in-flight fetches;
// each fetch is bounded by the configured timeout instead.
func (l *MultiDatasetLoader) LoadAll(ctx context.Context, names []dataset.Name) (*snapshot.Snapshot, error) {
	unique, err := validateNames(names)
	if err != nil {
		return nil, err
	}

	base := context.WithoutCancel(ctx)
	entries := make([]snapshot.Entry, len(unique))

	var g errgroup.Group
	if l.config.MaxConcurrency > 0 {
		g.SetLimit(l.config.MaxConcurrency)
	}
	start := time.Now()
	for i, name := range unique {
		i, name := i, name
		g.Go(func() error {
			entries[i] = l.loadOne(base, name)
			return nil
		})
	}
	_ = g.Wait()

	snap := snapshot.New(core.NewSnapshotID(), l.clock.Stamp(), entries)
	l.logger.Info("snapshot %s: %d/%d datasets loaded in %s", snap.ID, snap.Succeeded(), len(entries), time.Since(start))
	return snap, nil
}

type fetchResult struct {
	ds  *dataset.Dataset
	err error
}

// loadOne bounds a single fetch by the configured timeout. The fetch runs in
// its own goroutine so a source that ignores ctx cannot hold up the batch; a
// late result is dropped into the buffered channel and discarded.
func (l *MultiDatasetLoader) loadOne(ctx context.Context, name dataset.Name) snapshot.Entry {
	ctx, cancel := context.WithTimeout(ctx, l.config.FetchTimeout)
	defer cancel()

	done := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("%s: fetch panicked: %v", name, r)
				done <- fetchResult{err: fmt.Errorf("fetch panicked: %v", r)}
			}
		}()
		ds, err := l.fetcher.Fetch(ctx, name)
		done <- fetchResult{ds: ds, err: err}
	}()

	var res fetchResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = apperrors.NetworkError(name.String(), fmt.Errorf("no response within %s: %w", l.config.FetchTimeout, ctx.Err()))
	}

	if res.err != nil {
		failure := classify(res.err)
		l.logger.Warn("%s: %s failure: %v", name, failure.Kind, res.err)
		return snapshot.Failed(name, failure)
	}
	return snapshot.Loaded(res.ds)
}

func validateNames(names []dataset.Name) ([]dataset.Name, error) {
	if len(names) == 0 {
		return nil, apperrors.WithCode(apperrors.CodeInvalidInput, core.ErrNoDatasets)
	}
	raw := make([]string, len(names))
	for i, n := range names {
		raw[i] = n.String()
	}
	unique, err := dataset.ParseNames(raw)
	if err != nil {
		return nil, apperrors.WithCode(apperrors.CodeInvalidInput, err)
	}
	return unique, nil
}

// classify maps a fetch error onto the failure marker kinds
func classify(err error) snapshot.Failure {
	f := snapshot.Failure{Message: err.Error()}
	switch apperrors.GetCode(err) {
	case apperrors.CodeNetwork:
		f.Kind, f.Retryable = snapshot.KindNetwork, true
	case apperrors.CodeMalformedResponse:
		f.Kind = snapshot.KindMalformed
	case apperrors.CodeInvalidInput:
		f.Kind = snapshot.KindInvalid
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			f.Kind, f.Retryable = snapshot.KindNetwork, true
		} else {
			f.Kind = snapshot.KindUnknown
		}
	}
	return f
}
