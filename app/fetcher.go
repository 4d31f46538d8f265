package app

import (
	"context"
	"time"

	"sheetsync/domain/core"
	"sheetsync/domain/dataset"
	"sheetsync/internal"
	apperrors "sheetsync/internal/errors"
	"sheetsync/ports"
)

// DatasetFetcher performs one uncached round trip per call and returns a
// validated dataset sorted newest first.
type DatasetFetcher struct {
	source ports.DatasetSource
	logger *internal.Logger
}

// NewDatasetFetcher creates a fetcher over source
func NewDatasetFetcher(source ports.DatasetSource, logger *internal.Logger) *DatasetFetcher {
	return &DatasetFetcher{
		source: source,
		logger: logger.Named("fetcher"),
	}
}

// Fetch loads name. Unknown names fail with INVALID_INPUT before any I/O;
// transport problems surface as NETWORK_ERROR and shape violations as
// MALFORMED_RESPONSE.
func (f *DatasetFetcher) Fetch(ctx context.Context, name dataset.Name) (*dataset.Dataset, error) {
	if !name.Valid() {
		return nil, apperrors.WithCode(apperrors.CodeInvalidInput, core.NewUnknownDatasetError(name.String()))
	}

	start := time.Now()
	payload, err := f.source.FetchDataset(ctx, name)
	if err != nil {
		if !apperrors.IsAppError(err) {
			// uncoded source errors are transport failures
			err = apperrors.NetworkError(name.String(), err)
		}
		return nil, err
	}

	ds, err := dataset.New(name, payload)
	switch {
	case core.IsShapeError(err):
		return nil, apperrors.MalformedResponse(name.String(), err)
	case err != nil:
		return nil, apperrors.Wrapf(err, "build %s", name)
	}

	f.logger.Debug("fetched %s: %d rows, %d columns in %s", name, ds.Len(), len(ds.Headers), time.Since(start))
	return ds, nil
}
