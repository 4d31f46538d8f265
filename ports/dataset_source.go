package ports

import (
	"context"
	"io"

	"sheetsync/domain/dataset"
	"sheetsync/domain/snapshot"
)

// DatasetSource is the remote tabular store: one round trip returns every row
// of a named sheet. Implementations return errors coded NETWORK_ERROR or
// MALFORMED_RESPONSE.
type DatasetSource interface {
	FetchDataset(ctx context.Context, name dataset.Name) (dataset.Payload, error)
}

// DatasetFetcher turns a named sheet into a validated, sorted Dataset
type DatasetFetcher interface {
	Fetch(ctx context.Context, name dataset.Name) (*dataset.Dataset, error)
}

// SnapshotLoader fetches several datasets at once and never fails on a single dataset
type SnapshotLoader interface {
	LoadAll(ctx context.Context, names []dataset.Name) (*snapshot.Snapshot, error)
}

// SnapshotExporter writes a snapshot in some file format
type SnapshotExporter interface {
	Export(snap *snapshot.Snapshot, w io.Writer) error
}
