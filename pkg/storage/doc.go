/*
Package storage provides the pluggable storage abstraction behind the
TinyChart data source.

# Storage Interface

Samples are grouped into named datasets. The data source endpoint serves a
dataset as the JSON array the chart widget fetches, so the only ordering that
matters is write order: samples come back exactly as they were appended, never
sorted by timestamp.

	type Storage interface {
	    Write(ctx context.Context, dataset string, samples []series.Sample) error
	    Query(ctx context.Context, req QueryRequest) ([]series.Sample, error)
	    Delete(ctx context.Context, dataset string) error
	    Stats(ctx context.Context) (*Stats, error)
	    Close() error
	}

Backends:
  - memory: in-memory storage for tests and throwaway demos
  - badger: BadgerDB (LSM tree + Snappy compression) for persistent storage

# Usage Example

	store, err := badger.New(badger.Config{Path: "./data"})
	if err != nil {
	    log.Fatal(err)
	}
	defer store.Close()

	err = store.Write(ctx, "default", []series.Sample{
	    {Timestamp: "2024-01-01", Value: 10},
	    {Timestamp: "2024-01-02", Value: 20},
	})

	samples, err := store.Query(ctx, storage.QueryRequest{Dataset: "default"})

Query returns ErrDatasetNotFound for a dataset that was never written or has
been deleted.
*/
package storage
