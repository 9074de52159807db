// Package store defines the document-store capability the LRS is built on:
// schema-less records written into named partitions, and generic
// filter/sort/unwind/paginate queries over a partition.
package store

import (
	"context"
	"errors"
)

var (
	// ErrPartitionNotFound is returned when a queried partition does not exist.
	ErrPartitionNotFound = errors.New("partition not found")
	// ErrClosed is returned when an operation is attempted on a closed store.
	ErrClosed = errors.New("store is closed")
)

// Record is one schema-less xAPI statement. Nested shapes are preserved
// as decoded: objects are map[string]any, arrays []any.
type Record = map[string]any

// Spec shapes one query. Every field is optional; a zero field applies no
// constraint of its kind.
type Spec struct {
	// Filter is a predicate over record fields, passed through to the
	// backend. Keys may be dotted paths into nested documents.
	Filter map[string]any
	// Sort maps field paths to a direction: 1 ascending, -1 descending.
	Sort map[string]int
	// Unwind names an array-valued field path; each element becomes its
	// own result row. Empty means no unwinding.
	Unwind string
	// Limit bounds the number of returned rows. Zero means unbounded.
	Limit int64
	// Skip drops that many rows from the front of the sorted result.
	Skip int64
}

// Store is the capability contract shared by the embedded engine and the
// MongoDB backend. Both tolerate concurrent use without external locking.
type Store interface {
	// Put writes one record into a partition, creating it if needed.
	Put(ctx context.Context, partition string, doc Record) error
	// Query evaluates a spec against one partition and materializes every
	// matching row. A missing partition yields an empty result, not an
	// error, so freshly provisioned tenants can be queried immediately.
	Query(ctx context.Context, partition string, spec Spec) ([]Record, error)
	// Partitions lists every partition currently holding data.
	Partitions(ctx context.Context) ([]string, error)
	// Close releases the backend connection or flushes pending writes.
	Close(ctx context.Context) error
}
