package sdk

import (
	"context"

	"github.com/veris-dev/veris-lrs/internal/lrs"
)

// --- Functional Interfaces (Interface Segregation) ---

// StatementWriter ingests one statement document at a time.
type StatementWriter interface {
	Ingest(ctx context.Context, doc map[string]any) error
}

// StatementQuerier runs caller-specified queries over the statement
// collection.
type StatementQuerier interface {
	Query(ctx context.Context, req lrs.QueryRequest) (*lrs.QueryResult, error)
}

// --- Composite Interface ---

// RecordService is the contract shared by the remote client and the
// embedded engine: an application using it does not care whether a daemon
// is involved.
type RecordService interface {
	StatementWriter
	StatementQuerier
}
