// Package lrs implements the learning-record core: statement ingestion
// into tenant partitions and the generic query gateway over the base
// statement collection.
package lrs

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/veris-dev/veris-lrs/internal/partition"
	"github.com/veris-dev/veris-lrs/internal/store"
)

var (
	// ErrStorageWrite is returned when the backend rejects a write.
	ErrStorageWrite = errors.New("storage write failed")
	// ErrStorageRead is returned when a query fails in the backend.
	ErrStorageRead = errors.New("storage read failed")
	// ErrIngestion is returned for faults before the write, such as a
	// failure while extracting tenant fields.
	ErrIngestion = errors.New("ingestion failed")
)

// Options tune the service.
type Options struct {
	// BaseCollection names the statement collection partitions derive
	// from; the query gateway reads this collection directly.
	BaseCollection string
	// LegacySkipAsLimit reproduces the historical pagination behavior:
	// a caller-supplied skip value overwrites the limit and no offset is
	// applied. Off by default; skip is then a true offset.
	LegacySkipAsLimit bool
}

// Service is the ingestion and query core. One instance is shared by all
// concurrent requests; the store behind it carries its own concurrency
// guarantees and nothing is cached or queued here.
type Service struct {
	store store.Store
	opts  Options
	log   *zap.Logger
}

// New builds the service around a store handle.
func New(s store.Store, opts Options, log *zap.Logger) *Service {
	if opts.BaseCollection == "" {
		opts.BaseCollection = "xapi"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: s, opts: opts, log: log}
}

// Ingest writes one statement into the partition derived from its tenant
// fields. The record is stored unmodified; a single write attempt is made
// and failures are not retried.
func (s *Service) Ingest(ctx context.Context, doc store.Record) error {
	consumerID, courseID, err := tenantFields(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIngestion, err)
	}

	name := partition.Resolve(s.opts.BaseCollection, consumerID, courseID)
	if err := s.store.Put(ctx, name, doc); err != nil {
		s.log.Error("statement write failed", zap.String("partition", name), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}

	s.log.Info("statement ingested", zap.String("partition", name))
	return nil
}

// QueryRequest is the caller-supplied query shape. Every field is
// optional; absent fields apply no constraint.
type QueryRequest struct {
	Query  map[string]any `json:"query"`
	Sort   map[string]any `json:"sort"`
	Unwind any            `json:"unwind"`
	Limit  int64          `json:"limit"`
	Skip   int64          `json:"skip"`
}

// QueryResult is one materialized result page. Total is the size of the
// returned page, not a pre-pagination match count; that is the contract
// callers have always had.
type QueryResult struct {
	Total   int            `json:"total"`
	Results []store.Record `json:"results"`
}

// Query runs a caller-specified query against the base statement
// collection. Queries are not tenant-scoped here: post-authorization
// callers supply their own tenant filter.
func (s *Service) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	spec := s.toSpec(req)

	results, err := s.store.Query(ctx, s.opts.BaseCollection, spec)
	if err != nil {
		s.log.Error("statement query failed",
			zap.Any("filter", spec.Filter),
			zap.Any("sort", spec.Sort),
			zap.Int64("limit", spec.Limit),
			zap.Int64("skip", spec.Skip),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorageRead, err)
	}
	if results == nil {
		results = []store.Record{}
	}
	return &QueryResult{Total: len(results), Results: results}, nil
}

// toSpec normalizes the wire shape into a store spec. Malformed fields
// never error: anything unusable degrades to "no constraint".
func (s *Service) toSpec(req QueryRequest) store.Spec {
	spec := store.Spec{
		Filter: req.Query,
		Sort:   normalizeSort(req.Sort),
		Unwind: normalizeUnwind(req.Unwind),
		Limit:  req.Limit,
		Skip:   req.Skip,
	}
	if s.opts.LegacySkipAsLimit {
		if req.Skip != 0 {
			spec.Limit = req.Skip
		}
		spec.Skip = 0
	}
	return spec
}

func normalizeSort(raw map[string]any) map[string]int {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]int, len(raw))
	for path, dir := range raw {
		switch d := dir.(type) {
		case float64:
			if d < 0 {
				out[path] = -1
			} else {
				out[path] = 1
			}
		case int:
			if d < 0 {
				out[path] = -1
			} else {
				out[path] = 1
			}
		case string:
			if d == "desc" || d == "-1" {
				out[path] = -1
			} else {
				out[path] = 1
			}
		}
	}
	return out
}

// normalizeUnwind accepts the two shapes callers send: a bare field name,
// or an object with a "path" key as the aggregation stage takes it. An
// empty object is the historical "no unwind" placeholder.
func normalizeUnwind(raw any) string {
	switch u := raw.(type) {
	case string:
		return u
	case map[string]any:
		if p, ok := u["path"].(string); ok {
			return p
		}
	}
	return ""
}

// tenantFields pulls the consumer and course identifiers from a statement.
// Both are optional; a missing path yields the empty string and never an
// error. A panic out of a pathological document is converted into an
// error so ingestion fails whole rather than writing a partial record.
func tenantFields(doc store.Record) (consumerID, courseID string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tenant field extraction: %v", r)
		}
	}()

	session, _ := lookup(doc, "metadata", "session")
	if session == nil {
		return "", "", nil
	}
	consumerID, _ = session["custom_consumer"].(string)
	courseID, _ = session["context_id"].(string)
	return consumerID, courseID, nil
}

func lookup(doc store.Record, path ...string) (map[string]any, bool) {
	cur := doc
	for _, key := range path {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}
