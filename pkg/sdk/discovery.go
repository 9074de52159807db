package sdk

import (
	"context"
	"os"

	"github.com/veris-dev/veris-lrs/internal/lrs"
	"github.com/veris-dev/veris-lrs/internal/store"
)

// New initializes the record service based on the environment.
// It returns the interface, so the app doesn't care if it's local or remote.
func New(dataDir string) (RecordService, error) {
	// 1. Check if a remote daemon is defined in the environment
	if addr := os.Getenv("LRS_ADDR"); addr != "" {
		client, err := Connect(addr)
		if err == nil {
			if token := os.Getenv("LRS_TOKEN"); token != "" {
				client.SetToken(token)
			}
			return client, nil
		}
		// If the connection fails we fall back to the embedded engine.
	}

	// 2. Embedded mode: the same engine the daemon uses, in-process.
	p, err := store.NewPersistence(dataDir, nil)
	if err != nil {
		return nil, err
	}
	all, err := p.LoadAll()
	if err != nil {
		return nil, err
	}

	base := os.Getenv("LRS_XAPI_COLLECTION")
	svc := lrs.New(store.NewMemStore(all, p), lrs.Options{BaseCollection: base}, nil)
	return &embedded{svc: svc}, nil
}

// embedded adapts the in-process service to the RecordService interface.
type embedded struct {
	svc *lrs.Service
}

func (e *embedded) Ingest(ctx context.Context, doc map[string]any) error {
	return e.svc.Ingest(ctx, doc)
}

func (e *embedded) Query(ctx context.Context, req lrs.QueryRequest) (*lrs.QueryResult, error) {
	return e.svc.Query(ctx, req)
}
