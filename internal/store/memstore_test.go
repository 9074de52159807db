package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMemStore_PutQuery(t *testing.T) {
	ctx := context.Background()
	ms := NewMemStore(nil, nil)

	doc := Record{"actor": "alice", "verb": "completed"}
	if err := ms.Put(ctx, "xapi_consumerId_c1_courseId_k1", doc); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	results, err := ms.Query(ctx, "xapi_consumerId_c1_courseId_k1", Spec{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 || results[0]["actor"] != "alice" {
		t.Errorf("Expected the ingested record back, got %v", results)
	}
}

func TestMemStore_QueryMissingPartition(t *testing.T) {
	ms := NewMemStore(nil, nil)

	results, err := ms.Query(context.Background(), "nothing_here", Spec{})
	if err != nil {
		t.Fatalf("Query of missing partition should not fail: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected empty result, got %v", results)
	}
}

func TestMemStore_Partitions(t *testing.T) {
	ctx := context.Background()
	ms := NewMemStore(nil, nil)

	ms.Put(ctx, "p1", Record{"n": 1})
	ms.Put(ctx, "p2", Record{"n": 2})

	names, err := ms.Partitions(ctx)
	if err != nil {
		t.Fatalf("Partitions failed: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("Expected 2 partitions, got %d", len(names))
	}
}

func TestMemStore_Closed(t *testing.T) {
	ctx := context.Background()
	ms := NewMemStore(nil, nil)
	ms.Close(ctx)

	if err := ms.Put(ctx, "p1", Record{}); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if _, err := ms.Query(ctx, "p1", Spec{}); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestMemStore_ConcurrentPuts(t *testing.T) {
	ctx := context.Background()
	ms := NewMemStore(nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ms.Put(ctx, "p1", Record{"n": n})
		}(i)
	}
	wg.Wait()

	results, err := ms.Query(ctx, "p1", Spec{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 50 {
		t.Errorf("Expected 50 records, got %d", len(results))
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "lrs-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	p, err := NewPersistence(tmpDir, nil)
	if err != nil {
		t.Fatalf("NewPersistence failed: %v", err)
	}

	ctx := context.Background()
	ms := NewMemStore(nil, p)
	for i := 0; i < 3; i++ {
		err := ms.Put(ctx, "xapi_consumerId_c1_courseId_k1", Record{"seq": fmt.Sprintf("%d", i)})
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	ms.Wait()

	loaded, err := p.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	records := loaded["xapi_consumerId_c1_courseId_k1"]
	if len(records) != 3 {
		t.Fatalf("Expected 3 persisted records, got %d", len(records))
	}

	// A fresh store seeded from disk serves the same data.
	reloaded := NewMemStore(loaded, nil)
	results, err := reloaded.Query(ctx, "xapi_consumerId_c1_courseId_k1", Spec{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("Expected 3 records after reload, got %d", len(results))
	}
}

func TestMemStore_BackgroundSaveFailureLogged(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "lrs-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	core, logs := observer.New(zap.ErrorLevel)
	p, err := NewPersistence(tmpDir, zap.New(core))
	if err != nil {
		t.Fatalf("NewPersistence failed: %v", err)
	}

	// A regular file in place of the data directory makes every write fail.
	blocker := filepath.Join(tmpDir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create blocker file: %v", err)
	}
	p.DataDir = filepath.Join(blocker, "data")

	ctx := context.Background()
	ms := NewMemStore(nil, p)
	if err := ms.Put(ctx, "p1", Record{"n": 1}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	ms.Wait()

	if logs.FilterMessage("background save failed").Len() == 0 {
		t.Error("Expected the failed disk write to be logged")
	}
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	src := NewMemStore(nil, nil)
	dst := NewMemStore(nil, nil)

	src.Put(ctx, "p1", Record{"id": "a"})
	src.Put(ctx, "p1", Record{"id": "b"})
	src.Put(ctx, "p2", Record{"id": "c"})

	if err := Migrate(ctx, src, dst); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	for name, want := range map[string]int{"p1": 2, "p2": 1} {
		results, err := dst.Query(ctx, name, Spec{})
		if err != nil {
			t.Fatalf("Query %s failed: %v", name, err)
		}
		if len(results) != want {
			t.Errorf("Partition %s: expected %d records, got %d", name, want, len(results))
		}
	}
}
