package store

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemStore is the embedded, thread-safe partition engine. It backs local
// deployments without a MongoDB instance and doubles as the test double for
// the real backend.
type MemStore struct {
	mu sync.RWMutex
	// Structure: [partition][]record
	data      map[string][]Record
	persister *Persistence
	closed    bool
	wg        sync.WaitGroup
}

// NewMemStore initializes the engine. It accepts existing data (from
// LoadAll) and an optional persister; a nil persister keeps everything
// in memory.
func NewMemStore(initial map[string][]Record, p *Persistence) *MemStore {
	if initial == nil {
		initial = make(map[string][]Record)
	}
	return &MemStore{
		data:      initial,
		persister: p,
	}
}

// Wait blocks until all background persistence tasks have completed.
func (m *MemStore) Wait() {
	m.wg.Wait()
}

func (m *MemStore) Put(_ context.Context, partition string, doc Record) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.data[partition] = append(m.data[partition], doc)

	// Snapshot the partition so the save can run outside the lock.
	snapshot := m.copyPartition(partition)
	m.mu.Unlock()

	if m.persister != nil {
		m.wg.Add(1)
		go func(name string, records []Record) {
			defer m.wg.Done()
			if err := m.persister.SavePartition(name, records); err != nil {
				m.persister.log.Error("background save failed",
					zap.String("partition", name), zap.Error(err))
			}
		}(partition, snapshot)
	}
	return nil
}

func (m *MemStore) Query(_ context.Context, partition string, spec Spec) ([]Record, error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, ErrClosed
	}
	snapshot := m.copyPartition(partition)
	m.mu.RUnlock()

	return evalSpec(snapshot, spec), nil
}

func (m *MemStore) Partitions(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	var list []string
	for name := range m.data {
		list = append(list, name)
	}
	return list, nil
}

// Close drains pending persistence work and rejects further operations.
func (m *MemStore) Close(_ context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.wg.Wait()
	return nil
}

// copyPartition snapshots a partition's record slice. It MUST be called
// while holding m.mu. Records themselves are treated as immutable after
// ingestion, so a shallow copy of the slice is enough.
func (m *MemStore) copyPartition(partition string) []Record {
	original := m.data[partition]
	if original == nil {
		return nil
	}
	snapshot := make([]Record, len(original))
	copy(snapshot, original)
	return snapshot
}
