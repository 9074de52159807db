package store

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Persistence handles the disk I/O for the embedded engine. Each partition
// is one JSON file holding its record array.
type Persistence struct {
	DataDir string
	log     *zap.Logger
	mu      sync.Mutex // Protects concurrent writes to the filesystem
}

// NewPersistence initializes a persistence handler rooted at dir.
func NewPersistence(dir string, log *zap.Logger) (*Persistence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Persistence{DataDir: dir, log: log}, nil
}

// SavePartition writes a partition's records to its JSON file atomically:
// write to a temp file, then rename over the old one, so a crash leaves
// either the previous file or the new one, never a torn write.
func (p *Persistence) SavePartition(partition string, records []Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	filePath := filepath.Join(p.DataDir, partitionFileName(partition))
	tempPath := filePath + ".tmp"

	bytes, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tempPath, bytes, 0644); err != nil {
		return err
	}
	return os.Rename(tempPath, filePath)
}

// LoadAll returns every partition found in the data directory. Unreadable
// or corrupt files are skipped with a warning rather than aborting startup.
func (p *Persistence) LoadAll() (map[string][]Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	all := make(map[string][]Record)

	files, err := os.ReadDir(p.DataDir)
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}
		partition, err := partitionFromFileName(file.Name())
		if err != nil {
			p.log.Warn("skipping unrecognized data file", zap.String("file", file.Name()), zap.Error(err))
			continue
		}

		content, err := os.ReadFile(filepath.Join(p.DataDir, file.Name()))
		if err != nil {
			p.log.Warn("could not read partition file", zap.String("file", file.Name()), zap.Error(err))
			continue
		}

		var records []Record
		if err := json.Unmarshal(content, &records); err != nil {
			p.log.Warn("could not unmarshal partition file", zap.String("file", file.Name()), zap.Error(err))
			continue
		}
		all[partition] = records
	}
	return all, nil
}

// partitionFileName escapes the partition name so arbitrary tenant ids
// cannot traverse out of the data directory.
func partitionFileName(partition string) string {
	return fmt.Sprintf("%s.json", url.PathEscape(partition))
}

func partitionFromFileName(name string) (string, error) {
	return url.PathUnescape(strings.TrimSuffix(name, ".json"))
}
