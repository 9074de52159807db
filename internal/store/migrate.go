package store

import (
	"context"
	"fmt"
)

// Migrate copies every partition from a source store into a destination
// store. This works for:
// - Embedded -> Mongo (promoting a local deployment to a real backend)
// - Mongo -> Embedded (pulling a backup for offline use)
func Migrate(ctx context.Context, src, dst Store) error {
	partitions, err := src.Partitions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list partitions: %w", err)
	}

	for _, name := range partitions {
		records, err := src.Query(ctx, name, Spec{})
		if err != nil {
			return fmt.Errorf("failed to read partition %s: %w", name, err)
		}
		for _, r := range records {
			if err := dst.Put(ctx, name, r); err != nil {
				return fmt.Errorf("failed to write into partition %s: %w", name, err)
			}
		}
	}
	return nil
}
