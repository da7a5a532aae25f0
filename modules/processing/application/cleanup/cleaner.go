// Package cleanup is the C11 Cleaner: best-effort deletion of the pipeline's
// intermediate object-store keys, both on successful completion (the
// processing-encoded copy and chunk slots are no longer needed once the
// final encodings and transcript exist) and on cancellation (Open Question
// Decision: when a run is cancelled, the intermediate keys recorded by its
// already-completed steps are deleted rather than left as tombstones; keys
// that the step running at the moment of cancellation had written are not
// known to the Driver and are not deleted).
package cleanup

import (
	"context"
	"log"
)

// ObjectDeleter is the narrow object-store dependency the Cleaner needs.
type ObjectDeleter interface {
	Delete(ctx context.Context, key string) error
}

// Cleaner deletes intermediate object-store keys. Every deletion is
// best-effort: a failure is logged and does not stop the remaining
// deletions or propagate to the caller.
type Cleaner struct {
	store ObjectDeleter
}

// NewCleaner creates a Cleaner over the given object store.
func NewCleaner(store ObjectDeleter) *Cleaner {
	return &Cleaner{store: store}
}

// Clean deletes the processing-encoded audio key and every chunk key once
// the pipeline has finished successfully; final encoded renditions and the
// transcript are never touched.
func (c *Cleaner) Clean(ctx context.Context, processingKey string, chunkKeys []string) {
	c.deleteAll(ctx, append([]string{processingKey}, chunkKeys...))
}

// CleanupPartial deletes the intermediate keys the run's completed steps had
// allocated before its context was cancelled. Used by the Pipeline Driver's
// cancellation path; never invoked on a successful or merely failed (as
// opposed to cancelled) run.
func (c *Cleaner) CleanupPartial(ctx context.Context, allocatedKeys []string) {
	// Deletion must proceed even though the run's context is already
	// cancelled, so ctx is ignored and every delete uses context.Background().
	c.deleteAll(context.Background(), allocatedKeys)
}

func (c *Cleaner) deleteAll(ctx context.Context, keys []string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := c.store.Delete(ctx, key); err != nil {
			log.Printf("cleanup: failed to delete %q: %v", key, err)
		}
	}
}
