package corpus

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ArtifactLock guards concurrent index-build/load against the same
// on-disk artifact directory, so two concurrent `buglocate index`
// invocations over the same corpus cannot race writing the BM25/Dense
// artifacts. Grounded on the teacher's background-indexer lock-file idiom.
type ArtifactLock struct {
	fl *flock.Flock
}

// Lock acquires an exclusive lock on <dir>/.buglocate.lock, waiting up to
// timeout before giving up.
func Lock(ctx context.Context, dir string, timeout time.Duration) (*ArtifactLock, error) {
	fl := flock.New(filepath.Join(dir, ".buglocate.lock"))

	lctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ok, err := fl.TryLockContext(lctx, 50*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("acquire index lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("index directory %s is locked by another process", dir)
	}
	return &ArtifactLock{fl: fl}, nil
}

// Unlock releases the lock.
func (l *ArtifactLock) Unlock() error {
	return l.fl.Unlock()
}
