package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"docrag/config"
)

// storeLock serializes access to one store directory across processes.
// Writers hold it exclusively; readers share it.
type storeLock struct {
	fl *flock.Flock
}

func lockStore(dir string, exclusive bool) (*storeLock, error) {
	path := config.LockPath(dir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(path)
	var err error
	if exclusive {
		err = fl.Lock()
	} else {
		err = fl.RLock()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock store %s: %w", dir, err)
	}
	return &storeLock{fl: fl}, nil
}

func (l *storeLock) Unlock() {
	if l != nil && l.fl != nil {
		_ = l.fl.Unlock()
	}
}
