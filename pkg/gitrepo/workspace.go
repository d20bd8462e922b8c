package gitrepo

import (
	"fmt"
	"os"
	"sync"
)

// Workspace is a temporary directory owned by a single operation.
// Callers must defer Release immediately after a successful Acquire.
type Workspace struct {
	Dir string

	once sync.Once
	err  error
}

// Acquire creates a fresh temporary directory under root (os.TempDir when empty).
func Acquire(root, prefix string) (*Workspace, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("acquire workspace: %w", err)
		}
	}
	dir, err := os.MkdirTemp(root, prefix)
	if err != nil {
		return nil, fmt.Errorf("acquire workspace: %w", err)
	}
	return &Workspace{Dir: dir}, nil
}

// Release removes the directory and everything under it. Repeated calls are no-ops.
func (w *Workspace) Release() error {
	if w == nil {
		return nil
	}
	w.once.Do(func() {
		if err := os.RemoveAll(w.Dir); err != nil {
			w.err = fmt.Errorf("release workspace %s: %w", w.Dir, err)
		}
	})
	return w.err
}
