// Package workspace owns the on-disk layout: one artifact directory per job
// under the work dir, and a lock that keeps two processes from sharing it.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// LockFileName sits at the root of the work dir.
const LockFileName = "autotube.lock"

// ErrLocked reports that another process holds the work dir.
var ErrLocked = errors.New("work directory is locked by another autotube process")

// Manager allocates per-job directories.
type Manager struct {
	root string
	lock *flock.Flock
}

// New returns a manager rooted at dir.
func New(dir string) (*Manager, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("workspace: work dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	return &Manager{root: dir, lock: flock.New(filepath.Join(dir, LockFileName))}, nil
}

// Root returns the work dir.
func (m *Manager) Root() string { return m.root }

// JobDir creates and returns the artifact directory for jobID. Artifacts are
// left in place after the job ends.
func (m *Manager) JobDir(jobID string) (string, error) {
	if jobID == "" || strings.ContainsAny(jobID, `/\`) || jobID == "." || jobID == ".." {
		return "", fmt.Errorf("workspace: invalid job id %q", jobID)
	}
	dir := filepath.Join(m.root, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create job dir: %w", err)
	}
	return dir, nil
}

// Lock takes the exclusive work-dir lock without waiting.
func (m *Manager) Lock() error {
	ok, err := m.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire work dir lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

// Unlock releases the work-dir lock.
func (m *Manager) Unlock() error {
	return m.lock.Unlock()
}
