// pattern: Imperative Shell
package instance

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
)

const locksDir = "locks"

// ErrLocked is returned when another process holds the lock for a directory.
var ErrLocked = errors.New("directory is in use by another restorepoint process")

// Lock is an exclusive per-directory lock. Two restorepoint processes never
// mutate the same checkpoint directory at once.
type Lock struct {
	fl        *flock.Flock
	ownerPath string
}

// Acquire takes the lock for root, keeping its files under dataDir.
// It fails with ErrLocked, wrapped with the holder's pid when known, if the
// lock is taken.
func Acquire(dataDir, root string) (*Lock, error) {
	dir := filepath.Join(dataDir, locksDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	base := filepath.Join(dir, lockName(root))
	fl := flock.New(base + ".lock")
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		if pid, ok := readOwner(base + ".owner"); ok {
			return nil, fmt.Errorf("%w (pid %d)", ErrLocked, pid)
		}
		return nil, ErrLocked
	}

	owner := strconv.Itoa(os.Getpid()) + "\n" + root + "\n"
	if err := os.WriteFile(base+".owner", []byte(owner), 0600); err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("failed to write owner file: %w", err)
	}
	return &Lock{fl: fl, ownerPath: base + ".owner"}, nil
}

// Release removes the owner file and releases the lock. Safe on nil.
func (l *Lock) Release() {
	if l == nil {
		return
	}
	_ = os.Remove(l.ownerPath)
	_ = l.fl.Unlock()
}

// lockName derives a file name from the absolute, cleaned root path.
func lockName(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	sum := sha256.Sum256([]byte(filepath.Clean(root)))
	return hex.EncodeToString(sum[:8])
}

func readOwner(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	first, _, _ := strings.Cut(string(data), "\n")
	pid, err := strconv.Atoi(first)
	if err != nil {
		return 0, false
	}
	return pid, true
}
