package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"
)

// lockFile is the serve lock inside a project's .wishlist directory
const lockFile = "serve.lock"

// ServeLock is the content of a serve lock: who holds the database and
// where it is being served.
type ServeLock struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	Addr      string    `json:"addr,omitempty"`
	Version   string    `json:"version"`
	StartedAt time.Time `json:"started_at"`
}

// alive reports whether the holder still runs. A holder on another host
// cannot be checked and is assumed alive.
func (s ServeLock) alive() bool {
	host, err := os.Hostname()
	if err != nil || !strings.EqualFold(s.Hostname, host) {
		return true
	}
	if s.PID <= 0 {
		return false
	}
	err = syscall.Kill(s.PID, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// LockHeldError means a live server already serves the database
type LockHeldError struct {
	Path   string
	Holder ServeLock
}

func (e *LockHeldError) Error() string {
	where := e.Holder.Addr
	if where == "" {
		where = "an unknown address"
	}
	return fmt.Sprintf("database already served at %s by PID %d on %s since %s (lock %s)",
		where, e.Holder.PID, e.Holder.Hostname, e.Holder.StartedAt.Format(time.RFC3339), e.Path)
}

// Lock is a held serve lock
type Lock struct {
	path string
	info ServeLock
}

// LockPath returns where the serve lock for dbPath lives: .wishlist/serve.lock
// for a project database, "<db>.lock" for a database anywhere else.
func LockPath(dbPath string) (string, error) {
	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return "", fmt.Errorf("invalid database path: %w", err)
	}
	if root, err := GetProjectRoot(absPath); err == nil {
		return filepath.Join(root, ProjectDir, lockFile), nil
	}
	return absPath + ".lock", nil
}

// AcquireLock claims dbPath for one serving process. PID, Hostname and
// StartedAt are filled in when zero. A lock whose holder is gone, or whose
// content cannot be read, is removed and the claim retried once.
func AcquireLock(dbPath string, info ServeLock) (*Lock, error) {
	path, err := LockPath(dbPath)
	if err != nil {
		return nil, err
	}
	if info.PID == 0 {
		info.PID = os.Getpid()
	}
	if info.Hostname == "" {
		if info.Hostname, err = os.Hostname(); err != nil {
			return nil, fmt.Errorf("failed to get hostname: %w", err)
		}
	}
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now().UTC()
	}

	for attempt := 0; attempt < 2; attempt++ {
		err := createExclusive(path, info)
		if err == nil {
			return &Lock{path: path, info: info}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, err
		}

		holder, readErr := ReadLock(path)
		if readErr == nil && holder.alive() {
			return nil, &LockHeldError{Path: path, Holder: *holder}
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to clear stale lock %s: %w", path, err)
		}
	}

	holder, err := ReadLock(path)
	if err != nil {
		return nil, fmt.Errorf("lock %s is contended: %w", path, err)
	}
	return nil, &LockHeldError{Path: path, Holder: *holder}
}

// ReadLock reads the serve lock at path
func ReadLock(path string) (*ServeLock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info ServeLock
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("corrupt lock %s: %w", path, err)
	}
	return &info, nil
}

// createExclusive publishes the lock with its full content or not at all:
// the content goes to a private temp file that is then hard-linked into place,
// and link fails if path already exists.
func createExclusive(path string, info ServeLock) error {
	tmp, err := writeTemp(path, info)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return err
		}
		return fmt.Errorf("failed to create lock %s: %w", path, err)
	}
	return nil
}

var tempSeq atomic.Int64

func writeTemp(path string, info ServeLock) (string, error) {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal lock: %w", err)
	}
	tmp := path + "." + strconv.Itoa(os.Getpid()) + "." + strconv.FormatInt(tempSeq.Add(1), 10) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write lock: %w", err)
	}
	return tmp, nil
}

// Path returns the lock file path
func (l *Lock) Path() string {
	return l.path
}

// Info returns the lock content as last written
func (l *Lock) Info() ServeLock {
	return l.info
}

// SetAddr records the address the server actually bound
func (l *Lock) SetAddr(addr string) error {
	info := l.info
	info.Addr = addr
	tmp, err := writeTemp(l.path, info)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, l.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to update lock %s: %w", l.path, err)
	}
	l.info = info
	return nil
}

// Release removes the lock if this process still holds it. Releasing a nil
// or already released lock is a no-op.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	current, err := ReadLock(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err == nil && (current.PID != l.info.PID || current.Hostname != l.info.Hostname) {
		// Taken over by another server after ours was judged stale
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove lock %s: %w", l.path, err)
	}
	return nil
}
