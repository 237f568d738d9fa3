package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
)

// ErrInvalidName is returned for object names that are empty or leave the base directory.
var ErrInvalidName = errors.New("invalid object name")

// NewStore creates a file-backed object store rooted at basePath.
// publicPrefix is the URL path the objects are served under, e.g. "/images".
func NewStore(log logr.Logger, basePath, publicPrefix string) *Store {
	return &Store{
		log:          log,
		basePath:     basePath,
		publicPrefix: strings.TrimSuffix(publicPrefix, "/"),
		keyedMutex:   &keyedMutex{},
	}
}

// Store keeps uploaded item images on local disk.
type Store struct {
	log          logr.Logger
	basePath     string
	publicPrefix string
	keyedMutex   *keyedMutex
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectName builds the stored name for an upload: "<unix millis>_<sanitized base name>".
func ObjectName(now time.Time, original string) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "upload"
	}
	return fmt.Sprintf("%d_%s", now.UnixMilli(), base)
}

// Put stores r under name, replacing any existing object atomically.
func (s *Store) Put(ctx context.Context, name string, r io.Reader) (_ int64, err error) {
	fullPath, err := s.resolve(name)
	if err != nil {
		return 0, err
	}

	unlock := s.keyedMutex.Lock(name)
	defer unlock()

	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return 0, errors.Wrapf(err, "unable to create directory %s", s.basePath)
	}

	fullTmpPath := fullPath + ".tmp"
	f, err := os.OpenFile(fullTmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, errors.Wrapf(err, "unable to create temporary file %s", fullTmpPath)
	}
	defer os.Remove(fullTmpPath)
	defer f.Close()

	s.log.V(1).Info("storing object", "name", name)
	written, err := io.Copy(f, &contextReader{ctx: ctx, r: r})
	if err != nil {
		return 0, errors.Wrapf(err, "unable to write object %s", name)
	}
	if err := f.Close(); err != nil {
		return 0, errors.WithStack(err)
	}

	if err := os.Rename(fullTmpPath, fullPath); err != nil {
		return 0, errors.WithStack(err)
	}
	s.log.Info("stored object", "name", name, "bytes", written)
	return written, nil
}

// Open returns a reader for the named object.
func (s *Store) Open(name string) (*os.File, error) {
	fullPath, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "unable to open object %s", name)
	}
	return f, nil
}

// Remove deletes the named object. A missing object is not an error.
func (s *Store) Remove(name string) error {
	fullPath, err := s.resolve(name)
	if err != nil {
		return err
	}

	unlock := s.keyedMutex.Lock(name)
	defer unlock()

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "unable to remove object %s", name)
	}
	s.log.V(1).Info("removed object", "name", name)
	return nil
}

// Prefix returns the URL path objects are served under.
func (s *Store) Prefix() string {
	return s.publicPrefix
}

// URL returns the public URL for the named object.
func (s *Store) URL(name string) string {
	return s.publicPrefix + "/" + name
}

// NameFromURL extracts the object name from a URL produced by URL.
// It returns false for URLs that do not belong to this store.
func (s *Store) NameFromURL(url string) (string, bool) {
	prefix := s.publicPrefix + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(url, prefix)
	if _, err := s.resolve(name); err != nil {
		return "", false
	}
	return name, true
}

func (s *Store) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || strings.HasSuffix(name, ".tmp") {
		return "", errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return filepath.Join(s.basePath, name), nil
}

// contextReader stops copying once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// keyedMutex serializes access per object name. Entries are dropped once
// no caller holds or waits for them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (m *keyedMutex) Lock(key string) func() {
	m.mu.Lock()
	if m.locks == nil {
		m.locks = make(map[string]*refMutex)
	}
	l, ok := m.locks[key]
	if !ok {
		l = &refMutex{}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}

func (m *keyedMutex) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
