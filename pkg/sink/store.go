// Package sink writes export artifacts to their destination. A Store
// is either a directory tree or a zip archive; the export runner picks
// one based on the configured output format.
package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zip"
)

// ErrEntryOpen is returned by ZipStore.Create when the previously
// created entry has not been closed yet. Zip archives are written
// strictly sequentially.
var ErrEntryOpen = errors.New("previous archive entry is still open")

// Store is a destination for named artifacts. Names use forward
// slashes regardless of platform; a DirStore maps them onto the local
// filesystem and a ZipStore keeps them verbatim as entry names.
type Store interface {
	// Create opens a new artifact for writing. The caller must close
	// it before the Store itself is closed.
	Create(name string) (io.WriteCloser, error)
	// Close finalizes the store. For zip output this writes the
	// central directory, so skipping it leaves a truncated archive.
	Close() error
}

var (
	_ Store = (*DirStore)(nil)
	_ Store = (*ZipStore)(nil)
)

// DirStore writes artifacts as plain files under a root directory,
// creating intermediate directories on demand. Any number of
// artifacts may be open at once.
type DirStore struct {
	root string
}

func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

func (s *DirStore) Create(name string) (io.WriteCloser, error) {
	path := filepath.Join(s.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("could not create directory for %s: %w", name, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create %s: %w", name, err)
	}
	return f, nil
}

func (s *DirStore) Close() error {
	return nil
}

// ZipStore writes artifacts as entries of a single zip archive. The
// format allows only one entry to be written at a time, which is why
// zip output caps the export at one table worker.
type ZipStore struct {
	mu   sync.Mutex
	f    *os.File
	zw   *zip.Writer
	open bool
}

func NewZipStore(path string) (*ZipStore, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create archive %s: %w", path, err)
	}
	return &ZipStore{f: f, zw: zip.NewWriter(f)}, nil
}

func (s *ZipStore) Create(name string) (io.WriteCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return nil, fmt.Errorf("could not create entry %s: %w", name, ErrEntryOpen)
	}
	w, err := s.zw.Create(name)
	if err != nil {
		return nil, fmt.Errorf("could not create entry %s: %w", name, err)
	}
	s.open = true
	return &zipEntry{store: s, w: w}, nil
}

func (s *ZipStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.zw.Close(); err != nil {
		_ = s.f.Close()
		return fmt.Errorf("could not finalize archive: %w", err)
	}
	return s.f.Close()
}

// zipEntry defers the single-writer bookkeeping to the store; the zip
// writer itself finishes the entry when the next one is created.
type zipEntry struct {
	store *ZipStore
	w     io.Writer
}

func (e *zipEntry) Write(p []byte) (int, error) {
	return e.w.Write(p)
}

func (e *zipEntry) Close() error {
	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	e.store.open = false
	return nil
}
