package storage

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrTooLarge is returned when staged content exceeds the store limit.
var ErrTooLarge = errors.New("scratch: file too large")

// Scratch stages request-scoped files in a single process-wide directory.
type Scratch struct {
	dir     string
	maxSize int64
}

// NewScratch creates the scratch directory if needed.
//
// Parameters:
//   - dir: Directory to stage files in
//   - maxSize: Maximum file size in bytes (0 = no limit)
func NewScratch(dir string, maxSize int64) (*Scratch, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}

	return &Scratch{
		dir:     dir,
		maxSize: maxSize,
	}, nil
}

// Dir returns the scratch directory.
func (s *Scratch) Dir() string {
	return s.dir
}

// StagedFile is a file written to the scratch directory for the duration of
// one request. Release must be called on every path.
type StagedFile struct {
	Name string
	Path string
	Size int64

	once sync.Once
	err  error
}

// Stage copies r into a new scratch file. The stored name is prefixed with a
// random ID so concurrent uploads with the same name never share a path.
// name must already be sanitized.
func (s *Scratch) Stage(name string, r io.Reader) (*StagedFile, error) {
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("scratch: invalid file name %q", name)
	}

	path := filepath.Join(s.dir, uuid.New().String()+"_"+name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch file: %w", err)
	}

	// Copy with size limit
	reader := r
	if s.maxSize > 0 {
		reader = io.LimitReader(r, s.maxSize+1) // +1 to detect overflow
	}

	written, err := io.Copy(f, reader)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write scratch file: %w", err)
	}

	if s.maxSize > 0 && written > s.maxSize {
		os.Remove(path)
		return nil, ErrTooLarge
	}

	return &StagedFile{
		Name: name,
		Path: path,
		Size: written,
	}, nil
}

// ReadAll returns the staged content.
func (f *StagedFile) ReadAll() ([]byte, error) {
	return os.ReadFile(f.Path)
}

// Release removes the staged file. It is safe to call more than once; a file
// that is already gone is not an error.
func (f *StagedFile) Release() error {
	f.once.Do(func() {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			f.err = err
		}
	})
	return f.err
}

// Sweep removes regular files older than maxAge and returns how many were
// removed. Entries staged by in-flight requests are younger than any sane
// maxAge and are left alone.
func (s *Scratch) Sweep(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read scratch dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
				log.Printf("Failed to sweep scratch file %s: %v", entry.Name(), err)
				continue
			}
			removed++
		}
	}

	return removed, nil
}
