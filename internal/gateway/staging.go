package gateway

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/google/uuid"
)

// Stager persists uploaded files for the duration of one gateway call.
type Stager struct {
	// Dir receives staged files. Empty means os.TempDir().
	Dir string

	// MaxBytes bounds a single upload; zero disables the bound.
	MaxBytes int64

	active atomic.Int64
}

// ErrUploadTooLarge is returned when an upload exceeds Stager.MaxBytes.
var ErrUploadTooLarge = errors.New("uploaded file exceeds size limit")

// StagedFile is an uploaded file persisted to disk. It is owned by exactly
// one request and removed by Cleanup.
type StagedFile struct {
	Path     string
	Filename string
	Size     int64

	once       sync.Once
	cleanupErr error
	release    func()
}

// Stage copies src into a uniquely named file. The name is a random token
// followed by the base of filename, so concurrent uploads of the same file
// never collide.
func (s *Stager) Stage(src io.Reader, filename string) (*StagedFile, error) {
	dir := s.dir()
	base := sanitizeFilename(filename)
	token := strings.ReplaceAll(uuid.NewString(), "-", "")

	path, err := securejoin.SecureJoin(dir, token+"_"+base)
	if err != nil {
		return nil, fmt.Errorf("resolve staging path: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}

	staged := &StagedFile{Path: path, Filename: filename}
	s.active.Add(1)
	staged.release = func() { s.active.Add(-1) }

	reader := src
	if s.MaxBytes > 0 {
		reader = io.LimitReader(src, s.MaxBytes+1)
	}

	n, copyErr := io.Copy(f, reader)
	closeErr := f.Close()
	staged.Size = n

	switch {
	case copyErr != nil:
		_ = staged.Cleanup()
		return nil, fmt.Errorf("write staged file: %w", copyErr)
	case closeErr != nil:
		_ = staged.Cleanup()
		return nil, fmt.Errorf("close staged file: %w", closeErr)
	case s.MaxBytes > 0 && n > s.MaxBytes:
		_ = staged.Cleanup()
		return nil, ErrUploadTooLarge
	}

	return staged, nil
}

// Active returns the number of staged files not yet cleaned up.
func (s *Stager) Active() int64 {
	return s.active.Load()
}

// Writable verifies that the staging directory accepts new files.
func (s *Stager) Writable() error {
	f, err := os.CreateTemp(s.dir(), ".probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func (s *Stager) dir() string {
	if s == nil || strings.TrimSpace(s.Dir) == "" {
		return os.TempDir()
	}
	return s.Dir
}

// Open returns a reader over the staged bytes.
func (f *StagedFile) Open() (io.ReadCloser, error) {
	if f == nil {
		return nil, errors.New("no staged file")
	}
	return os.Open(f.Path)
}

// Cleanup removes the staged file. Only the first call does any work;
// later calls return the first result.
func (f *StagedFile) Cleanup() error {
	if f == nil {
		return nil
	}
	f.once.Do(func() {
		err := os.Remove(f.Path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			f.cleanupErr = err
		}
		if f.release != nil {
			f.release()
		}
	})
	return f.cleanupErr
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	switch base {
	case "", ".", "..", "/":
		return "upload"
	}
	return base
}
