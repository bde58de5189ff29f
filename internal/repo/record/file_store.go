package record

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/mkrupp/saba-backend/internal/infra/logging"
)

// FileStoreConfig holds configuration shared by all file-backed stores.
type FileStoreConfig struct {
	// Basedir is the directory holding the document files
	Basedir string `env:"DATA_DIR" default:"var/data"`
}

// FileStore implements Store on a single file. Operations are serialized by an
// in-process mutex and an advisory flock on a sibling ".lock" file, so
// read-modify-write cycles from concurrent requests (or processes) cannot lose
// each other's updates.
type FileStore[T any] struct {
	path    string
	codec   Codec[T]
	initial T
	log     logging.Logger
	m       *sync.RWMutex
}

var _ Store[[]string] = (*FileStore[[]string])(nil)

// NewFileStore creates a store for the document at cfg.Basedir/name.
// The document is not touched until the first operation.
func NewFileStore[T any](cfg FileStoreConfig, name string, codec Codec[T], initial T) *FileStore[T] {
	path := filepath.Join(cfg.Basedir, name)

	return &FileStore[T]{
		path:    path,
		codec:   codec,
		initial: initial,
		log: logging.GetLogger("repo.record.file_store").With(
			logging.Group("store", "path", path),
		),
		m: new(sync.RWMutex),
	}
}

// Path returns the location of the backing file.
func (s *FileStore[T]) Path() string {
	return s.path
}

// Ensure implements Store.Ensure.
func (s *FileStore[T]) Ensure(ctx context.Context) error {
	unlock, err := s.lock(ctx, true)
	if err != nil {
		return err
	}
	defer unlock()

	return s.ensure(ctx)
}

// ReadAll implements Store.ReadAll.
// An existing document is only read, never rewritten.
func (s *FileStore[T]) ReadAll(ctx context.Context) (value T, err error) {
	if _, err := os.Stat(s.path); err != nil {
		if err := s.Ensure(ctx); err != nil {
			return value, err
		}
	}

	unlock, err := s.lock(ctx, false)
	if err != nil {
		return value, err
	}
	defer unlock()

	return s.read(ctx)
}

// WriteAll implements Store.WriteAll.
func (s *FileStore[T]) WriteAll(ctx context.Context, value T) error {
	unlock, err := s.lock(ctx, true)
	if err != nil {
		return err
	}
	defer unlock()

	return s.write(ctx, value)
}

// Update implements Store.Update.
func (s *FileStore[T]) Update(ctx context.Context, fn func(value *T) error) error {
	unlock, err := s.lock(ctx, true)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.ensure(ctx); err != nil {
		return err
	}

	value, err := s.read(ctx)
	if err != nil {
		return err
	}

	if err := fn(&value); err != nil {
		return err
	}

	return s.write(ctx, value)
}

func (s *FileStore[T]) ensure(ctx context.Context) (err error) {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat: %w", err)
	}

	defer func() {
		if err != nil {
			s.log.ErrorContext(ctx, "init document failed", "error", err)
		} else {
			s.log.DebugContext(ctx, "document initialized")
		}
	}()

	return s.write(ctx, s.initial)
}

func (s *FileStore[T]) read(ctx context.Context) (value T, err error) {
	defer func() {
		if err != nil {
			s.log.ErrorContext(ctx, "document read failed", "error", err)
		}
	}()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return value, fmt.Errorf("read file: %w", err)
	}

	value, err = s.codec.Decode(data)
	if err != nil {
		return value, fmt.Errorf("decode %s: %w", s.path, err)
	}

	return value, nil
}

// write replaces the document through a temp file and a rename, so readers
// never observe a partially written document.
func (s *FileStore[T]) write(ctx context.Context, value T) (err error) {
	defer func() {
		if err != nil {
			s.log.ErrorContext(ctx, "document write failed", "error", err)
		} else {
			s.log.DebugContext(ctx, "document written")
		}
	}()

	data, err := s.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir all: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}

	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("write: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("sync: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}

func (s *FileStore[T]) lock(ctx context.Context, exclusive bool) (release func(), err error) {
	lockfile := s.path + ".lock"

	defer func() {
		if err != nil {
			s.log.ErrorContext(ctx, "lock failed", "lockfile", lockfile, "error", err)
		}
	}()

	mode := syscall.LOCK_SH
	unlockMutex := s.m.RUnlock

	if exclusive {
		mode = syscall.LOCK_EX
		unlockMutex = s.m.Unlock

		s.m.Lock()
	} else {
		s.m.RLock()
	}

	if err := os.MkdirAll(filepath.Dir(lockfile), 0o755); err != nil {
		unlockMutex()

		return nil, fmt.Errorf("mkdir all: %w", err)
	}

	file, err := os.OpenFile(lockfile, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		unlockMutex()

		return nil, fmt.Errorf("open lockfile: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), mode); err != nil {
		_ = file.Close()

		unlockMutex()

		return nil, fmt.Errorf("flock: %w", err)
	}

	return func() {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()

		unlockMutex()
	}, nil
}
