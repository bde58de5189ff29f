package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mkrupp/saba-backend/internal/domain"
	"github.com/mkrupp/saba-backend/internal/infra/logging"
)

var (
	ErrBytesWrittenMismatch = errors.New("bytes written mismatch")
	ErrBytesReadMismatch    = errors.New("bytes read mismatch")
)

// FileSystemBlobRepositoryConfig holds configuration for the filesystem-based blob repository.
type FileSystemBlobRepositoryConfig struct {
	// Basedir is the directory blobs are stored in
	Basedir string `env:"UPLOAD_DIR" default:"var/uploads/pdfs"`
}

// FileSystemBlobRepositoryFactory creates a factory function that returns a new FileSystemRepository.
func FileSystemBlobRepositoryFactory(cfg FileSystemBlobRepositoryConfig) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		return NewFileSystemBlobRepository(ctx, cfg)
	}
}

// NewFileSystemBlobRepository creates the storage directory and returns a repository on it.
func NewFileSystemBlobRepository(
	ctx context.Context,
	cfg FileSystemBlobRepositoryConfig,
) (*FileSystemRepository, error) {
	log := logging.GetLogger("repo.blob.filesystem_repository").With(
		logging.Group("repo", "basedir", cfg.Basedir),
	)

	repo := &FileSystemRepository{
		cfg: cfg,
		log: log,
	}

	if err := repo.initStorage(ctx); err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}

	return repo, nil
}

// FileSystemRepository implements Repository as one flat directory; the blob
// ID is the filename.
type FileSystemRepository struct {
	cfg FileSystemBlobRepositoryConfig
	log logging.Logger
}

var _ Repository = (*FileSystemRepository)(nil)

// Exists implements Repository.Exists.
func (fsRepo *FileSystemRepository) Exists(_ context.Context, id domain.BlobID) bool {
	filename, err := fsRepo.Path(id)
	if err != nil {
		return false
	}

	info, err := os.Stat(filename)

	return err == nil && info.Mode().IsRegular()
}

// Store implements Repository.Store.
func (fsRepo *FileSystemRepository) Store(ctx context.Context, blob *domain.Blob) error {
	if err := fsRepo.storeBlob(ctx, blob); err != nil {
		return fmt.Errorf("store blob: %w", err)
	}

	return nil
}

// Fetch implements Repository.Fetch.
func (fsRepo *FileSystemRepository) Fetch(ctx context.Context, id domain.BlobID) (*domain.Blob, error) {
	blob, err := fsRepo.fetchBlob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch blob: %w", err)
	}

	return blob, nil
}

// Delete implements Repository.Delete.
func (fsRepo *FileSystemRepository) Delete(ctx context.Context, id domain.BlobID) (err error) {
	defer func() {
		log := fsRepo.log.With(logging.Group("blob", "id", id))
		if err != nil {
			log.ErrorContext(ctx, "blob delete failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob deleted")
		}
	}()

	filename, err := fsRepo.Path(id)
	if err != nil {
		return err
	}

	if err := os.Remove(filename); err != nil {
		return fmt.Errorf("remove: %w", err)
	}

	return nil
}

// List implements Repository.List.
func (fsRepo *FileSystemRepository) List(_ context.Context) ([]domain.BlobID, error) {
	entries, err := os.ReadDir(fsRepo.cfg.Basedir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	ids := make([]domain.BlobID, 0, len(entries))

	for _, entry := range entries {
		if entry.Type().IsRegular() {
			ids = append(ids, domain.BlobID(entry.Name()))
		}
	}

	slices.Sort(ids)

	return ids, nil
}

// Path implements Repository.Path. IDs containing path separators or naming
// the directory itself are rejected with domain.ErrInvalidFilename.
func (fsRepo *FileSystemRepository) Path(id domain.BlobID) (string, error) {
	name := string(id)

	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidFilename, name)
	}

	return filepath.Join(fsRepo.cfg.Basedir, name), nil
}

func (fsRepo *FileSystemRepository) initStorage(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			fsRepo.log.ErrorContext(ctx, "init storage failed", "error", err)
		} else {
			fsRepo.log.DebugContext(ctx, "init storage")
		}
	}()

	if err := os.MkdirAll(fsRepo.cfg.Basedir, 0o755); err != nil {
		return fmt.Errorf("mkdir all: %w", err)
	}

	return nil
}

func (fsRepo *FileSystemRepository) storeBlob(ctx context.Context, blob *domain.Blob) (err error) {
	filename, err := fsRepo.Path(blob.ID)
	if err != nil {
		return err
	}

	defer func() {
		log := fsRepo.log.With(logging.Group("blob", "id", blob.ID, "filename", filename))
		if err != nil {
			log.ErrorContext(ctx, "blob store failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob stored", "size", blob.Size())
		}
	}()

	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}

	defer func() {
		if err != nil {
			_ = os.Remove(filename)
		}
	}()
	defer file.Close()

	if n, err := blob.WriteTo(file); err != nil {
		return fmt.Errorf("write: %w", err)
	} else if err := file.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	} else if n != blob.Size() {
		return fmt.Errorf("%w: expected %d, got %d", ErrBytesWrittenMismatch, blob.Size(), n)
	}

	return nil
}

func (fsRepo *FileSystemRepository) fetchBlob(
	ctx context.Context,
	blobID domain.BlobID,
) (blob *domain.Blob, err error) {
	filename, err := fsRepo.Path(blobID)
	if err != nil {
		return nil, err
	}

	defer func() {
		log := fsRepo.log.With(logging.Group("blob", "id", blobID, "filename", filename))
		if err != nil {
			log.ErrorContext(ctx, "blob fetch failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob fetched")
		}
	}()

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer file.Close()

	//nolint:exhaustruct
	data := &domain.Blob{ID: blobID}
	if n, err := data.ReadFrom(file); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	} else if info, err := file.Stat(); err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	} else if n != info.Size() {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrBytesReadMismatch, info.Size(), n)
	}

	return data, nil
}
