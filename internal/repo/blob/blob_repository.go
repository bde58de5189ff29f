package blob

import (
	"context"

	"github.com/mkrupp/saba-backend/internal/domain"
)

// Repository defines the interface for blob storage operations.
type Repository interface {
	// Exists checks if a blob with the given ID exists.
	Exists(ctx context.Context, id domain.BlobID) bool

	// Store persists a new blob. It never overwrites: storing an ID that
	// already exists fails with os.ErrExist.
	Store(ctx context.Context, blob *domain.Blob) error

	// Fetch retrieves a blob by its ID.
	Fetch(ctx context.Context, id domain.BlobID) (*domain.Blob, error)

	// Delete removes a blob with the given ID.
	Delete(ctx context.Context, id domain.BlobID) error

	// List returns the IDs of all stored blobs in lexical order.
	List(ctx context.Context) ([]domain.BlobID, error)

	// Path returns the filesystem location of the blob with the given ID.
	Path(id domain.BlobID) (string, error)
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func(ctx context.Context) (Repository, error)
