package user

import (
	"context"
	"strings"

	"github.com/mkrupp/saba-backend/internal/domain"
)

// Repository defines the interface for user directory persistence.
type Repository interface {
	// ListAll returns every user in insertion order.
	ListAll(ctx context.Context) ([]domain.User, error)

	// FindByEmail looks a user up by email, ignoring case.
	// Returns the user and true if found, or nil and false if not found.
	FindByEmail(ctx context.Context, email string) (*domain.User, bool, error)

	// Insert appends a new user.
	// Returns domain.ErrUserAlreadyExists if the lowercased email is already taken.
	Insert(ctx context.Context, user domain.User) error

	// Update replaces the stored user that has the same ID.
	// Returns domain.ErrUserNotFound if there is none.
	Update(ctx context.Context, user domain.User) error

	// Close releases any resources held by the repository.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func() (Repository, error)

// NormalizeEmail returns the key under which an email is unique.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
