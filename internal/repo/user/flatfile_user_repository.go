package user

import (
	"context"
	"fmt"

	"github.com/mkrupp/saba-backend/internal/domain"
	"github.com/mkrupp/saba-backend/internal/infra/logging"
	"github.com/mkrupp/saba-backend/internal/repo/record"
)

// FlatFileUserRepositoryConfig holds configuration for the JSON file user repository.
type FlatFileUserRepositoryConfig struct {
	// Filename is the name of the users document inside the data directory
	Filename string `env:"FILENAME" default:"users.json"`
}

// FlatFileUserRepository implements Repository on a record.Store holding a
// JSON array of users. Lookups are linear scans.
type FlatFileUserRepository struct {
	store record.Store[[]domain.User]
	log   logging.Logger
}

var _ Repository = (*FlatFileUserRepository)(nil)

// FlatFileUserRepositoryFactory creates a factory returning a file-backed repository
// under the given data directory.
func FlatFileUserRepositoryFactory(dataCfg record.FileStoreConfig, cfg FlatFileUserRepositoryConfig) RepositoryFactory {
	return func() (Repository, error) {
		store := record.NewFileStore(dataCfg, cfg.Filename, record.JSONCodec[[]domain.User]{}, []domain.User{})

		return NewFlatFileUserRepository(store), nil
	}
}

// NewFlatFileUserRepository creates a repository on top of the given store.
func NewFlatFileUserRepository(store record.Store[[]domain.User]) *FlatFileUserRepository {
	return &FlatFileUserRepository{
		store: store,
		log:   logging.GetLogger("repo.user.flatfile_user_repository"),
	}
}

// ListAll implements Repository.ListAll.
func (r *FlatFileUserRepository) ListAll(ctx context.Context) ([]domain.User, error) {
	users, err := r.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read users: %w", err)
	}

	return users, nil
}

// FindByEmail implements Repository.FindByEmail.
func (r *FlatFileUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, bool, error) {
	users, err := r.ListAll(ctx)
	if err != nil {
		return nil, false, err
	}

	if idx := indexByEmail(users, email); idx >= 0 {
		return &users[idx], true, nil
	}

	return nil, false, nil
}

// Insert implements Repository.Insert. The uniqueness check and the append
// happen inside one locked update.
func (r *FlatFileUserRepository) Insert(ctx context.Context, user domain.User) error {
	err := r.store.Update(ctx, func(users *[]domain.User) error {
		if indexByEmail(*users, user.Email) >= 0 {
			return domain.ErrUserAlreadyExists
		}

		*users = append(*users, user)

		return nil
	})
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	r.log.DebugContext(ctx, "user inserted", logging.Group("user", "id", user.ID))

	return nil
}

// Update implements Repository.Update.
func (r *FlatFileUserRepository) Update(ctx context.Context, user domain.User) error {
	err := r.store.Update(ctx, func(users *[]domain.User) error {
		for i := range *users {
			if (*users)[i].ID == user.ID {
				(*users)[i] = user

				return nil
			}
		}

		return domain.ErrUserNotFound
	})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	return nil
}

// Close implements Repository.Close. The file store holds no open handles.
func (r *FlatFileUserRepository) Close() error {
	return nil
}

func indexByEmail(users []domain.User, email string) int {
	key := NormalizeEmail(email)

	for i := range users {
		if NormalizeEmail(users[i].Email) == key {
			return i
		}
	}

	return -1
}
