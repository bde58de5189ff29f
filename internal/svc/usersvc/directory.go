// Package usersvc manages registered accounts: uniqueness by email, password
// hashing and credential verification.
package usersvc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkrupp/saba-backend/internal/domain"
	"github.com/mkrupp/saba-backend/internal/infra/logging"
	"github.com/mkrupp/saba-backend/internal/repo/user"
)

// PasswordCost is the bcrypt work factor used for new password hashes.
const PasswordCost = 10

// Directory provides the user directory operations on top of a user.Repository.
type Directory struct {
	repo user.Repository
	log  logging.Logger
	now  func() time.Time
	cost int
}

// NewDirectory creates a Directory from the given repository factory.
func NewDirectory(repoFactory user.RepositoryFactory) (*Directory, error) {
	repo, err := repoFactory()
	if err != nil {
		return nil, fmt.Errorf("new user repo: %w", err)
	}

	return NewDirectoryWithRepository(repo), nil
}

// NewDirectoryWithRepository creates a Directory on an already opened repository.
func NewDirectoryWithRepository(repo user.Repository) *Directory {
	return &Directory{
		repo: repo,
		log:  logging.GetLogger("svc.usersvc.directory"),
		now:  time.Now,
		cost: PasswordCost,
	}
}

// WithClock returns a copy of the directory that reads the time from now.
func (d *Directory) WithClock(now func() time.Time) *Directory {
	clone := *d
	clone.now = now

	return &clone
}

// ListAll returns every registered user in registration order.
func (d *Directory) ListAll(ctx context.Context) ([]domain.User, error) {
	users, err := d.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

// FindByEmail looks a user up by email, ignoring case and surrounding whitespace.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*domain.User, bool, error) {
	found, ok, err := d.repo.FindByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		return nil, false, fmt.Errorf("find user: %w", err)
	}

	return found, ok, nil
}

// Create registers a new user and returns its public projection.
func (d *Directory) Create(ctx context.Context, name, email, password string) (_ domain.PublicUser, err error) {
	name = strings.TrimSpace(name)
	email = user.NormalizeEmail(email)

	log := d.log.With(logging.Group("user", "email", email))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "create user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user created")
		}
	}()

	if err := validate(name, email, password); err != nil {
		return domain.PublicUser{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return domain.PublicUser{}, fmt.Errorf("hash password: %w", err)
	}

	created := domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    d.now().UTC(),
		LastLoginAt:  nil,
	}

	if err := d.repo.Insert(ctx, created); err != nil {
		return domain.PublicUser{}, fmt.Errorf("insert user: %w", err)
	}

	return created.Public(), nil
}

// Verify checks the credentials and stamps the last login time. Unknown emails
// and wrong passwords both yield domain.ErrInvalidCredentials.
func (d *Directory) Verify(ctx context.Context, email, password string) (_ domain.PublicUser, err error) {
	email = user.NormalizeEmail(email)

	log := d.log.With(logging.Group("user", "email", email))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "verify user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user verified")
		}
	}()

	if email == "" || password == "" {
		return domain.PublicUser{}, domain.ErrMissingField
	}

	found, ok, err := d.repo.FindByEmail(ctx, email)
	if err != nil {
		return domain.PublicUser{}, fmt.Errorf("find user: %w", err)
	} else if !ok {
		return domain.PublicUser{}, domain.ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return domain.PublicUser{}, domain.ErrInvalidCredentials
	} else if err != nil {
		return domain.PublicUser{}, errors.Join(domain.ErrInvalidCredentials, err)
	}

	loginAt := d.now().UTC()
	verified := *found
	verified.LastLoginAt = &loginAt

	if err := d.repo.Update(ctx, verified); err != nil {
		return domain.PublicUser{}, fmt.Errorf("update user: %w", err)
	}

	return verified.Public(), nil
}

// Close releases the underlying repository.
func (d *Directory) Close() error {
	if err := d.repo.Close(); err != nil {
		return fmt.Errorf("close user repo: %w", err)
	}

	return nil
}

func validate(name, email, password string) error {
	var missing []string

	if name == "" {
		missing = append(missing, "name")
	}

	if email == "" {
		missing = append(missing, "email")
	}

	if password == "" {
		missing = append(missing, "password")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrMissingField, strings.Join(missing, ", "))
	}

	if local, domainPart, ok := strings.Cut(email, "@"); !ok || local == "" || domainPart == "" {
		return fmt.Errorf("%w: %q", domain.ErrInvalidEmail, email)
	}

	return nil
}
