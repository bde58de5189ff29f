package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mkrupp/saba-backend/internal/domain"
	"github.com/mkrupp/saba-backend/internal/infra/logging"
)

// SQLiteUserRepositoryConfig holds configuration for the SQLite user repository.
type SQLiteUserRepositoryConfig struct {
	// DatabasePath is the filesystem path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" default:"var/data/users.db"`
}

// SQLiteUserRepository implements Repository using SQLite as the storage backend.
// Emails are stored lowercased under a UNIQUE constraint.
type SQLiteUserRepository struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLiteUserRepository)(nil)

// SQLiteUserRepositoryFactory creates a factory function that returns a new SQLiteUserRepository.
func SQLiteUserRepositoryFactory(cfg SQLiteUserRepositoryConfig) RepositoryFactory {
	return func() (Repository, error) {
		return NewSQLiteUserRepository(cfg)
	}
}

// NewSQLiteUserRepository opens the database and creates the schema if needed.
func NewSQLiteUserRepository(cfg SQLiteUserRepositoryConfig) (*SQLiteUserRepository, error) {
	log := logging.GetLogger("repo.user.sqlite_user_repository").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir all: %w", err)
	}

	// pragmas in the DSN apply to every pooled connection
	db, err := sql.Open("sqlite", "file:"+cfg.DatabasePath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Join(fmt.Errorf("ping db: %w", err), db.Close())
	}

	if err := initializeDB(db); err != nil {
		return nil, errors.Join(fmt.Errorf("initialize db: %w", err), db.Close())
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(1)

	return &SQLiteUserRepository{
		db:        db,
		log:       log,
		writeLock: new(sync.Mutex),
	}, nil
}

func initializeDB(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			seq           INTEGER PRIMARY KEY AUTOINCREMENT,
			id            TEXT    UNIQUE NOT NULL,
			name          TEXT    NOT NULL,
			email         TEXT    UNIQUE NOT NULL,
			password_hash TEXT    NOT NULL,
			created_at    TEXT    NOT NULL,
			last_login_at TEXT
		)
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

const selectUsers = "SELECT id, name, email, password_hash, created_at, last_login_at FROM users"

// ListAll implements Repository.ListAll.
func (r *SQLiteUserRepository) ListAll(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, selectUsers+" ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}

		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// FindByEmail implements Repository.FindByEmail.
func (r *SQLiteUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, bool, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, selectUsers+" WHERE email = ?", NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}

		return nil, false, err
	}

	return &user, true, nil
}

// Insert implements Repository.Insert.
func (r *SQLiteUserRepository) Insert(ctx context.Context, user domain.User) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, password_hash, created_at, last_login_at) VALUES (?, ?, ?, ?, ?, ?)",
		user.ID,
		user.Name,
		NormalizeEmail(user.Email),
		user.PasswordHash,
		formatTime(user.CreatedAt),
		formatNullTime(user.LastLoginAt),
	)
	if err != nil {
		var liteErr *sqlite.Error
		if errors.As(err, &liteErr) {
			// primary code in the low byte, extended codes above it
			if liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
				err = errors.Join(domain.ErrUserAlreadyExists, err)
			}
		}

		return fmt.Errorf("insert user: %w", err)
	}

	r.log.DebugContext(ctx, "user inserted", logging.Group("user", "id", user.ID))

	return nil
}

// Update implements Repository.Update.
func (r *SQLiteUserRepository) Update(ctx context.Context, user domain.User) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET name = ?, email = ?, password_hash = ?, last_login_at = ? WHERE id = ?",
		user.Name,
		NormalizeEmail(user.Email),
		user.PasswordHash,
		formatNullTime(user.LastLoginAt),
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("update user: %w", domain.ErrUserNotFound)
	}

	return nil
}

// Close implements Repository.Close by closing the database connection.
func (r *SQLiteUserRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		user        domain.User
		createdAt   string
		lastLoginAt sql.NullString
	)

	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &createdAt, &lastLoginAt); err != nil {
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}

	var err error

	if user.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return domain.User{}, fmt.Errorf("parse created_at: %w", err)
	}

	if lastLoginAt.Valid {
		ts, err := time.Parse(time.RFC3339Nano, lastLoginAt.String)
		if err != nil {
			return domain.User{}, fmt.Errorf("parse last_login_at: %w", err)
		}

		user.LastLoginAt = &ts
	}

	return user, nil
}

func formatTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

func formatNullTime(ts *time.Time) sql.NullString {
	if ts == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: formatTime(*ts), Valid: true}
}
