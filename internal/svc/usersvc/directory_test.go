package usersvc_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkrupp/saba-backend/internal/domain"
	"github.com/mkrupp/saba-backend/internal/repo/record"
	"github.com/mkrupp/saba-backend/internal/repo/user"
	"github.com/mkrupp/saba-backend/internal/svc/usersvc"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newDirectory(t *testing.T) *usersvc.Directory {
	t.Helper()

	store := record.NewMemoryStore(record.JSONCodec[[]domain.User]{}, []domain.User{})
	dir := usersvc.NewDirectoryWithRepository(user.NewFlatFileUserRepository(store))

	return dir.WithClock(func() time.Time { return fixedNow })
}

func TestDirectory_Create(t *testing.T) {
	t.Parallel()

	dir := newDirectory(t)
	ctx := context.Background()

	created, err := dir.Create(ctx, "  Ada ", "  Ada@Example.COM ", "secret")
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Ada", created.Name)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.Equal(t, fixedNow, created.CreatedAt)
	assert.Nil(t, created.LastLoginAt)

	stored, ok, err := dir.FindByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, created.ID, stored.ID)
	assert.NotEqual(t, "secret", stored.PasswordHash)

	cost, err := bcrypt.Cost([]byte(stored.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, usersvc.PasswordCost, cost)
}

func TestDirectory_CreateRejectsCaseInsensitiveDuplicate(t *testing.T) {
	t.Parallel()

	dir := newDirectory(t)
	ctx := context.Background()

	_, err := dir.Create(ctx, "Ada", "ada@example.com", "secret")
	require.NoError(t, err)

	_, err = dir.Create(ctx, "Other Ada", "ADA@EXAMPLE.COM", "other")
	require.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	users, err := dir.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestDirectory_CreateValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		userName string
		email    string
		password string
		wantErr  error
	}{
		{name: "missing name", userName: " ", email: "a@b.c", password: "x", wantErr: domain.ErrMissingField},
		{name: "missing email", userName: "A", email: "", password: "x", wantErr: domain.ErrMissingField},
		{name: "missing password", userName: "A", email: "a@b.c", password: "", wantErr: domain.ErrMissingField},
		{name: "email without at", userName: "A", email: "ab.c", password: "x", wantErr: domain.ErrInvalidEmail},
		{name: "email without local part", userName: "A", email: "@b.c", password: "x", wantErr: domain.ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := newDirectory(t)

			_, err := dir.Create(context.Background(), tt.userName, tt.email, tt.password)
			require.ErrorIs(t, err, tt.wantErr)

			users, err := dir.ListAll(context.Background())
			require.NoError(t, err)
			assert.Empty(t, users)
		})
	}
}

func TestDirectory_Verify(t *testing.T) {
	t.Parallel()

	dir := newDirectory(t)
	ctx := context.Background()

	created, err := dir.Create(ctx, "Ada", "ada@example.com", "secret")
	require.NoError(t, err)

	verified, err := dir.Verify(ctx, "Ada@Example.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, created.ID, verified.ID)
	assert.Equal(t, created.Name, verified.Name)
	assert.Equal(t, created.Email, verified.Email)
	require.NotNil(t, verified.LastLoginAt)
	assert.Equal(t, fixedNow, *verified.LastLoginAt)

	stored, ok, err := dir.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, stored.LastLoginAt)
}

func TestDirectory_VerifyFailuresAreIndistinguishable(t *testing.T) {
	t.Parallel()

	dir := newDirectory(t)
	ctx := context.Background()

	_, err := dir.Create(ctx, "Ada", "ada@example.com", "secret")
	require.NoError(t, err)

	_, wrongPassword := dir.Verify(ctx, "ada@example.com", "wrong")
	_, unknownEmail := dir.Verify(ctx, "nobody@example.com", "secret")

	require.ErrorIs(t, wrongPassword, domain.ErrInvalidCredentials)
	require.ErrorIs(t, unknownEmail, domain.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())

	stored, _, err := dir.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Nil(t, stored.LastLoginAt)
}

func TestDirectory_ConcurrentRegistrationsAreAllKept(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	repo, err := user.FlatFileUserRepositoryFactory(
		record.FileStoreConfig{Basedir: dataDir},
		user.FlatFileUserRepositoryConfig{Filename: "users.json"},
	)()
	require.NoError(t, err)

	dir := usersvc.NewDirectoryWithRepository(repo)
	ctx := context.Background()

	const workers = 8

	var wg sync.WaitGroup

	for i := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := dir.Create(ctx, "user", string(rune('a'+i))+"@example.com", "pw")
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	users, err := dir.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, users, workers)
}
