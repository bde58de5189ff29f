package blob_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mkrupp/saba-backend/internal/domain"

	. "github.com/mkrupp/saba-backend/internal/repo/blob"
)

func setupFileSystemBlobTestRepo(t *testing.T) (repo *FileSystemRepository, dir string) {
	t.Helper()

	dir = filepath.Join(t.TempDir(), "uploads", "pdfs")

	repo, err := NewFileSystemBlobRepository(context.TODO(), FileSystemBlobRepositoryConfig{Basedir: dir})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("expected storage dir to be created: %v", err)
	}

	return repo, dir
}

func TestFileSystemBlobRepository_StoreAndFetch(t *testing.T) {
	t.Parallel()

	repo, dir := setupFileSystemBlobTestRepo(t)

	tests := []struct {
		name string
		blob *domain.Blob
	}{
		{
			name: "handles regular blob",
			blob: domain.NewBlob("1700000000000-report.pdf", []byte("%PDF-1.4 content")),
		},
		{
			name: "handles empty blob",
			blob: domain.NewBlob("1700000000001-empty.pdf", []byte{}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if err := repo.Store(context.TODO(), tt.blob); err != nil {
				t.Fatalf("failed to store blob: %v", err)
			}

			content, err := os.ReadFile(filepath.Join(dir, string(tt.blob.ID)))
			if err != nil {
				t.Fatalf("failed to read stored file: %v", err)
			}

			if !bytes.Equal(tt.blob.Body, content) {
				t.Errorf("content mismatch\nwant: %s\ngot:  %s", tt.blob.Body, content)
			}

			fetched, err := repo.Fetch(context.TODO(), tt.blob.ID)
			if err != nil {
				t.Fatalf("failed to fetch blob: %v", err)
			}

			if !bytes.Equal(tt.blob.Body, fetched.Body) {
				t.Errorf("fetched content mismatch")
			}

			if !repo.Exists(context.TODO(), tt.blob.ID) {
				t.Errorf("expected blob to exist")
			}
		})
	}
}

func TestFileSystemBlobRepository_StoreNeverOverwrites(t *testing.T) {
	t.Parallel()

	repo, _ := setupFileSystemBlobTestRepo(t)

	if err := repo.Store(context.TODO(), domain.NewBlob("dup.pdf", []byte("first"))); err != nil {
		t.Fatalf("failed to store blob: %v", err)
	}

	err := repo.Store(context.TODO(), domain.NewBlob("dup.pdf", []byte("second")))
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("expected os.ErrExist, got %v", err)
	}

	fetched, err := repo.Fetch(context.TODO(), "dup.pdf")
	if err != nil {
		t.Fatalf("failed to fetch blob: %v", err)
	}

	if string(fetched.Body) != "first" {
		t.Errorf("blob was overwritten: %q", fetched.Body)
	}
}

func TestFileSystemBlobRepository_RejectsEscapingIDs(t *testing.T) {
	t.Parallel()

	repo, _ := setupFileSystemBlobTestRepo(t)

	for _, id := range []domain.BlobID{"", ".", "..", "../evil.pdf", "a/b.pdf", `a\b.pdf`} {
		if err := repo.Store(context.TODO(), domain.NewBlob(id, []byte("x"))); !errors.Is(err, domain.ErrInvalidFilename) {
			t.Errorf("Store(%q) error = %v, want ErrInvalidFilename", id, err)
		}

		if repo.Exists(context.TODO(), id) {
			t.Errorf("Exists(%q) = true", id)
		}
	}
}

func TestFileSystemBlobRepository_ListAndDelete(t *testing.T) {
	t.Parallel()

	repo, _ := setupFileSystemBlobTestRepo(t)

	for _, id := range []domain.BlobID{"2-b.pdf", "1-a.pdf"} {
		if err := repo.Store(context.TODO(), domain.NewBlob(id, []byte("x"))); err != nil {
			t.Fatalf("failed to store blob: %v", err)
		}
	}

	ids, err := repo.List(context.TODO())
	if err != nil {
		t.Fatalf("failed to list blobs: %v", err)
	}

	if len(ids) != 2 || ids[0] != "1-a.pdf" || ids[1] != "2-b.pdf" {
		t.Errorf("List() = %v", ids)
	}

	if err := repo.Delete(context.TODO(), "1-a.pdf"); err != nil {
		t.Fatalf("failed to delete blob: %v", err)
	}

	if err := repo.Delete(context.TODO(), "1-a.pdf"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("second delete error = %v, want os.ErrNotExist", err)
	}

	if _, err := repo.Fetch(context.TODO(), "missing.pdf"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("fetch missing error = %v, want os.ErrNotExist", err)
	}
}
