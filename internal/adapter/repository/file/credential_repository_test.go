package file

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/V4T54L/watch-tower-console/internal/domain"
)

func TestCredentialRepository(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("Load Without File", func(t *testing.T) {
		repo := NewCredentialRepository(filepath.Join(t.TempDir(), "token"), logger)

		_, err := repo.Load(ctx)
		if !errors.Is(err, domain.ErrNoCredential) {
			t.Fatalf("expected ErrNoCredential, got %v", err)
		}
	})

	t.Run("Save Then Load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "token")
		repo := NewCredentialRepository(path, logger)

		if err := repo.Save(ctx, "abc.def.ghi"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		token, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "abc.def.ghi" {
			t.Errorf("unexpected token: got %q", token)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat credential file: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("expected mode 0600, got %o", perm)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewCredentialRepository(filepath.Join(t.TempDir(), "token"), logger)
		if err := repo.Save(ctx, "tok"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if err := repo.Delete(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := repo.Delete(ctx); err != nil {
			t.Fatalf("deleting twice should not fail, got %v", err)
		}
		if _, err := repo.Load(ctx); !errors.Is(err, domain.ErrNoCredential) {
			t.Errorf("expected ErrNoCredential after delete, got %v", err)
		}
	})

	t.Run("Blank File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token")
		if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
			t.Fatal(err)
		}
		repo := NewCredentialRepository(path, logger)

		if _, err := repo.Load(ctx); !errors.Is(err, domain.ErrNoCredential) {
			t.Errorf("expected ErrNoCredential, got %v", err)
		}
	})
}
