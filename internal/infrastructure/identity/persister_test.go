package identity

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agrovagas/platform/internal/core/domain"
)

func TestFilePersister(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	p := NewFilePersister(path)

	sess, err := p.Load()
	if err != nil || sess != nil {
		t.Fatalf("expected nil session for missing file, got %+v (%v)", sess, err)
	}

	want := &domain.Session{
		AccessToken: "tok",
		ExpiresAt:   time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		Identity:    &domain.Identity{ID: "acct-1", Email: "ana@campo.br"},
	}
	if err := p.Save(want); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}

	got, err := p.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.Identity.ID != "acct-1" || !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := p.Clear(); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if err := p.Clear(); err != nil {
		t.Fatalf("second Clear returned error: %v", err)
	}
}

func TestFilePersister_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFilePersister(path).Load(); err == nil {
		t.Fatalf("expected decode error")
	}
}
