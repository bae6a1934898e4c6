package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMigrateLegacyFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	write("token", "legacy-token\n")
	write("refresh_token", "   ")
	write("session_id", "legacy-session")

	store := NewMemoryStore()
	_ = store.Set(KeyCurrentSessionID, "already-set")

	n, err := MigrateLegacyFiles(dir, store)
	if err != nil {
		t.Fatalf("MigrateLegacyFiles: %v", err)
	}
	if n != 1 {
		t.Fatalf("migrated=%d, want 1", n)
	}
	if got, _, _ := store.Get(KeyAuthToken); got != "legacy-token" {
		t.Fatalf("token=%q, want legacy-token", got)
	}
	if _, ok, _ := store.Get(KeyRefreshToken); ok {
		t.Fatalf("blank refresh token should be skipped")
	}
	if got, _, _ := store.Get(KeyCurrentSessionID); got != "already-set" {
		t.Fatalf("session id=%q, existing value must win", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "token")); err != nil {
		t.Fatalf("legacy file should be kept: %v", err)
	}
}

func TestMigrateLegacyFiles_MissingDir(t *testing.T) {
	n, err := MigrateLegacyFiles(filepath.Join(t.TempDir(), "nope"), NewMemoryStore())
	if err != nil || n != 0 {
		t.Fatalf("n=%d err=%v, want 0 nil", n, err)
	}
}
