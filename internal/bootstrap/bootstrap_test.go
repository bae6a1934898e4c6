package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"agentchat/internal/config"
	"agentchat/internal/storage"
)

func testConfig(t *testing.T, baseURL string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.BaseDir = filepath.Join(t.TempDir(), "data")
	if baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	return cfg
}

func backendServer(t *testing.T, taskStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "u1", "email": "a@b.c"})
	})
	mux.HandleFunc("/sessions/s1/messages", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"messages": []any{}, "session_id": "s1"})
	})
	mux.HandleFunc("/agents/orchestrator/tasks", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(taskStatus)
		_, _ = w.Write([]byte(`{"id":"t1","status":{"state":"completed"},"session_id":"s1"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func seedStore(t *testing.T, cfg config.Config, values map[string]string) {
	t.Helper()
	store, err := storage.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	for k, v := range values {
		if err := store.Set(k, v); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestBuildSQLiteBackend(t *testing.T) {
	cfg := testConfig(t, "")
	res, err := Build(context.Background(), cfg, Options{SkipRestore: true})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer res.Close()
	if res.Orch == nil || res.Auth == nil || res.Sessions == nil || res.History == nil {
		t.Fatalf("incomplete result: %+v", res)
	}
	if _, err := os.Stat(cfg.DBPath()); err != nil {
		t.Fatalf("db file missing: %v", err)
	}
	if _, ok := res.Store.(*storage.SQLiteStore); !ok {
		t.Fatalf("store=%T, want *storage.SQLiteStore", res.Store)
	}
}

func TestBuildFileBackend(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Storage.Backend = config.StorageBackendFile
	res, err := Build(context.Background(), cfg, Options{SkipRestore: true})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer res.Close()
	if _, ok := res.Store.(*storage.FileStore); !ok {
		t.Fatalf("store=%T, want *storage.FileStore", res.Store)
	}
}

func TestBuildUnsupportedBackendFails(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Storage.Backend = "redis"
	if _, err := Build(context.Background(), cfg, Options{}); err == nil {
		t.Fatal("Build with unsupported backend should fail")
	}
}

func TestBuildEphemeralLeavesDiskUntouched(t *testing.T) {
	cfg := testConfig(t, "")
	res, err := Build(context.Background(), cfg, Options{Ephemeral: true})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer res.Close()
	if _, err := os.Stat(cfg.Storage.BaseDir); !os.IsNotExist(err) {
		t.Fatalf("base dir should not exist, stat err=%v", err)
	}
	if res.Auth.IsAuthenticated() {
		t.Fatal("ephemeral build should start signed out")
	}
}

func TestBuildRestoresPersistedCredentials(t *testing.T) {
	srv := backendServer(t, http.StatusOK)
	cfg := testConfig(t, srv.URL)
	seedStore(t, cfg, map[string]string{
		storage.KeyAuthToken:        "tok",
		storage.KeyCurrentSessionID: "s1",
	})

	res, err := Build(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer res.Close()

	if !res.Auth.IsAuthenticated() {
		t.Fatal("expected restored authentication")
	}
	if got := res.Client.Token(); got != "tok" {
		t.Fatalf("client token=%q, want tok", got)
	}
	if p := res.Auth.Profile(); p == nil || p.ID != "u1" {
		t.Fatalf("profile=%+v, want u1", p)
	}
	if id, ok := res.Sessions.Current(); !ok || id != "s1" {
		t.Fatalf("session=%q ok=%v, want s1", id, ok)
	}
}

func TestBuildMigratesLegacyTokenFile(t *testing.T) {
	srv := backendServer(t, http.StatusOK)
	cfg := testConfig(t, srv.URL)
	if err := os.MkdirAll(cfg.Storage.BaseDir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Storage.BaseDir, "token"), []byte("tok\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	res, err := Build(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer res.Close()
	if !res.Auth.IsAuthenticated() {
		t.Fatal("legacy token should be migrated and restored")
	}
	if _, ok := res.Sessions.Current(); ok {
		t.Fatal("no session id was migrated, want no session")
	}
}

func TestUnauthorizedTaskClearsCredentialsAndSession(t *testing.T) {
	srv := backendServer(t, http.StatusUnauthorized)
	cfg := testConfig(t, srv.URL)
	seedStore(t, cfg, map[string]string{
		storage.KeyAuthToken:        "tok",
		storage.KeyCurrentSessionID: "s1",
	})
	res, err := Build(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer res.Close()

	if err := res.Orch.Submit(context.Background(), "Hello"); err == nil {
		t.Fatal("Submit should fail on 401")
	}
	if res.Auth.IsAuthenticated() {
		t.Fatal("401 should clear authentication")
	}
	if _, ok := res.Sessions.Current(); ok {
		t.Fatal("401 should clear the session")
	}
	if _, ok, _ := res.Store.Get(storage.KeyAuthToken); ok {
		t.Fatal("token should be deleted from the store")
	}
	entries := res.Log.Entries()
	if got := entries[len(entries)-1].Text; got != "Your session has expired. Please log in again." {
		t.Fatalf("last entry=%q", got)
	}
}
