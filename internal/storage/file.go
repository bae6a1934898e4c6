package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore 基于目录的持久化实现：state/kv.json + logs/auth.jsonl
// FileStore implements Store on plain files: state/kv.json and logs/auth.jsonl
type FileStore struct {
	mu       sync.Mutex
	baseDir  string
	stateDir string
	logsDir  string
	values   map[string]string
}

func NewFileStore(baseDir string) (*FileStore, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return nil, fmt.Errorf("storage base dir is empty")
	}
	s := &FileStore{
		baseDir:  baseDir,
		stateDir: filepath.Join(baseDir, "state"),
		logsDir:  filepath.Join(baseDir, "logs"),
		values:   make(map[string]string),
	}
	for _, dir := range []string{s.baseDir, s.stateDir, s.logsDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
		}
	}
	if err := readJSONFile(s.kvPath(), &s.values); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}
	return s, nil
}

func (s *FileStore) kvPath() string  { return filepath.Join(s.stateDir, "kv.json") }
func (s *FileStore) logPath() string { return filepath.Join(s.logsDir, "auth.jsonl") }

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *FileStore) Set(key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.values[key]
	s.values[key] = value
	if err := writeJSONFile(s.kvPath(), s.values); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.values[key]
	if !had {
		return nil
	}
	delete(s.values, key)
	if err := writeJSONFile(s.kvPath(), s.values); err != nil {
		s.values[key] = prev
		return err
	}
	return nil
}

func (s *FileStore) LogAuth(entry AuthEntry) error {
	if strings.TrimSpace(entry.CreatedAt) == "" {
		entry.CreatedAt = nowUTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.logPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.logPath(), err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(entry); err != nil {
		return fmt.Errorf("write %s: %w", s.logPath(), err)
	}
	return nil
}

func (s *FileStore) ListAuthLog(limit int) ([]AuthEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Open(s.logPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", s.logPath(), err)
	}
	defer f.Close()

	var entries []AuthEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e AuthEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.logPath(), err)
	}
	n := clampLimit(limit, len(entries))
	return entries[len(entries)-n:], nil
}

func (s *FileStore) Close() error { return nil }

// writeJSONFile 先写临时文件再重命名，避免半写状态
// writeJSONFile writes via a temp file and rename so readers never see a partial file
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
