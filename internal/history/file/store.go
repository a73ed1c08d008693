// Package file implements the observation history as a JSON array on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/availmon/internal/monitor"
)

// CorruptSuffix is appended to a malformed history file before it is replaced.
const CorruptSuffix = ".corrupt"

// Config captures the parameters for the file-backed history store.
type Config struct {
	// Path is the JSON file holding the observation array.
	Path string `mapstructure:"path" yaml:"path"`
}

// Store reads and rewrites the whole history file on every append.
type Store struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// New creates a file-backed history store. The parent directory is created if missing.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("history path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	return &Store{path: cfg.Path, logger: logger}, nil
}

// Path returns the history file location.
func (s *Store) Path() string {
	return s.path
}

// LoadLast returns the chronologically last observation.
func (s *Store) LoadLast(_ context.Context) (monitor.Observation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return monitor.Observation{}, false, err
	}
	if len(entries) == 0 {
		return monitor.Observation{}, false, nil
	}
	return entries[len(entries)-1], true, nil
}

// List returns every observation in insertion order.
func (s *Store) List(_ context.Context) ([]monitor.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Append adds obs to the log and atomically rewrites the file. A malformed
// existing file is moved aside and the log restarts empty.
func (s *Store) Append(_ context.Context, obs monitor.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		s.logger.Error("history unreadable, starting a new log", zap.String("path", s.path), zap.Error(err))
		s.quarantine()
		entries = nil
	}
	entries = append(entries, obs)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", monitor.ErrHistoryWrite, err)
	}
	if err := writeAtomic(s.path, append(data, '\n')); err != nil {
		return fmt.Errorf("%w: %v", monitor.ErrHistoryWrite, err)
	}
	return nil
}

func (s *Store) read() ([]monitor.Observation, error) {
	// #nosec G304 -- path comes from operator configuration.
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", monitor.ErrHistoryRead, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var entries []monitor.Observation
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", monitor.ErrHistoryRead, s.path, err)
	}
	return entries, nil
}

func (s *Store) quarantine() {
	if _, err := os.Stat(s.path); err != nil {
		return
	}
	dst := s.path + CorruptSuffix
	if err := os.Rename(s.path, dst); err != nil {
		s.logger.Warn("could not preserve malformed history", zap.String("path", s.path), zap.Error(err))
		return
	}
	s.logger.Warn("malformed history preserved", zap.String("path", dst))
}

// writeAtomic writes data to a temp file in the target directory and renames
// it over path, so readers see either the old or the new file.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}
