// Package capconfig persists which capabilities are enabled.
//
// The file is a flat map of configuration keys to booleans, in YAML or JSON
// (chosen by extension). Missing keys take their default, so adding a
// capability never requires editing existing files. The store is consulted on
// every decision cycle; edits made through Set, SetBulk or directly on disk
// (picked up by Watch) apply to the next cycle without a restart.
package capconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ErrUnknownKey is returned when setting a key that has no default.
var ErrUnknownKey = errors.New("unknown capability key")

// Defaults enables everything.
var Defaults = map[string]bool{
	"core_memory":       true,
	"episodic_memory":   true,
	"think_tool":        true,
	"task_complete":     true,
	"calendar":          true,
	"nutrition_handler": true,
	"workout_handler":   true,
	"gmail_handler":     true,
	"web_search":        true,
}

// Store is the enable map. It is safe for concurrent use.
type Store struct {
	path     string
	mu       sync.RWMutex
	values   map[string]bool
	logger   *slog.Logger
	onChange func(map[string]bool)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// OnChange registers a callback receiving a snapshot after every change,
// including reloads triggered by Watch.
func OnChange(fn func(map[string]bool)) Option {
	return func(s *Store) {
		s.onChange = fn
	}
}

// Open loads the file at path, creating it with the defaults when missing.
// An empty path keeps the map in memory only.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:   path,
		values: maps.Clone(Defaults),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if path == "" {
		return s, nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.write(s.values); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file, or "" for a memory-only store.
func (s *Store) Path() string {
	return s.path
}

// IsEnabled reports whether key is enabled. Unknown keys are enabled.
func (s *Store) IsEnabled(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return !ok || v
}

// Snapshot returns a copy of the whole map.
func (s *Store) Snapshot() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

// Set changes one key and persists the map.
func (s *Store) Set(key string, enabled bool) error {
	return s.SetBulk(map[string]bool{key: enabled})
}

// SetBulk changes several keys at once. Nothing changes if any key is unknown.
func (s *Store) SetBulk(changes map[string]bool) error {
	var unknown []string
	for k := range changes {
		if _, ok := Defaults[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(unknown, ", "))
	}

	s.mu.Lock()
	next := maps.Clone(s.values)
	maps.Copy(next, changes)
	if err := s.write(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.values = next
	s.mu.Unlock()

	s.logger.Info("Capability config updated", "changes", changes)
	s.notify()
	return nil
}

// Reload re-reads the file, merging it over the defaults.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("reading capability config: %w", err)
	}
	file := map[string]bool{}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("parsing capability config %s: %w", s.path, err)
		}
	}
	next := maps.Clone(Defaults)
	maps.Copy(next, file)

	s.mu.Lock()
	changed := !maps.Equal(s.values, next)
	s.values = next
	s.mu.Unlock()

	if changed {
		s.logger.Info("Capability config reloaded", "path", s.path)
		s.notify()
	}
	return nil
}

// Watch reloads the map whenever the file changes on disk, until ctx is done.
// Parse errors are logged and the previous map is kept.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: editors and our own atomic writes replace the file.
	target := filepath.Clean(s.path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", target, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := s.Reload(); err != nil {
				s.logger.Warn("Capability config reload failed", "path", target, "err", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Capability config watcher error", "err", err)
		}
	}
}

func (s *Store) notify() {
	if s.onChange != nil {
		s.onChange(s.Snapshot())
	}
}

// write replaces the file atomically.
func (s *Store) write(values map[string]bool) error {
	if s.path == "" {
		return nil
	}
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(s.path), ".json") {
		data, err = json.MarshalIndent(values, "", "  ")
	} else {
		data, err = yaml.Marshal(values)
	}
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".capconfig-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
