// Package drafts syncs markdown files from the drafts directory into the
// knowledge base as draft nodes, with optional live watching.
package drafts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lorebookhq/lorebook/pkg/kb"
	"github.com/lorebookhq/lorebook/pkg/storage"
)

const (
	// indexFile maps draft filenames to their node IDs across syncs.
	indexFile = ".index.json"

	// debounce collapses editor save bursts into a single sync.
	debounce = 250 * time.Millisecond
)

// Store syncs a directory of markdown drafts into storage.
type Store struct {
	dir     string
	storage storage.Driver
	logger  *slog.Logger
}

// NewStore creates a draft store over dir, creating it if needed.
func NewStore(dir string, driver storage.Driver, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating drafts dir: %w", err)
	}
	return &Store{
		dir:     dir,
		storage: driver,
		logger:  logger,
	}, nil
}

// Dir returns the drafts directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Create writes a new draft file and returns its path.
func (s *Store) Create(name, content string) (string, error) {
	if !strings.HasSuffix(name, ".md") {
		name += ".md"
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("draft %s already exists", name)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing draft: %w", err)
	}
	return path, nil
}

// List returns the names of all markdown drafts in the directory.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading drafts dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Read returns the content of a draft by name.
func (s *Store) Read(name string) (string, error) {
	if !strings.HasSuffix(name, ".md") {
		name += ".md"
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("draft %s not found", name)
		}
		return "", fmt.Errorf("reading draft: %w", err)
	}
	return string(data), nil
}

// Remove deletes a draft file and its index entry. The synced node, if any,
// stays in the knowledge base.
func (s *Store) Remove(name string) error {
	if !strings.HasSuffix(name, ".md") {
		name += ".md"
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("draft %s not found", name)
		}
		return fmt.Errorf("removing draft: %w", err)
	}

	index, err := s.loadIndex()
	if err != nil {
		return err
	}
	delete(index, name)
	return s.saveIndex(index)
}

// Sync upserts a draft node for every markdown file in the directory and
// returns the synced nodes. File identity is tracked in an index file so
// repeated syncs update nodes in place.
func (s *Store) Sync(ctx context.Context, projectID string) ([]*kb.Node, error) {
	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading drafts dir: %w", err)
	}

	var synced []*kb.Node
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		content, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading draft %s: %w", entry.Name(), err)
		}

		title := strings.TrimSuffix(entry.Name(), ".md")
		node := kb.NewNode(projectID, title, string(content), kb.KindDraft)
		if id, ok := index[entry.Name()]; ok {
			node.ID = id
		} else {
			index[entry.Name()] = node.ID
		}

		if err := s.storage.PutNode(ctx, node); err != nil {
			return nil, fmt.Errorf("syncing draft %s: %w", entry.Name(), err)
		}
		synced = append(synced, node)
	}

	if err := s.saveIndex(index); err != nil {
		return nil, err
	}

	s.logger.Debug("synced drafts", "count", len(synced), "project_id", projectID)

	return synced, nil
}

// Watch blocks syncing the directory on every change until ctx is done.
// onSync is invoked after each sync attempt with its outcome.
func (s *Store) Watch(ctx context.Context, projectID string, onSync func([]*kb.Node, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating drafts watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watching drafts dir: %w", err)
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Base(event.Name) == indexFile {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("drafts watcher error", "error", err)
		case <-timerC:
			nodes, err := s.Sync(ctx, projectID)
			if onSync != nil {
				onSync(nodes, err)
			}
		}
	}
}

func (s *Store) loadIndex() (map[string]string, error) {
	index := make(map[string]string)
	data, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return index, nil
		}
		return nil, fmt.Errorf("reading drafts index: %w", err)
	}
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("parsing drafts index: %w", err)
	}
	return index, nil
}

func (s *Store) saveIndex(index map[string]string) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding drafts index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, indexFile), data, 0o644); err != nil {
		return fmt.Errorf("writing drafts index: %w", err)
	}
	return nil
}
