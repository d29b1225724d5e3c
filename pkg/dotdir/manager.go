// Package dotdir manages the .lore/ and ~/.lore directories.
//
// The session state tracks which project and conversation the user has
// active for resuming chat sessions. It is persisted as a JSON file in the
// resolved .lore/ directory. The drafts/ subdirectory holds markdown drafts
// synced into the knowledge base.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the lorebook directory.
	dirName = ".lore"

	// draftsDirName is the drafts subdirectory inside a .lore/ directory.
	draftsDirName = "drafts"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .lore/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.lore/ dir
//  3. Home ~/.lore/ dir
//  4. If none found, attempt to create ~/.lore/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating lore directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// DraftsDir returns the absolute path to the drafts/ subdirectory,
// creating it if needed.
func (m *Manager) DraftsDir(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}

	draftsDir := filepath.Join(dir, draftsDirName)
	if err := os.MkdirAll(draftsDir, 0o755); err != nil {
		return "", fmt.Errorf("creating drafts directory %s: %w", draftsDir, err)
	}

	return draftsDir, nil
}

// localDirExists checks whether a .lore/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
