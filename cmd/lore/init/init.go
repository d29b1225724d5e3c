// Package initcmder provides the init command for initializing a local .lore
// directory in the current working directory.
package initcmder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lorebookhq/lorebook/pkg/config"
)

const (
	dirName = ".lore"
)

const initLongDesc string = `Initialize a new .lore/ directory in the current working directory.

Creates a local .lore/ directory that takes precedence over the default
~/.lore/ directory for session state, storage, configuration, drafts,
and other lorebook operations.

This is useful for maintaining a separate library per project or directory.

A preset writes a starting config.toml:
  local      SQLite storage, sqlite-vec search, local Ollama (default)
  inmemory   Ephemeral storage with no search stack
  qdrant     Postgres storage with a Qdrant vector store

Examples:
  lore init
  lore init --preset qdrant`

const initShortDesc string = "Initialize a local .lore/ directory"

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.preset, "preset", "p", "", fmt.Sprintf("Config preset to write (%s)", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func (c *initCommander) run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		fmt.Printf("Already initialized: %s\n", dir)
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .lore directory: %w", err)
	}

	fmt.Printf("Initialized .lore directory: %s\n", dir)

	if c.preset == "" {
		return nil
	}

	cfg, err := config.PresetConfig(c.preset)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("preparing config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return fmt.Errorf("writing preset config: %w", err)
	}

	fmt.Printf("Wrote %s preset config: %s\n", c.preset, cfger.GetTarget())
	return nil
}
