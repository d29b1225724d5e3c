// Package draftcmder provides the draft command for managing markdown drafts
// in the .lore/drafts/ directory and syncing them into the knowledge base.
package draftcmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lorebookhq/lorebook/pkg/cliui"
	"github.com/lorebookhq/lorebook/pkg/config"
	"github.com/lorebookhq/lorebook/pkg/dotdir"
	"github.com/lorebookhq/lorebook/pkg/drafts"
	"github.com/lorebookhq/lorebook/pkg/kb"
	"github.com/lorebookhq/lorebook/pkg/logger"
	"github.com/lorebookhq/lorebook/pkg/storage"
	"github.com/lorebookhq/lorebook/pkg/storage/postgres"
	"github.com/lorebookhq/lorebook/pkg/storage/sqlite"
)

const draftLongDesc string = `Manage markdown drafts.

Drafts live as plain .md files in the .lore/drafts/ directory so they can be
edited with any editor. Syncing upserts each file into the knowledge base as
a draft node of the active project; repeated syncs update the same nodes in
place.

Sync writes to the configured storage directly, so it works without a
running server. Newly synced drafts are picked up by semantic search after
the server re-indexes them.

Use subcommands to create, inspect, sync, or watch drafts:
  lore draft new <name>      Create a draft file
  lore draft list            List draft files
  lore draft preview <name>  Render a draft to the terminal
  lore draft rm <name>       Delete a draft file
  lore draft sync            Sync all drafts into the knowledge base
  lore draft watch           Sync continuously as files change

Examples:
  lore draft new chapter-one
  lore draft preview chapter-one
  lore draft sync
  lore draft watch`

const draftShortDesc string = "Manage markdown drafts"

type draftCommander struct {
	projectID string
	debug     bool

	configDir string
}

func NewDraftCmd() *cobra.Command {
	cmder := &draftCommander{}

	cmd := &cobra.Command{
		Use:   "draft",
		Short: draftShortDesc,
		Long:  draftLongDesc,
	}

	cmd.AddCommand(cmder.newNewCmd())
	cmd.AddCommand(cmder.newListCmd())
	cmd.AddCommand(cmder.newPreviewCmd())
	cmd.AddCommand(cmder.newRmCmd())
	cmd.AddCommand(cmder.newSyncCmd())
	cmd.AddCommand(cmder.newWatchCmd())

	return cmd
}

func (c *draftCommander) preRun(cmd *cobra.Command, needProject bool) error {
	c.configDir, _ = cmd.Flags().GetString("config-dir")

	// The debug flag lives on the root command and is absent when a
	// subcommand runs standalone.
	c.debug, _ = cmd.Flags().GetBool("debug")

	if !needProject || cmd.Flags().Changed("project") {
		return nil
	}

	state, err := dotdir.NewManager().LoadSessionState(c.configDir)
	if err != nil {
		return fmt.Errorf("loading session state: %w", err)
	}
	if state == nil || state.ProjectID == "" {
		return fmt.Errorf("no active project: run \"lore project use <id>\" or pass --project")
	}
	c.projectID = state.ProjectID

	return nil
}

func (c *draftCommander) newNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a draft file",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.preRun(cmd, false)
		},
		RunE: func(_ *cobra.Command, args []string) error {
			return c.runNew(args[0])
		},
	}

	return cmd
}

func (c *draftCommander) newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List draft files",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.preRun(cmd, false)
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return c.runList()
		},
	}

	return cmd
}

func (c *draftCommander) newPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <name>",
		Short: "Render a draft to the terminal",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.preRun(cmd, false)
		},
		RunE: func(_ *cobra.Command, args []string) error {
			return c.runPreview(args[0])
		},
	}

	return cmd
}

func (c *draftCommander) newRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a draft file",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.preRun(cmd, false)
		},
		RunE: func(_ *cobra.Command, args []string) error {
			return c.runRm(args[0])
		},
	}

	return cmd
}

func (c *draftCommander) newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync all drafts into the knowledge base",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.preRun(cmd, true)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runSync(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&c.projectID, "project", "p", "", "Project ID (default: active project)")

	return cmd
}

func (c *draftCommander) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync continuously as draft files change",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.preRun(cmd, true)
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return c.runWatch()
		},
	}

	cmd.Flags().StringVarP(&c.projectID, "project", "p", "", "Project ID (default: active project)")

	return cmd
}

// openFileStore opens the drafts store without a storage backend, for
// subcommands that only touch files.
func (c *draftCommander) openFileStore() (*drafts.Store, error) {
	dir, err := dotdir.NewManager().DraftsDir(c.configDir)
	if err != nil {
		return nil, err
	}
	return drafts.NewStore(dir, nil, logger.Nop())
}

func (c *draftCommander) runNew(name string) error {
	store, err := c.openFileStore()
	if err != nil {
		return err
	}

	path, err := store.Create(name, "# "+name+"\n\n")
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s Created draft %s\n\n", cliui.SuccessMark, cliui.ValueStyle.Render(path))
	return nil
}

func (c *draftCommander) runList() error {
	store, err := c.openFileStore()
	if err != nil {
		return err
	}

	names, err := store.List()
	if err != nil {
		return err
	}

	if len(names) == 0 {
		fmt.Printf("\n  %s No drafts. Create one with \"lore draft new <name>\".\n\n", cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Printf("\n  %s %s\n\n", cliui.TitleStyle.Render("Drafts in"), cliui.DimStyle.Render(store.Dir()))
	for _, name := range names {
		fmt.Printf("    %s\n", cliui.NameStyle.Render(name))
	}
	fmt.Println()

	return nil
}

func (c *draftCommander) runPreview(name string) error {
	store, err := c.openFileStore()
	if err != nil {
		return err
	}

	content, err := store.Read(name)
	if err != nil {
		return err
	}

	rendered, err := cliui.RenderMarkdown(content)
	if err != nil {
		fmt.Println(content)
		return nil
	}
	fmt.Println(rendered)

	return nil
}

func (c *draftCommander) runRm(name string) error {
	store, err := c.openFileStore()
	if err != nil {
		return err
	}

	if err := store.Remove(name); err != nil {
		return err
	}

	fmt.Printf("\n  %s Deleted draft %s\n\n", cliui.SuccessMark, cliui.ValueStyle.Render(name))
	return nil
}

func (c *draftCommander) runSync(ctx context.Context) error {
	store, storer, err := c.openStore()
	if err != nil {
		return err
	}
	defer storer.Close()

	var synced []*kb.Node
	err = cliui.Step(os.Stdout, "Syncing drafts", func() error {
		var syncErr error
		synced, syncErr = store.Sync(ctx, c.projectID)
		return syncErr
	})
	if err != nil {
		return err
	}

	for _, node := range synced {
		fmt.Printf("    %s %s\n", cliui.NameStyle.Render(node.Title), cliui.IDStyle.Render("("+node.ID+")"))
	}
	fmt.Printf("\n  %s Synced %d draft(s)\n\n", cliui.SuccessMark, len(synced))

	return nil
}

func (c *draftCommander) runWatch() error {
	store, storer, err := c.openStore()
	if err != nil {
		return err
	}
	defer storer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\n  %s %s\n\n",
		cliui.TitleStyle.Render("Watching drafts:"),
		cliui.DimStyle.Render(store.Dir()),
	)

	err = store.Watch(ctx, c.projectID, func(nodes []*kb.Node, err error) {
		if err != nil {
			fmt.Printf("  %s sync failed: %v\n", cliui.FailMark, err)
			return
		}
		fmt.Printf("  %s synced %d draft(s)\n", cliui.SuccessMark, len(nodes))
	})
	if err != nil && ctx.Err() == nil {
		return err
	}

	fmt.Println()
	return nil
}

// openStore opens the drafts store backed by the configured storage driver.
func (c *draftCommander) openStore() (*drafts.Store, storage.Driver, error) {
	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	var storer storage.Driver
	switch cfg.Storage.Driver {
	case "postgres":
		storer, err = postgres.NewDriver(context.Background(), cfg.Storage.PostgresURL)
	case "sqlite", "":
		storer, err = sqlite.NewDriver(cfg.Storage.SQLitePath)
	default:
		return nil, nil, fmt.Errorf("draft sync requires sqlite or postgres storage, not %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening storage: %w", err)
	}

	dir, err := dotdir.NewManager().DraftsDir(c.configDir)
	if err != nil {
		storer.Close()
		return nil, nil, err
	}

	store, err := drafts.NewStore(dir, storer, logger.New(logger.WithDebug(c.debug), logger.WithPretty(true)))
	if err != nil {
		storer.Close()
		return nil, nil, err
	}

	return store, storer, nil
}
