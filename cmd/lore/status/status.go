// Package statuscmder provides the status command for displaying the current
// session state of the local .lore directory and server reachability.
package statuscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorebookhq/lorebook/pkg/client"
	"github.com/lorebookhq/lorebook/pkg/cliui"
	"github.com/lorebookhq/lorebook/pkg/config"
	"github.com/lorebookhq/lorebook/pkg/dotdir"
)

const statusLongDesc string = `Show the current lorebook session state.

Reads the local .lore/ directory (or ~/.lore/) to display the active project
and the conversation the next chat session resumes, and pings the configured
API server.

If no session state exists, indicates that a project must be selected before
chatting.

Examples:
  lore status`

const statusShortDesc string = "Show current session state"

type statusCommander struct {
	apiTarget string
}

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("api-target") {
				cmder.apiTarget = cfg.Client.APITarget
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.runStatus(cmd.Context(), configDir)
		},
	}

	cmd.Flags().StringVarP(&cmder.apiTarget, "api-target", "t", "http://localhost:8080", "Lorebook API server URL")

	return cmd
}

func (c *statusCommander) runStatus(ctx context.Context, configDir string) error {
	manager := dotdir.NewManager()

	state, err := manager.LoadSessionState(configDir)
	if err != nil {
		return fmt.Errorf("loading session state: %w", err)
	}

	fmt.Println()
	if state == nil || state.ProjectID == "" {
		fmt.Printf("  %s No active project. Select one with \"lore project use <id>\".\n", cliui.DimStyle.Render("●"))
	} else {
		fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("Active project:"), cliui.IDStyle.Render(state.ProjectID))

		if state.ConversationID == "" {
			fmt.Printf("  %s   %s\n", cliui.KeyStyle.Render("Conversation:"), cliui.DimStyle.Render("none, next chat starts fresh"))
		} else {
			fmt.Printf("  %s   %s\n", cliui.KeyStyle.Render("Conversation:"), cliui.IDStyle.Render(state.ConversationID))
		}
	}

	if err := client.New(c.apiTarget).Ping(ctx); err != nil {
		fmt.Printf("  %s         %s %s\n\n",
			cliui.KeyStyle.Render("Server:"),
			cliui.FailMark,
			cliui.DimStyle.Render("unreachable at "+c.apiTarget),
		)
		return nil
	}

	fmt.Printf("  %s         %s %s\n\n",
		cliui.KeyStyle.Render("Server:"),
		cliui.SuccessMark,
		cliui.DimStyle.Render(c.apiTarget),
	)

	return nil
}
