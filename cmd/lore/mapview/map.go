// Package mapcmder provides the map command, an interactive terminal view of
// a project's link graph.
package mapcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorebookhq/lorebook/pkg/client"
	"github.com/lorebookhq/lorebook/pkg/config"
	"github.com/lorebookhq/lorebook/pkg/dotdir"
	"github.com/lorebookhq/lorebook/pkg/graph"
)

type mapCommander struct {
	apiTarget string
	projectID string
	dot       bool
}

const mapLongDesc string = `Browse the link graph of the active project.

Opens an interactive terminal view with the project's nodes on the left and
the selected node's links on the right. Follow links to walk the graph,
filter by kind, and refresh from the server without leaving the view.

Use --dot to print the graph in Graphviz dot format instead, for rendering
with external tools.

Examples:
  lore map
  lore map --project 6e8de4a1
  lore map --dot | dot -Tsvg > map.svg`

const mapShortDesc string = "Browse the project link graph"

func NewMapCmd() *cobra.Command {
	cmder := &mapCommander{}

	cmd := &cobra.Command{
		Use:   "map",
		Short: mapShortDesc,
		Long:  mapLongDesc,
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

			if cmd.Flags().Changed("project") {
				return nil
			}

			state, err := dotdir.NewManager().LoadSessionState(configDir)
			if err != nil {
				return fmt.Errorf("loading session state: %w", err)
			}
			if state == nil || state.ProjectID == "" {
				return fmt.Errorf("no active project: run \"lore project use <id>\" or pass --project")
			}
			cmder.projectID = state.ProjectID
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Lorebook API server URL")
	cmd.Flags().StringVarP(&cmder.projectID, "project", "p", "", "Project ID (default: active project)")
	cmd.Flags().BoolVar(&cmder.dot, "dot", false, "Print Graphviz dot output instead of the interactive view")

	return cmd
}

func (c *mapCommander) run(ctx context.Context) error {
	cl := client.New(c.apiTarget)

	g, err := loadGraph(ctx, cl, c.projectID)
	if err != nil {
		return err
	}

	if c.dot {
		fmt.Print(g.DOT())
		return nil
	}

	return runMapTUI(ctx, cl, c.projectID, g)
}

// loadGraph fetches the project's nodes and builds the adjacency view locally,
// which keeps Lookup and Neighbors available to the TUI.
func loadGraph(ctx context.Context, cl *client.Client, projectID string) (*graph.Graph, error) {
	nodes, err := cl.ListNodes(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	return graph.Build(nodes), nil
}
