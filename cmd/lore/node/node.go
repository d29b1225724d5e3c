// Package nodecmder provides the node command for managing knowledge base
// nodes in the active project.
package nodecmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lorebookhq/lorebook/pkg/client"
	"github.com/lorebookhq/lorebook/pkg/cliui"
	"github.com/lorebookhq/lorebook/pkg/config"
	"github.com/lorebookhq/lorebook/pkg/dotdir"
	"github.com/lorebookhq/lorebook/pkg/kb"
	"github.com/lorebookhq/lorebook/pkg/utils"
)

const nodeLongDesc string = `Manage knowledge base nodes.

Nodes are the notes, drafts, and artifacts of a project. Commands operate on
the active project unless --project is given.

Use subcommands to add, list, show, or delete nodes:
  lore node add <title>     Add a node (content from --content or stdin)
  lore node list            List the nodes of the active project
  lore node show <id>       Show a node rendered as markdown
  lore node rm <id>         Delete a node

Examples:
  lore node add "The Iron Keep" --content "A fortress on the northern pass." --tags places
  cat dragon-lore.md | lore node add "Dragon Lore"
  lore node list
  lore node show 91c2b7f0`

const nodeShortDesc string = "Manage knowledge base nodes"

type nodeCommander struct {
	apiTarget string
	projectID string
	content   string
	kind      string
	tags      []string
	links     []string
}

func NewNodeCmd() *cobra.Command {
	cmder := &nodeCommander{}

	cmd := &cobra.Command{
		Use:   "node",
		Short: nodeShortDesc,
		Long:  nodeLongDesc,
	}

	cmd.AddCommand(cmder.newAddCmd())
	cmd.AddCommand(cmder.newListCmd())
	cmd.AddCommand(cmder.newShowCmd())
	cmd.AddCommand(cmder.newRmCmd())

	return cmd
}

// preRun resolves the API target from config and the project from session
// state, unless overridden by flags.
func (c *nodeCommander) preRun(cmd *cobra.Command, needProject bool) error {
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
		c.apiTarget = cfg.Client.APITarget
	}

	if !needProject || cmd.Flags().Changed("project") {
		return nil
	}

	state, err := dotdir.NewManager().LoadSessionState(configDir)
	if err != nil {
		return fmt.Errorf("loading session state: %w", err)
	}
	if state == nil || state.ProjectID == "" {
		return fmt.Errorf("no active project: run \"lore project use <id>\" or pass --project")
	}
	c.projectID = state.ProjectID

	return nil
}

func (c *nodeCommander) addCommonFlags(cmd *cobra.Command, withProject bool) {
	cmd.Flags().StringVarP(&c.apiTarget, "api-target", "t", "http://localhost:8080", "Lorebook API server URL")
	if withProject {
		cmd.Flags().StringVarP(&c.projectID, "project", "p", "", "Project ID (default: active project)")
	}
}

func (c *nodeCommander) newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a node to the active project",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.preRun(cmd, true)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAdd(cmd.Context(), args[0])
		},
	}

	c.addCommonFlags(cmd, true)
	cmd.Flags().StringVarP(&c.content, "content", "c", "", "Node content (default: read from stdin)")
	cmd.Flags().StringVarP(&c.kind, "kind", "k", "note", "Node kind (note, draft, artifact)")
	cmd.Flags().StringSliceVar(&c.tags, "tags", nil, "Comma-separated tags")
	cmd.Flags().StringSliceVar(&c.links, "links", nil, "Comma-separated node IDs to link to")

	return cmd
}

func (c *nodeCommander) newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the nodes of the active project",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.preRun(cmd, true)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runList(cmd.Context())
		},
	}

	c.addCommonFlags(cmd, true)

	return cmd
}

func (c *nodeCommander) newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a node rendered as markdown",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.preRun(cmd, false)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runShow(cmd.Context(), args[0])
		},
	}

	c.addCommonFlags(cmd, false)

	return cmd
}

func (c *nodeCommander) newRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a node",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.preRun(cmd, false)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRm(cmd.Context(), args[0])
		},
	}

	c.addCommonFlags(cmd, false)

	return cmd
}

func (c *nodeCommander) runAdd(ctx context.Context, title string) error {
	content := c.content
	if content == "" {
		// Piped input only. An interactive terminal with no --content
		// creates an empty node rather than blocking on a silent read.
		if stat, err := os.Stdin.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			content = strings.TrimSpace(string(data))
		}
	}

	node := kb.NewNode(c.projectID, title, content, kb.NodeKind(c.kind))
	node.Tags = c.tags
	node.Links = c.links

	cl := client.New(c.apiTarget)
	created, err := cl.CreateNode(ctx, node)
	if err != nil {
		return fmt.Errorf("creating node: %w", err)
	}

	fmt.Printf("\n  %s Added %s %s %s\n\n",
		cliui.SuccessMark,
		cliui.DimStyle.Render("["+string(created.Kind)+"]"),
		cliui.NameStyle.Render(created.Title),
		cliui.IDStyle.Render("("+created.ID+")"),
	)
	return nil
}

func (c *nodeCommander) runList(ctx context.Context) error {
	cl := client.New(c.apiTarget)

	nodes, err := cl.ListNodes(ctx, c.projectID)
	if err != nil {
		return fmt.Errorf("listing nodes: %w", err)
	}

	if len(nodes) == 0 {
		fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("No nodes yet. Add one with: lore node add <title>"))
		return nil
	}

	fmt.Println()
	for _, node := range nodes {
		fmt.Printf("  %s %s %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%-10s", "["+string(node.Kind)+"]")),
			cliui.NameStyle.Render(node.Title),
			cliui.IDStyle.Render("("+node.ID+")"),
		)

		preview := utils.Truncate(strings.ReplaceAll(node.Content, "\n", " "), 72)
		if preview != "" {
			fmt.Printf("             %s\n", cliui.PreviewStyle.Render(preview))
		}
	}
	fmt.Println()

	return nil
}

func (c *nodeCommander) runShow(ctx context.Context, id string) error {
	cl := client.New(c.apiTarget)

	node, err := cl.GetNode(ctx, id)
	if err != nil {
		return fmt.Errorf("getting node: %w", err)
	}

	fmt.Printf("\n  %s %s\n",
		cliui.TitleStyle.Render(node.Title),
		cliui.IDStyle.Render("("+node.ID+")"),
	)
	fmt.Printf("  %s %s\n",
		cliui.KeyStyle.Render("kind:"),
		cliui.ValueStyle.Render(string(node.Kind)),
	)
	if len(node.Tags) > 0 {
		fmt.Printf("  %s %s\n",
			cliui.KeyStyle.Render("tags:"),
			cliui.ValueStyle.Render(strings.Join(node.Tags, ", ")),
		)
	}
	if len(node.Links) > 0 {
		fmt.Printf("  %s %s\n",
			cliui.KeyStyle.Render("links:"),
			cliui.DimStyle.Render(strings.Join(node.Links, ", ")),
		)
	}

	if node.Content == "" {
		fmt.Println()
		return nil
	}

	rendered, err := cliui.RenderMarkdown(node.Content)
	if err != nil {
		// Fall back to raw content when the terminal renderer fails.
		fmt.Printf("\n%s\n", node.Content)
		return nil
	}

	fmt.Println(rendered)
	return nil
}

func (c *nodeCommander) runRm(ctx context.Context, id string) error {
	cl := client.New(c.apiTarget)

	if err := cl.DeleteNode(ctx, id); err != nil {
		return fmt.Errorf("deleting node: %w", err)
	}

	fmt.Printf("\n  %s Deleted node %s\n\n", cliui.SuccessMark, cliui.IDStyle.Render(id))
	return nil
}
