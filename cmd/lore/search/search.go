// Package searchcmder provides the search command for semantic search over
// the knowledge base.
package searchcmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/lorebookhq/lorebook/pkg/client"
	"github.com/lorebookhq/lorebook/pkg/config"
	"github.com/lorebookhq/lorebook/pkg/dotdir"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	kindStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	tagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type searchCommander struct {
	query     string
	topK      int
	quiet     bool
	allScopes bool

	apiTarget string
	projectID string
}

const searchLongDesc string = `Search the knowledge base via the lorebook API.

Semantic search over stored nodes, returning the most relevant notes for the
query text. Requires a running lorebook API server with search configured
(vector store and embedder).

Results are scoped to the active project by default. Use --all to search
across every project.

Use --quiet to output only node IDs, one per line. This is useful for piping
into other commands.

Example:
  lore search "dragon lore"
  lore search "the northern pass" --top 10
  lore search "iron keep" --all
  lore node show $(lore search "iron keep" --quiet --top 1)`

const searchShortDesc string = "Search the knowledge base"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
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

			if cmder.allScopes || cmd.Flags().Changed("project") {
				return nil
			}

			// Scope to the active project when one is selected.
			state, err := dotdir.NewManager().LoadSessionState(configDir)
			if err != nil {
				return fmt.Errorf("loading session state: %w", err)
			}
			if state != nil {
				cmder.projectID = state.ProjectID
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]
			return cmder.run(cmd.Context())
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 5, "Number of results to return")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only node IDs, one per line (for piping)")
	cmd.Flags().BoolVar(&cmder.allScopes, "all", false, "Search across all projects")
	cmd.Flags().StringVarP(&cmder.projectID, "project", "p", "", "Project ID to scope results to")
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Lorebook API server URL")

	return cmd
}

func (c *searchCommander) run(ctx context.Context) error {
	cl := client.New(c.apiTarget)

	projectID := c.projectID
	if c.allScopes {
		projectID = ""
	}

	output, err := cl.Search(ctx, c.query, c.topK, projectID)
	if err != nil {
		return err
	}

	if output.Count == 0 {
		if !c.quiet {
			fmt.Println("No results found.")
		}
		return nil
	}

	if c.quiet {
		for _, result := range output.Results {
			fmt.Println(result.NodeID)
		}
		return nil
	}

	fmt.Printf("\n%s %s\n\n",
		headerStyle.Render("Search results for:"),
		idStyle.Render(fmt.Sprintf("%q", output.Query)),
	)

	for i, result := range output.Results {
		printResult(i+1, result)
	}

	fmt.Printf("%s\n\n", dimStyle.Render(fmt.Sprintf("%d result(s)", output.Count)))

	return nil
}

func printResult(rank int, result client.SearchResult) {
	fmt.Printf("%s %s %s %s\n",
		rankStyle.Render(fmt.Sprintf("%d.", rank)),
		titleStyle.Render(result.Title),
		kindStyle.Render("["+result.Kind+"]"),
		scoreStyle.Render(fmt.Sprintf("(score: %.3f)", result.Score)),
	)
	fmt.Printf("   %s\n", idStyle.Render(result.NodeID))

	if len(result.Tags) > 0 {
		fmt.Printf("   %s\n", tagStyle.Render("#"+strings.Join(result.Tags, " #")))
	}

	if result.Preview != "" {
		fmt.Printf("   %s\n", previewStyle.Render(result.Preview))
	}

	fmt.Println()
}
