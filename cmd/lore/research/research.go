// Package researchcmder provides the research command for running an
// automated research crawl over the knowledge base.
package researchcmder

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/lorebookhq/lorebook/pkg/client"
	"github.com/lorebookhq/lorebook/pkg/cliui"
	"github.com/lorebookhq/lorebook/pkg/config"
	"github.com/lorebookhq/lorebook/pkg/dotdir"
)

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	nodeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

type researchCommander struct {
	apiTarget string
	projectID string
	depth     int
	raw       bool
}

const researchLongDesc string = `Run an automated research crawl over the active project.

The server walks the link graph from the notes most relevant to the goal,
summarizes what it finds, and saves the report back into the library as an
artifact node. Progress streams live; the finished report renders in the
terminal.

Requires a running lorebook API server with search and an LLM provider
configured.

Examples:
  lore research "how do the northern clans relate to the Iron Keep?"
  lore research "summarize everything about dragons" --depth 3
  lore research "open plot threads" --raw > report.md`

const researchShortDesc string = "Run an automated research crawl"

func NewResearchCmd() *cobra.Command {
	cmder := &researchCommander{}

	cmd := &cobra.Command{
		Use:   "research <goal>",
		Short: researchShortDesc,
		Long:  researchLongDesc,
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
		RunE: func(_ *cobra.Command, args []string) error {
			return cmder.run(args[0])
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Lorebook API server URL")
	cmd.Flags().StringVarP(&cmder.projectID, "project", "p", "", "Project ID (default: active project)")
	cmd.Flags().IntVar(&cmder.depth, "depth", 0, "Link-graph crawl depth (0 uses the server default)")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the raw markdown report without terminal rendering")

	return cmd
}

func (c *researchCommander) run(goal string) error {
	cl := client.New(c.apiTarget)

	if !c.raw {
		fmt.Printf("\n  %s %s\n\n", cliui.TitleStyle.Render("Researching:"), goal)
	}

	type outcome struct {
		report     string
		artifactID string
		err        error
	}
	done := make(chan outcome, 1)

	cancel := cl.StreamResearch(client.ResearchRequest{
		ProjectID: c.projectID,
		Goal:      goal,
		Depth:     c.depth,
	}, func(ev client.ResearchEvent) {
		if c.raw {
			return
		}
		switch ev.Event {
		case client.ResearchEventNode:
			fmt.Printf("  %s %s %s\n",
				cliui.StepStyle.Render("●"),
				nodeStyle.Render(ev.Node),
				statusStyle.Render(ev.Status),
			)
		default:
			if ev.Status != "" {
				fmt.Printf("  %s\n", statusStyle.Render(ev.Status))
			}
		}
	}, func(report, artifactID string) {
		done <- outcome{report: report, artifactID: artifactID}
	}, func(err error) {
		done <- outcome{err: err}
	})
	defer cancel()

	result := <-done
	if result.err != nil {
		return result.err
	}

	if c.raw {
		fmt.Println(result.report)
		return nil
	}

	rendered, err := cliui.RenderMarkdown(result.report)
	if err != nil {
		rendered = "\n" + result.report + "\n"
	}
	fmt.Println(rendered)

	fmt.Printf("  %s Report saved as artifact %s\n\n",
		cliui.SuccessMark,
		cliui.IDStyle.Render(result.artifactID),
	)
	return nil
}
