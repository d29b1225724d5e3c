// Package projectcmder provides the project command for managing lorebook
// projects and the active project selection.
package projectcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorebookhq/lorebook/pkg/client"
	"github.com/lorebookhq/lorebook/pkg/cliui"
	"github.com/lorebookhq/lorebook/pkg/config"
	"github.com/lorebookhq/lorebook/pkg/dotdir"
)

const projectLongDesc string = `Manage lorebook projects.

A project is an isolated library of notes, drafts, and conversations. Most
commands operate on the active project, which is selected with "lore project
use" and persisted in the .lore/ session state.

Use subcommands to create, list, inspect, select, or delete projects:
  lore project create <name>    Create a project and make it active
  lore project list             List all projects
  lore project show <id>        Show a project's details
  lore project use <id>         Make a project active
  lore project rm <id>          Delete a project and everything under it

Examples:
  lore project create worldbuilding --description "campaign setting notes"
  lore project use 6e8de4a1
  lore project list`

const projectShortDesc string = "Manage lorebook projects"

type projectCommander struct {
	apiTarget   string
	description string
}

func NewProjectCmd() *cobra.Command {
	cmder := &projectCommander{}

	cmd := &cobra.Command{
		Use:   "project",
		Short: projectShortDesc,
		Long:  projectLongDesc,
	}

	cmd.AddCommand(cmder.newCreateCmd())
	cmd.AddCommand(cmder.newListCmd())
	cmd.AddCommand(cmder.newShowCmd())
	cmd.AddCommand(cmder.newUseCmd())
	cmd.AddCommand(cmder.newRmCmd())

	return cmd
}

// preRun resolves the API target from config unless the flag was set explicitly.
func (c *projectCommander) preRun(cmd *cobra.Command) error {
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

	return nil
}

func (c *projectCommander) newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project and make it active",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.preRun(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return c.runCreate(cmd.Context(), args[0], configDir)
		},
	}

	cmd.Flags().StringVarP(&c.apiTarget, "api-target", "t", "http://localhost:8080", "Lorebook API server URL")
	cmd.Flags().StringVar(&c.description, "description", "", "Project description")

	return cmd
}

func (c *projectCommander) newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all projects",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.preRun(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return c.runList(cmd.Context(), configDir)
		},
	}

	cmd.Flags().StringVarP(&c.apiTarget, "api-target", "t", "http://localhost:8080", "Lorebook API server URL")

	return cmd
}

func (c *projectCommander) newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project's details",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.preRun(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runShow(cmd.Context(), args[0])
		},
	}

	cmd.Flags().StringVarP(&c.apiTarget, "api-target", "t", "http://localhost:8080", "Lorebook API server URL")

	return cmd
}

func (c *projectCommander) newUseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use <id>",
		Short: "Make a project active",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.preRun(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return c.runUse(cmd.Context(), args[0], configDir)
		},
	}

	cmd.Flags().StringVarP(&c.apiTarget, "api-target", "t", "http://localhost:8080", "Lorebook API server URL")

	return cmd
}

func (c *projectCommander) newRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a project and everything under it",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.preRun(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return c.runRm(cmd.Context(), args[0], configDir)
		},
	}

	cmd.Flags().StringVarP(&c.apiTarget, "api-target", "t", "http://localhost:8080", "Lorebook API server URL")

	return cmd
}

func (c *projectCommander) runCreate(ctx context.Context, name, configDir string) error {
	cl := client.New(c.apiTarget)

	project, err := cl.CreateProject(ctx, name, c.description)
	if err != nil {
		return fmt.Errorf("creating project: %w", err)
	}

	manager := dotdir.NewManager()
	state := &dotdir.SessionState{ProjectID: project.ID}
	if err := manager.SaveSession(state, configDir); err != nil {
		return fmt.Errorf("saving session state: %w", err)
	}

	fmt.Printf("\n  %s Created project %s %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(project.Name),
		cliui.IDStyle.Render("("+project.ID+")"),
	)
	return nil
}

func (c *projectCommander) runList(ctx context.Context, configDir string) error {
	cl := client.New(c.apiTarget)

	projects, err := cl.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("listing projects: %w", err)
	}

	if len(projects) == 0 {
		fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("No projects. Create one with: lore project create <name>"))
		return nil
	}

	manager := dotdir.NewManager()
	state, err := manager.LoadSessionState(configDir)
	if err != nil {
		return fmt.Errorf("loading session state: %w", err)
	}

	activeID := ""
	if state != nil {
		activeID = state.ProjectID
	}

	fmt.Println()
	for _, project := range projects {
		marker := " "
		if project.ID == activeID {
			marker = cliui.SuccessMark
		}

		line := fmt.Sprintf("  %s %s %s",
			marker,
			cliui.NameStyle.Render(project.Name),
			cliui.IDStyle.Render("("+project.ID+")"),
		)
		if project.Description != "" {
			line += " " + cliui.DimStyle.Render(project.Description)
		}
		fmt.Println(line)
	}
	fmt.Println()

	return nil
}

func (c *projectCommander) runShow(ctx context.Context, id string) error {
	cl := client.New(c.apiTarget)

	project, err := cl.GetProject(ctx, id)
	if err != nil {
		return fmt.Errorf("looking up project: %w", err)
	}

	nodes, err := cl.ListNodes(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("listing nodes: %w", err)
	}

	fmt.Printf("\n  %s %s\n",
		cliui.NameStyle.Render(project.Name),
		cliui.IDStyle.Render("("+project.ID+")"),
	)
	if project.Description != "" {
		fmt.Printf("  %s\n", cliui.DimStyle.Render(project.Description))
	}
	fmt.Printf("\n  %s %d\n", cliui.KeyStyle.Render("Nodes:"), len(nodes))
	fmt.Printf("  %s %s\n\n", cliui.KeyStyle.Render("Created:"), project.CreatedAt.Format("2006-01-02 15:04"))

	return nil
}

func (c *projectCommander) runUse(ctx context.Context, id, configDir string) error {
	cl := client.New(c.apiTarget)

	project, err := cl.GetProject(ctx, id)
	if err != nil {
		return fmt.Errorf("looking up project: %w", err)
	}

	// Switching projects clears the resumed conversation.
	manager := dotdir.NewManager()
	state := &dotdir.SessionState{ProjectID: project.ID}
	if err := manager.SaveSession(state, configDir); err != nil {
		return fmt.Errorf("saving session state: %w", err)
	}

	fmt.Printf("\n  %s Active project is now %s %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(project.Name),
		cliui.IDStyle.Render("("+project.ID+")"),
	)
	return nil
}

func (c *projectCommander) runRm(ctx context.Context, id, configDir string) error {
	cl := client.New(c.apiTarget)

	if err := cl.DeleteProject(ctx, id); err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}

	manager := dotdir.NewManager()
	state, err := manager.LoadSessionState(configDir)
	if err == nil && state != nil && state.ProjectID == id {
		_ = manager.ClearSession(configDir)
	}

	fmt.Printf("\n  %s Deleted project %s\n\n", cliui.SuccessMark, cliui.IDStyle.Render(id))
	return nil
}
