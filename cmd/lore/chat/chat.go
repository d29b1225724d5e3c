// Package chatcmder provides the chat command for interactive, library-grounded
// conversations through the lorebook API.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/lorebookhq/lorebook/pkg/client"
	"github.com/lorebookhq/lorebook/pkg/cliui"
	"github.com/lorebookhq/lorebook/pkg/config"
	"github.com/lorebookhq/lorebook/pkg/dotdir"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("lore> ")
	citationStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
)

type chatCommander struct {
	apiTarget string
	projectID string
	fresh     bool

	configDir string
}

const chatLongDesc string = `Start an interactive chat session grounded in your knowledge base.

Messages go to the lorebook API server, which retrieves the most relevant
notes from the active project and cites them alongside the streamed answer.
The conversation is persisted server-side; the session state in .lore/
remembers which conversation to resume, so quitting and re-running
"lore chat" picks up where you left off.

Use --new to abandon the remembered conversation and start fresh.

Commands inside the session:
  /new     Start a new conversation
  /exit    Leave the chat

Examples:
  lore chat
  lore chat --new
  lore chat --project 6e8de4a1`

const chatShortDesc string = "Interactive chat grounded in your notes"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cfger, err := config.NewConfiger(cmder.configDir)
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
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Lorebook API server URL")
	cmd.Flags().StringVarP(&cmder.projectID, "project", "p", "", "Project ID (default: active project)")
	cmd.Flags().BoolVar(&cmder.fresh, "new", false, "Start a new conversation instead of resuming")

	return cmd
}

func (c *chatCommander) run() error {
	manager := dotdir.NewManager()

	state, err := manager.LoadSessionState(c.configDir)
	if err != nil {
		return fmt.Errorf("loading session state: %w", err)
	}
	if state == nil {
		state = &dotdir.SessionState{}
	}

	if c.projectID != "" && c.projectID != state.ProjectID {
		// An explicit project selection invalidates the resumed conversation.
		state.ProjectID = c.projectID
		state.ConversationID = ""
	}
	if state.ProjectID == "" {
		return fmt.Errorf("no active project: run \"lore project use <id>\" or pass --project")
	}
	if c.fresh {
		state.ConversationID = ""
	}

	cl := client.New(c.apiTarget)

	fmt.Printf("\n  %s\n", cliui.TitleStyle.Render("lorebook chat"))
	if state.ConversationID != "" {
		fmt.Printf("  %s\n", cliui.DimStyle.Render("Resuming conversation "+state.ConversationID))
	} else {
		fmt.Printf("  %s\n", cliui.DimStyle.Render("Starting a new conversation"))
	}
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("/new starts over, /exit leaves"))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(userPrompt)

		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		message := strings.TrimSpace(scanner.Text())
		switch message {
		case "":
			continue
		case "/exit":
			fmt.Println()
			return nil
		case "/new":
			state.ConversationID = ""
			fmt.Printf("  %s\n", cliui.DimStyle.Render("Started a new conversation."))
			continue
		}

		if err := c.exchange(cl, state, message); err != nil {
			fmt.Printf("\n  %s %v\n\n", cliui.FailMark, err)
			continue
		}

		if err := manager.SaveSession(state, c.configDir); err != nil {
			return fmt.Errorf("saving session state: %w", err)
		}
	}
}

// exchange sends one message and prints the streamed reply. On success the
// session state carries the conversation ID for the next turn.
func (c *chatCommander) exchange(cl *client.Client, state *dotdir.SessionState, message string) error {
	if state.ConversationID == "" {
		title := message
		if len(title) > 60 {
			title = title[:60]
		}
		conv, err := cl.CreateConversation(context.Background(), state.ProjectID, title)
		if err != nil {
			return fmt.Errorf("creating conversation: %w", err)
		}
		state.ConversationID = conv.ID
	}

	fmt.Print(assistantPrompt)

	done := make(chan error, 1)

	cancel := cl.StreamChat(client.ChatRequest{
		ProjectID:      state.ProjectID,
		ConversationID: state.ConversationID,
		Message:        message,
	}, func(ev client.ChatEvent) {
		switch ev.Event {
		case client.ChatEventToken:
			fmt.Print(ev.Text)
		case client.ChatEventCitation:
			titles := make([]string, len(ev.Nodes))
			for i, node := range ev.Nodes {
				titles[i] = node.Title
			}
			fmt.Printf("%s\n%s", citationStyle.Render("(consulting: "+strings.Join(titles, ", ")+")"), assistantPrompt)
		}
	}, func() {
		done <- nil
	}, func(err error) {
		done <- err
	})
	defer cancel()

	err := <-done
	fmt.Print("\n\n")
	return err
}
