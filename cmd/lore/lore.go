// Package lorecmder
package lorecmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/lorebookhq/lorebook/cmd/lore/chat"
	configcmder "github.com/lorebookhq/lorebook/cmd/lore/config"
	draftcmder "github.com/lorebookhq/lorebook/cmd/lore/draft"
	initcmder "github.com/lorebookhq/lorebook/cmd/lore/init"
	mapcmder "github.com/lorebookhq/lorebook/cmd/lore/mapview"
	nodecmder "github.com/lorebookhq/lorebook/cmd/lore/node"
	projectcmder "github.com/lorebookhq/lorebook/cmd/lore/project"
	researchcmder "github.com/lorebookhq/lorebook/cmd/lore/research"
	searchcmder "github.com/lorebookhq/lorebook/cmd/lore/search"
	servecmder "github.com/lorebookhq/lorebook/cmd/lore/serve"
	statuscmder "github.com/lorebookhq/lorebook/cmd/lore/status"
	versioncmder "github.com/lorebookhq/lorebook/cmd/lore/version"
)

const loreLongDesc string = `Lorebook is a personal knowledge base with semantic search,
grounded chat, and automated research.

Start the server, then work against it from the CLI:
  lore serve             Run the lorebook API server
  lore project create    Create a project and make it active
  lore node add          Add a note to the active project
  lore search <query>    Semantic search over the library
  lore chat              Chat grounded in your notes
  lore research <goal>   Crawl linked notes into a research report`

const loreShortDesc string = "Lorebook - a personal knowledge base"

func NewLoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lore",
		Short: loreShortDesc,
		Long:  loreLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .lore/ config directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(projectcmder.NewProjectCmd())
	cmd.AddCommand(nodecmder.NewNodeCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(researchcmder.NewResearchCmd())
	cmd.AddCommand(draftcmder.NewDraftCmd())
	cmd.AddCommand(mapcmder.NewMapCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
