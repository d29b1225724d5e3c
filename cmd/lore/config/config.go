// Package configcmder provides the config command for managing persistent
// lorebook configuration stored in the .lore/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent lorebook configuration.

Configuration is stored as config.toml in the .lore/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.driver, storage.sqlite_path, storage.postgres_url,
  api.listen, client.api_target,
  vector_store.provider, vector_store.db_path, vector_store.host,
  vector_store.port, vector_store.collection,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  llm.provider, llm.target, llm.model,
  events.provider, events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  lore config set <key> <value>    Set a configuration value
  lore config get <key>            Get a configuration value
  lore config list                 List all configuration values

Examples:
  lore config set storage.driver postgres
  lore config set embedding.model nomic-embed-text
  lore config get llm.provider
  lore config list`

const configShortDesc string = "Manage persistent lorebook configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
