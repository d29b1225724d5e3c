// Package servecmder provides the serve command for running the lorebook API server.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lorebookhq/lorebook/api"
	"github.com/lorebookhq/lorebook/pkg/config"
	"github.com/lorebookhq/lorebook/pkg/embeddings"
	embeddingutils "github.com/lorebookhq/lorebook/pkg/embeddings/utils"
	"github.com/lorebookhq/lorebook/pkg/eventstream"
	"github.com/lorebookhq/lorebook/pkg/eventstream/kafka"
	"github.com/lorebookhq/lorebook/pkg/eventstream/nop"
	"github.com/lorebookhq/lorebook/pkg/logger"
	providerutils "github.com/lorebookhq/lorebook/pkg/llm/provider/utils"
	"github.com/lorebookhq/lorebook/pkg/storage"
	"github.com/lorebookhq/lorebook/pkg/storage/inmemory"
	"github.com/lorebookhq/lorebook/pkg/storage/postgres"
	"github.com/lorebookhq/lorebook/pkg/storage/sqlite"
	"github.com/lorebookhq/lorebook/pkg/vector"
	vectorutils "github.com/lorebookhq/lorebook/pkg/vector/utils"
)

type ServeCommander struct {
	listen            string
	storageDriver     string
	sqlitePath        string
	postgresURL       string
	vectorProvider    string
	vectorPath        string
	embeddingProvider string
	embeddingTarget   string
	embeddingModel    string
	embeddingDims     uint
	llmProvider       string
	llmTarget         string
	llmModel          string
	debug             bool

	v      *viper.Viper
	logger *slog.Logger
}

// serveFlags defines the flags the serve command registers, keyed by the
// shared registry constants so names and viper keys stay consistent with
// other commands.
var serveFlags = config.FlagSet{
	config.FlagAPIListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "api.listen",
		Description: "Address for the API server to listen on",
	},
	config.FlagStorageDriver: {
		Name:        "storage-driver",
		ViperKey:    "storage.driver",
		Description: "Knowledge base storage driver (inmemory, sqlite, postgres)",
	},
	config.FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "storage.sqlite_path",
		Description: "Path to the SQLite knowledge base database",
	},
	config.FlagPostgres: {
		Name:        "postgres",
		ViperKey:    "storage.postgres_url",
		Description: "Postgres connection URL",
	},
	config.FlagVectorStoreProv: {
		Name:        "vector-store-provider",
		ViperKey:    "vector_store.provider",
		Description: "Vector store provider (sqlite-vec, qdrant, none)",
	},
	config.FlagVectorStorePath: {
		Name:        "vector-store-path",
		ViperKey:    "vector_store.db_path",
		Description: "Path to the sqlite-vec database",
	},
	config.FlagEmbeddingProv: {
		Name:        "embedding-provider",
		ViperKey:    "embedding.provider",
		Description: "Embedding provider (ollama, none)",
	},
	config.FlagEmbeddingTgt: {
		Name:        "embedding-target",
		ViperKey:    "embedding.target",
		Description: "Embedding provider URL",
	},
	config.FlagEmbeddingModel: {
		Name:        "embedding-model",
		ViperKey:    "embedding.model",
		Description: "Embedding model name",
	},
	config.FlagEmbeddingDims: {
		Name:        "embedding-dimensions",
		ViperKey:    "embedding.dimensions",
		Description: "Embedding vector dimensions",
	},
	config.FlagLLMProvider: {
		Name:        "llm-provider",
		ViperKey:    "llm.provider",
		Description: "Chat completion provider (ollama, static)",
	},
	config.FlagLLMTarget: {
		Name:        "llm-target",
		ViperKey:    "llm.target",
		Description: "Chat completion provider URL",
	},
	config.FlagLLMModel: {
		Name:        "llm-model",
		ViperKey:    "llm.model",
		Description: "Chat completion model name",
	},
}

// serveFlagKeys is the registration order for serveFlags.
var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagVectorStoreProv,
	config.FlagVectorStorePath,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagLLMProvider,
	config.FlagLLMTarget,
	config.FlagLLMModel,
}

const serveLongDesc string = `Run the lorebook API server.

The server exposes the REST API, the chat and research SSE streams, and the
MCP endpoint. Settings follow the usual precedence: CLI flags override
LORE_* environment variables, which override config.toml, which overrides
the built-in defaults.

Set the vector store or embedding provider to "none" to run without
semantic search. The search endpoint and MCP search tool report unavailable
in that mode; everything else keeps working.

Examples:
  lore serve
  lore serve --listen :9000 --storage-driver inmemory
  lore serve --storage-driver postgres --postgres postgres://localhost:5432/lore`

const serveShortDesc string = "Run the lorebook API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, serveFlags, serveFlagKeys)

			cmder.v = v
			cmder.listen = v.GetString("api.listen")
			cmder.storageDriver = v.GetString("storage.driver")
			cmder.sqlitePath = v.GetString("storage.sqlite_path")
			cmder.postgresURL = v.GetString("storage.postgres_url")
			cmder.vectorProvider = v.GetString("vector_store.provider")
			cmder.vectorPath = v.GetString("vector_store.db_path")
			cmder.embeddingProvider = v.GetString("embedding.provider")
			cmder.embeddingTarget = v.GetString("embedding.target")
			cmder.embeddingModel = v.GetString("embedding.model")
			cmder.embeddingDims = v.GetUint("embedding.dimensions")
			cmder.llmProvider = v.GetString("llm.provider")
			cmder.llmTarget = v.GetString("llm.target")
			cmder.llmModel = v.GetString("llm.model")

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, serveFlags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, serveFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, serveFlags, config.FlagPostgres, &cmder.postgresURL)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStorePath, &cmder.vectorPath)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, serveFlags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMProvider, &cmder.llmProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMTarget, &cmder.llmTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagLLMModel, &cmder.llmModel)

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithJSON(true))

	ctx := context.Background()

	storer, err := c.createStorer(ctx)
	if err != nil {
		return err
	}
	defer storer.Close()

	vectorDriver, err := c.createVectorDriver(ctx)
	if err != nil {
		return err
	}
	if vectorDriver != nil {
		defer vectorDriver.Close()
	}

	embedder, err := c.createEmbedder()
	if err != nil {
		return err
	}
	if embedder != nil {
		defer embedder.Close()
	}

	llmProvider, err := providerutils.NewProvider(&providerutils.NewProviderOpts{
		ProviderType: c.llmProvider,
		TargetURL:    c.llmTarget,
		Model:        c.llmModel,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating chat provider: %w", err)
	}
	defer llmProvider.Close()

	publisher, err := c.createPublisher()
	if err != nil {
		return err
	}
	defer publisher.Close()

	apiConfig := api.Config{
		ListenAddr:   c.listen,
		VectorDriver: vectorDriver,
		Embedder:     embedder,
		Provider:     llmProvider,
		Publisher:    publisher,
	}

	server, err := api.NewServer(apiConfig, storer, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	c.logger.Info("starting lorebook server",
		"listen", c.listen,
		"storage", c.storageDriver,
		"vector_store", c.vectorProvider,
		"llm", c.llmProvider,
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("api server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}

func (c *ServeCommander) createStorer(ctx context.Context) (storage.Driver, error) {
	switch c.storageDriver {
	case "sqlite":
		driver, err := sqlite.NewDriver(c.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("creating SQLite storer: %w", err)
		}
		c.logger.Info("using SQLite storage", "path", c.sqlitePath)
		return driver, nil

	case "postgres":
		driver, err := postgres.NewDriver(ctx, c.postgresURL)
		if err != nil {
			return nil, fmt.Errorf("creating Postgres storer: %w", err)
		}
		c.logger.Info("using Postgres storage")
		return driver, nil

	case "inmemory", "":
		c.logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", c.storageDriver)
	}
}

func (c *ServeCommander) createVectorDriver(ctx context.Context) (vector.Driver, error) {
	if c.vectorProvider == "" || c.vectorProvider == "none" {
		c.logger.Info("vector store disabled, semantic search unavailable")
		return nil, nil
	}

	driver, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: c.vectorProvider,
		DBPath:       c.vectorPath,
		Host:         c.v.GetString("vector_store.host"),
		Port:         c.v.GetInt("vector_store.port"),
		Collection:   c.v.GetString("vector_store.collection"),
		Dimensions:   c.embeddingDims,
		Logger:       c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	return driver, nil
}

func (c *ServeCommander) createEmbedder() (embeddings.Embedder, error) {
	if c.embeddingProvider == "" || c.embeddingProvider == "none" {
		return nil, nil
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: c.embeddingProvider,
		TargetURL:    c.embeddingTarget,
		Model:        c.embeddingModel,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return embedder, nil
}

func (c *ServeCommander) createPublisher() (eventstream.Publisher, error) {
	if c.v.GetString("events.provider") != "kafka" {
		return nop.NewPublisher(), nil
	}

	publisher, err := kafka.NewPublisher(kafka.Config{
		Brokers: c.v.GetStringSlice("events.brokers"),
		Topic:   c.v.GetString("events.topic"),
	}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}

	return publisher, nil
}
