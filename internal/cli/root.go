// Package cli provides the dialogue-admin command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"dialogue-backend/internal/config"
	"dialogue-backend/internal/database"
	"dialogue-backend/internal/middleware"
	"dialogue-backend/internal/models"
	"dialogue-backend/internal/repository"
	"dialogue-backend/internal/services"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	app *backend

	// connect opens the stores every command works against.
	connect = connectPostgres
)

type catalogAdmin interface {
	Seed(ctx context.Context, seed models.CatalogSeed) (services.SeedResult, error)
	CreateAIModel(ctx context.Context, family string) (*models.AIModel, error)
	CreateModelVersion(ctx context.Context, family, version string) (*models.ModelVersion, error)
	ListAIModels(ctx context.Context) ([]*models.AIModel, error)
	ListModelVersions(ctx context.Context, modelID int64) ([]*models.ModelVersion, error)
}

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type tokenIssuer interface {
	GenerateAccessToken(userID uuid.UUID, username string, perms []string, ttl time.Duration) (string, error)
}

type backend struct {
	catalog catalogAdmin
	users   userStore
	tokens  tokenIssuer
	close   func()
}

var rootCmd = &cobra.Command{
	Use:   "dialogue-admin",
	Short: "Administer the dialogue backend",
	Long: `dialogue-admin provisions the model catalog and local users, and mints
access tokens for testing the API.

It reads the same environment (or .env file) as the server.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		app, err = connect(cmd.Context())
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil && app.close != nil {
			app.close()
		}
		app = nil
	},
}

func connectPostgres(ctx context.Context) (*backend, error) {
	cfg := config.Load()

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := config.SetupLoggerWithWriters(os.Stderr, io.Discard, level)

	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := database.RunMigrations(pool, database.MigrationSource(cfg.MigrationsDir), logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &backend{
		catalog: services.NewCatalogService(repository.NewCatalogRepo(pool), logger),
		users:   repository.NewUserRepo(pool),
		tokens:  middleware.NewJWTAuth(cfg.JWTSecret),
		close:   pool.Close,
	}, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(tokenCmd)
}
