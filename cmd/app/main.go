package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gauravkale/ComicsLibrary/internal"
	"github.com/gauravkale/ComicsLibrary/internal/catalog"
	"github.com/gauravkale/ComicsLibrary/internal/collection"
	"github.com/gauravkale/ComicsLibrary/internal/mcpserver"
	"github.com/gauravkale/ComicsLibrary/internal/store"
	pkgconfig "github.com/gauravkale/ComicsLibrary/pkg/config"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func loadConfig(cmd *cli.Command) (*internal.Config, string, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, configPath, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, configPath, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithConfigPath(configPath),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	repo, err := collection.New(db, slog.Default(), nil)
	if err != nil {
		return fmt.Errorf("init collection: %w", err)
	}
	defer repo.Close()

	cat := catalog.NewClient(catalog.Options{
		BaseURL:           cfg.Catalog.BaseURL,
		PublicKey:         cfg.Catalog.PublicKey,
		PrivateKey:        cfg.Catalog.PrivateKey,
		Timeout:           cfg.Catalog.Timeout,
		RetryAttempts:     uint(cfg.Catalog.RetryAttempts),
		PageSize:          cfg.Catalog.PageSize,
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
	})
	defer cat.Close()

	return mcpserver.New(cat, repo).ServeStdio()
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:   "comicslibrary",
		Usage:  "Character catalog search with a persisted collection, notes, and live updates",
		Action: run,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve library tools over the Model Context Protocol on stdio",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
