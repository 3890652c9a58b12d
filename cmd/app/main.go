package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/jponter/proxyforge/internal"
	"github.com/jponter/proxyforge/internal/catalog"
	"github.com/jponter/proxyforge/internal/fetch"
	"github.com/jponter/proxyforge/internal/importer"
	"github.com/jponter/proxyforge/internal/mcpserver"
	"github.com/jponter/proxyforge/internal/resolver"
	pkgconfig "github.com/jponter/proxyforge/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfPresent(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// newService builds the offline import pipeline used by the one-shot import
// and MCP subcommands.
func newService(cfg *internal.Config) (*importer.Service, *catalog.DB, error) {
	db, err := catalog.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init catalog: %w", err)
	}
	fetcher := fetch.NewHTTPFetcher(cfg.Fetcher.BaseURL, cfg.Fetcher.Timeout())
	svc := importer.NewService(resolver.New(fetcher), db, importer.Config{
		BleedDefault:  cfg.Print.BleedDefault,
		MaxConcurrent: cfg.Fetcher.MaxConcurrent,
		CardWidthMM:   cfg.Print.CardWidthMM,
		CardHeightMM:  cfg.Print.CardHeightMM,
	}, nil)
	return svc, db, nil
}

func importOrder(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: proxyforge import <order.xml>")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read order file: %w", err)
	}

	svc, db, err := newService(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := svc.ImportXML(ctx, path, data)
	if err != nil {
		return err
	}

	fmt.Printf("order %d imported: %s (resolved %d, failed %d, skipped %d)\n",
		res.OrderID, res.Report.Outcome,
		res.Report.Resolved, res.Report.Failed, res.Report.Skipped)
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Stdout carries the MCP protocol, so logs must go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	svc, db, err := newService(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return mcpserver.New(svc, db).ServeStdio()
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
		Name:   "proxyforge",
		Usage:  "Print-order import service that resolves card images from a remote lookup service",
		Action: serve,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, SSE stream, and hot folder watcher",
				Action: serve,
				Flags:  []cli.Flag{configFlag},
			},
			{
				Name:      "import",
				Usage:     "Import a single order XML file and print the resolution report",
				ArgsUsage: "<order.xml>",
				Action:    importOrder,
				Flags:     []cli.Flag{configFlag},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tool interface on stdio",
				Action: serveMCP,
				Flags:  []cli.Flag{configFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
