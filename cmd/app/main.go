package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/langthil/internal"
	"github.com/starford/langthil/internal/wiki"
	pkgconfig "github.com/starford/langthil/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func options(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func resolve(ctx context.Context, cmd *cli.Command) error {
	raw := cmd.Args().First()
	if raw == "" {
		return fmt.Errorf("usage: langthil resolve <path>")
	}
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	res, err := internal.Resolve(ctx, raw, opts...)
	if err != nil {
		return err
	}

	outcome := color.New(color.Bold)
	switch res.Outcome {
	case wiki.Found:
		outcome.Add(color.FgGreen)
	case wiki.Redirected:
		outcome.Add(color.FgCyan)
	case wiki.StickyRedirect:
		outcome.Add(color.FgYellow)
	default:
		outcome.Add(color.FgRed)
	}
	fmt.Fprintf(color.Output, "%s %s", outcome.Sprint(res.Outcome), raw)
	if res.URL != "" {
		fmt.Fprintf(color.Output, " -> %s", res.URL)
	}
	if res.Article != nil {
		fmt.Fprintf(color.Output, " %s", color.New(color.Faint).Sprintf("(%s)", res.Article.Title))
	}
	fmt.Fprintln(color.Output)
	return nil
}

func syncVault(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	n, err := internal.Sync(ctx, opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(color.Output, "%s %d file(s)\n", color.GreenString("imported"), n)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "langthil",
		Usage:   "Wiki content engine with namespaced articles, sticky redirects and Markdown rendering",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:      "resolve",
				Usage:     "Print how a wiki path resolves for readers",
				ArgsUsage: "<path>",
				Action:    resolve,
			},
			{
				Name:   "sync",
				Usage:  "Import changed vault files once",
				Action: syncVault,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
