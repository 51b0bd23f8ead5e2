package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/quailpub/internal"
	"github.com/starford/quailpub/internal/publisher"
	pkgconfig "github.com/starford/quailpub/pkg/config"
)

const defaultConfigFile = "config/config.yaml"

// loadConfig reads the file named by --config. Without the flag the project
// file is tried first, then the per-user one.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if cmd.IsSet("config") {
		if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		return cfg, nil
	}
	if _, err := pkgconfig.LoadFirst(cfg, defaultConfigFile, pkgconfig.UserFile("quailpub")); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func cliLogger(cfg *internal.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
}

// withPublisher runs fn against a publisher built from the loaded config.
// Every state change of an action is logged.
func withPublisher(ctx context.Context, cmd *cli.Command, fn func(*publisher.Service) (any, error)) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := cliLogger(cfg)

	c, err := internal.NewComponents(ctx, cfg, logger, publisher.WithObserver(func(t publisher.Transition) {
		logger.Debug("state changed",
			slog.String("path", t.Path),
			slog.String("action", t.Action),
			slog.String("from", string(t.From)),
			slog.String("to", string(t.To)))
	}))
	if err != nil {
		return err
	}
	defer c.Close()

	out, err := fn(c.Publisher)
	if err != nil {
		return err
	}
	return printJSON(out)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func docPath(cmd *cli.Command) (string, error) {
	p := cmd.Args().First()
	if p == "" {
		return "", fmt.Errorf("%s: document path is required", cmd.Name)
	}
	return p, nil
}

type docAction func(ctx context.Context, svc *publisher.Service, path string) (any, error)

func documentCommand(name, usage string, do docAction) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<path>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := docPath(cmd)
			if err != nil {
				return err
			}
			return withPublisher(ctx, cmd, func(svc *publisher.Service) (any, error) {
				return do(ctx, svc, p)
			})
		},
	}
}

func commands() []*cli.Command {
	return []*cli.Command{
		documentCommand("save", "Upload images and create or update the post without publishing it",
			func(ctx context.Context, svc *publisher.Service, p string) (any, error) { return svc.Save(ctx, p) }),
		documentCommand("publish", "Save the document and publish its post",
			func(ctx context.Context, svc *publisher.Service, p string) (any, error) { return svc.Publish(ctx, p) }),
		documentCommand("unpublish", "Hide the document's post",
			func(ctx context.Context, svc *publisher.Service, p string) (any, error) { return svc.Unpublish(ctx, p) }),
		documentCommand("deliver", "Send the document's post to subscribers",
			func(ctx context.Context, svc *publisher.Service, p string) (any, error) { return svc.Deliver(ctx, p) }),
		documentCommand("verify", "Check that the document's frontmatter can be published",
			func(ctx context.Context, svc *publisher.Service, p string) (any, error) { return svc.Verify(ctx, p) }),
		documentCommand("preview", "Print the payload that would be sent, without uploading",
			func(ctx context.Context, svc *publisher.Service, p string) (any, error) { return svc.Preview(ctx, p) }),
		documentCommand("gen-metadata", "Fill slug, summary and tags from the Quail composer",
			func(ctx context.Context, svc *publisher.Service, p string) (any, error) {
				return svc.GenerateMetadata(ctx, p)
			}),
		documentCommand("insert-metadata", "Prepend a frontmatter template to the document",
			func(ctx context.Context, svc *publisher.Service, p string) (any, error) {
				return svc.InsertTemplate(ctx, p)
			}),
		{
			Name:  "status",
			Usage: "List saved posts and whether their documents changed",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withPublisher(ctx, cmd, func(svc *publisher.Service) (any, error) {
					return svc.Status(ctx)
				})
			},
		},
		{
			Name:  "serve",
			Usage: "Serve the REST API and event stream",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
					return fmt.Errorf("app run error: %w", err)
				}
				return nil
			},
		},
		{
			Name:  "mcp",
			Usage: "Serve MCP tools over stdio",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				return internal.RunMCP(ctx, internal.WithConfig(cfg))
			},
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:     "quailpub",
		Usage:    "Publish Markdown documents from a local vault to Quail",
		Commands: commands(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: defaultConfigFile + ", then the user config dir",
				Value:       defaultConfigFile,
				Sources:     cli.EnvVars("QUAILPUB_CONFIG_FILE"),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
