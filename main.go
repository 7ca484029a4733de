package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/parla-app/parla/internal/config"
	"github.com/parla-app/parla/internal/logging"
)

func main() {
	app := &cli.Command{
		Name:  "parla",
		Usage: "Live caption translation backend and engine harness",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML config file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the translation and phrase API",
				Action: serve,
			},
			{
				Name:  "replay",
				Usage: "Replay a WebVTT track through the caption engine on a saved page",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "page", Usage: "Saved page HTML", Required: true},
					&cli.StringFlag{Name: "captions", Usage: "WebVTT caption track", Required: true},
					&cli.StringFlag{Name: "url", Usage: "URL the page was saved from", Required: true},
					&cli.StringFlag{Name: "out", Usage: "Write the overlay transcript here instead of stdout"},
					&cli.StringFlag{Name: "click", Usage: "Click this word whenever the overlay shows it"},
				},
				Action: replayCommand,
			},
			phrasesCommand,
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// setup loads the config and builds the logger shared by every command.
func setup(cmd *cli.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Debug.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Source != "" {
		logger.Info("Loaded config", zap.String("path", cfg.Source))
	}
	return cfg, logger, nil
}
