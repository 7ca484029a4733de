package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/parla-app/parla/internal/backend"
	"github.com/parla-app/parla/internal/messaging"
	"github.com/parla-app/parla/internal/panel"
	"github.com/parla-app/parla/internal/settings"
)

var phrasesCommand = &cli.Command{
	Name:  "phrases",
	Usage: "Manage saved phrases on the backend",
	Commands: []*cli.Command{
		{
			Name:  "list",
			Usage: "List saved phrases, optionally filtered by text",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "filter", Aliases: []string{"f"}, Usage: "Only phrases containing this text"},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				p, err := signedInPanel(ctx, cmd)
				if err != nil {
					return err
				}
				phrases, err := p.Phrases(ctx, cmd.String("filter"))
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTEXT\tTRANSLATION\tSOURCE\tSAVED")
				for _, ph := range phrases {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", ph.ID, ph.Text, ph.Translation,
						ph.SourcePlatform, ph.CreatedAt.Format("2006-01-02 15:04"))
				}
				return w.Flush()
			},
		},
		{
			Name:      "delete",
			Usage:     "Delete a saved phrase",
			ArgsUsage: "ID",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				id, err := strconv.ParseInt(cmd.Args().First(), 10, 64)
				if err != nil {
					return fmt.Errorf("invalid phrase id %q", cmd.Args().First())
				}
				p, err := signedInPanel(ctx, cmd)
				if err != nil {
					return err
				}
				return p.DeletePhrase(ctx, id)
			},
		},
	},
}

// signedInPanel builds a panel over the configured backend and signs in
// with the configured account.
func signedInPanel(ctx context.Context, cmd *cli.Command) (*panel.Panel, error) {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return nil, err
	}
	client := backend.NewClient(cfg.Backend.URL, cfg.Backend.Token, cfg.Backend.TimeoutDuration(), logger)
	p := panel.New(messaging.NewBus(logger), settings.NewMemoryStore(nil), client, logger)

	if cfg.Backend.Username != "" {
		if _, err := p.Login(ctx, cfg.Backend.Username, cfg.Backend.Password); err != nil {
			return nil, fmt.Errorf("sign in: %w", err)
		}
	}
	user, err := p.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("not signed in: set backend.username and backend.password, or PARLA_TOKEN")
	}
	return p, nil
}
