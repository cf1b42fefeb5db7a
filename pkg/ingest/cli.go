package ingest

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/travigo/gbfs/pkg/redis_client"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Moves Traccar telemetry onto the positions queue",
		Subcommands: []*cli.Command{
			{
				Name:  "bridge",
				Usage: "stream the Traccar websocket onto the positions queue",
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					publisher, err := OpenQueuePublisher()
					if err != nil {
						return err
					}

					ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
					defer stop()

					source := NewTraccarSource(TraccarConfigFromEnvironment(), publisher)
					if err := source.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						return err
					}

					return nil
				},
			},
			{
				Name:  "publish",
				Usage: "publish a positions batch file onto the queue",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "JSON file holding a {\"positions\": [...]} batch",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					payload, err := os.ReadFile(c.String("file"))
					if err != nil {
						return err
					}

					publisher, err := OpenQueuePublisher()
					if err != nil {
						return err
					}

					if err := publisher.UpdateJSON(payload); err != nil {
						return err
					}

					log.Info().Str("file", c.String("file")).Str("queue", PositionsQueueName).Msg("Published positions batch")

					return nil
				},
			},
		},
	}
}
