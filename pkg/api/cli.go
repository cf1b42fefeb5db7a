package api

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/gbfs/pkg/api/routes"
	"github.com/travigo/gbfs/pkg/consumer"
	"github.com/travigo/gbfs/pkg/database"
	"github.com/travigo/gbfs/pkg/elastic_client"
	"github.com/travigo/gbfs/pkg/ingest"
	"github.com/travigo/gbfs/pkg/odoo"
	"github.com/travigo/gbfs/pkg/redis_client"
	"github.com/travigo/gbfs/pkg/stations"
	"github.com/travigo/gbfs/pkg/systemconfig"
	"github.com/travigo/gbfs/pkg/telemetry"
	"github.com/travigo/gbfs/pkg/translator"
	"github.com/travigo/gbfs/pkg/util"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Serves the GBFS feeds",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
					&cli.StringFlag{
						Name:    "ingest",
						Value:   "queue",
						Usage:   "where telemetry comes from: none, queue or websocket",
						EnvVars: []string{"GBFS_INGEST"},
					},
					&cli.StringFlag{
						Name:    "system-config",
						Value:   "config.yml",
						Usage:   "YAML file describing the system",
						EnvVars: []string{"GBFS_SYSTEM_CONFIG"},
					},
					&cli.StringFlag{
						Name:    "bike-ids",
						Value:   string(translator.BikeIDPersistent),
						Usage:   "bike_id publishing mode: persistent or hashed",
						EnvVars: []string{"GBFS_BIKE_ID_MODE"},
					},
				},
				Action: func(c *cli.Context) error {
					ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
					defer stop()

					systemConfig, err := systemconfig.Load(c.String("system-config"))
					if err != nil {
						return err
					}

					if err := elastic_client.Connect(false); err != nil {
						return err
					}

					ingestMode := c.String("ingest")
					persistMode := telemetry.PersistenceBackend()

					if ingestMode == "queue" || persistMode == "redis" {
						if err := redis_client.Connect(); err != nil {
							return err
						}
					}
					if persistMode == "mongo" {
						if err := database.Connect(); err != nil {
							return err
						}
					}

					persister, err := telemetry.PersisterFromEnvironment()
					if err != nil {
						return err
					}

					var storeOptions []telemetry.StoreOption
					if persister != nil {
						log.Info().Str("persister", persister.Name()).Msg("Persisting telemetry snapshots")
						storeOptions = append(storeOptions, telemetry.WithPersister(persister))
					}
					store := telemetry.NewStore(storeOptions...)
					defer store.Close()

					stationSource, err := connectStations(ctx, systemConfig)
					if err != nil {
						log.Fatal().Err(err).Msg("Failed to connect to Odoo")
					}

					bikeIDMode := translator.BikeIDMode(c.String("bike-ids"))
					if bikeIDMode != translator.BikeIDPersistent && bikeIDMode != translator.BikeIDHashed {
						return fmt.Errorf("unknown bike id mode %q", bikeIDMode)
					}

					feeds := &routes.Feeds{
						System:    systemConfig,
						FreeBikes: translator.NewFreeBikeStatus(store, translator.WithBikeIDMode(bikeIDMode)),
					}
					if stationSource != nil {
						feeds.Stations = stationSource
					}

					switch ingestMode {
					case "none":
					case "queue":
						redisConsumer := consumer.RedisConsumer{
							QueueName:       ingest.PositionsQueueName,
							NumberConsumers: util.GetEnvironmentInt("GBFS_QUEUE_CONSUMERS", 1),
							BatchSize:       util.GetEnvironmentInt("GBFS_QUEUE_BATCH_SIZE", 20),
							Timeout:         2 * time.Second,
							Consumer:        ingest.NewQueueBatchConsumer(store),
							StatsListen:     util.GetEnvironmentString("GBFS_QUEUE_STATS_LISTEN", consumer.StatsListenAddress()),
						}
						if err := redisConsumer.Setup(); err != nil {
							return err
						}
						defer func() {
							<-redis_client.QueueConnection.StopAllConsuming()
						}()
					case "websocket":
						source := ingest.NewTraccarSource(ingest.TraccarConfigFromEnvironment(), store)
						go func() {
							if err := source.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
								log.Error().Err(err).Msg("Traccar ingestion stopped")
							}
						}()
					default:
						return fmt.Errorf("unknown ingest mode %q", ingestMode)
					}

					webApp := NewApp(feeds)
					go func() {
						<-ctx.Done()
						webApp.ShutdownWithTimeout(5 * time.Second)
					}()

					log.Info().Str("listen", c.String("listen")).Str("ingest", ingestMode).Msg("Serving GBFS feeds")

					err = webApp.Listen(c.String("listen"))

					elastic_client.WaitUntilQueueEmpty()

					return err
				},
			},
		},
	}
}

// connectStations logs into Odoo. A missing configuration disables the station feeds, any
// other failure is returned.
func connectStations(ctx context.Context, systemConfig *systemconfig.Config) (*stations.Directory, error) {
	odooConfig, err := odoo.ConfigFromEnvironment()
	if errors.Is(err, odoo.ErrNotConfigured) {
		log.Warn().Msg("Odoo is not configured, station feeds will be empty")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	client, err := odoo.NewClient(ctx, odooConfig)
	if err != nil {
		return nil, err
	}

	return stations.NewDirectory(client,
		stations.WithRentalURIBase(systemConfig.RentalURIBase),
		stations.WithWorkers(util.GetEnvironmentInt("GBFS_STATION_WORKERS", 8)),
		stations.WithTimeout(odooConfig.Timeout),
	), nil
}
