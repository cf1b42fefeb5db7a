package translator

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kr/pretty"
	"github.com/travigo/gbfs/pkg/telemetry"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "debug",
		Usage: "Inspect feed translation offline",
		Subcommands: []*cli.Command{
			{
				Name:  "free-bike-status",
				Usage: "translate a telemetry file and print the resulting feed",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Usage:    "positions batch, or a table written by the file persister",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "bike-ids",
						Value: string(BikeIDPersistent),
						Usage: "bike_id publishing mode: persistent or hashed",
					},
				},
				Action: func(c *cli.Context) error {
					payload, err := os.ReadFile(c.String("input"))
					if err != nil {
						return err
					}

					store, err := loadStore(payload)
					if err != nil {
						return err
					}

					freeBikeStatus := NewFreeBikeStatus(store, WithBikeIDMode(BikeIDMode(c.String("bike-ids"))))
					feed := freeBikeStatus.Make()

					pretty.Println(feed)
					pretty.Println(freeBikeStatus.Stats())

					return nil
				},
			},
		},
	}
}

// loadStore accepts either a persisted device table or an ingestion batch
func loadStore(payload []byte) (*telemetry.Store, error) {
	store := telemetry.NewStore()

	var table map[telemetry.DeviceKey]telemetry.Position
	if err := json.Unmarshal(payload, &table); err == nil {
		positions := make([]telemetry.Position, 0, len(table))
		for _, position := range table {
			positions = append(positions, position)
		}
		store.Update(telemetry.Batch{Positions: positions})

		return store, nil
	}

	if err := store.UpdateJSON(payload); err != nil {
		return nil, fmt.Errorf("input is neither a device table nor a positions batch: %w", err)
	}

	return store, nil
}
