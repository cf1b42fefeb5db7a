package ingest

import (
	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/gbfs/pkg/redis_client"
	"github.com/travigo/gbfs/pkg/telemetry"
)

const PositionsQueueName = "gbfs-positions"

// PayloadHandler accepts a single raw ingestion payload
type PayloadHandler interface {
	UpdateJSON(payload []byte) error
}

type QueueBatchConsumer struct {
	handler PayloadHandler
}

func NewQueueBatchConsumer(handler PayloadHandler) *QueueBatchConsumer {
	return &QueueBatchConsumer{handler: handler}
}

func (c *QueueBatchConsumer) Consume(batch rmq.Deliveries) {
	for _, delivery := range batch {
		if err := c.handler.UpdateJSON([]byte(delivery.Payload())); err != nil {
			log.Error().Err(err).Msg("Rejecting undecodable telemetry payload")

			if err := delivery.Reject(); err != nil {
				log.Error().Err(err).Msg("Failed to reject delivery")
			}
			continue
		}

		if err := delivery.Ack(); err != nil {
			log.Error().Err(err).Msg("Failed to ack delivery")
		}
	}
}

type QueuePublisher struct {
	queue rmq.Queue
}

func NewQueuePublisher(queue rmq.Queue) *QueuePublisher {
	return &QueuePublisher{queue: queue}
}

// OpenQueuePublisher publishes onto the shared positions queue
func OpenQueuePublisher() (*QueuePublisher, error) {
	queue, err := redis_client.QueueConnection.OpenQueue(PositionsQueueName)
	if err != nil {
		return nil, err
	}

	return NewQueuePublisher(queue), nil
}

// UpdateJSON forwards payloads carrying positions onto the queue, anything else is dropped
func (p *QueuePublisher) UpdateJSON(payload []byte) error {
	batch, err := telemetry.DecodeBatch(payload)
	if err != nil {
		return err
	}
	if len(batch.Positions) == 0 {
		return nil
	}

	return p.queue.PublishBytes(payload)
}
