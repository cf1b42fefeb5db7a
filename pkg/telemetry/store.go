// Package telemetry keeps the most recent position reported by every tracked vehicle.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
)

const defaultPersistTimeout = 30 * time.Second

// Store is the table of latest position per device. Writers are serialised, readers take
// copies so they never see a record half written.
type Store struct {
	mu        sync.RWMutex
	positions map[DeviceKey]Position

	persister      Persister
	persistTimeout time.Duration
	pending        chan map[DeviceKey]Position
	done           chan struct{}
	closeOnce      sync.Once
}

type StoreOption func(*Store)

// WithPersister dumps the full table after every update. Dumps are best effort and run in
// the background, when several updates land during one dump only the newest table is kept.
func WithPersister(persister Persister) StoreOption {
	return func(s *Store) {
		s.persister = persister
	}
}

func WithPersistTimeout(timeout time.Duration) StoreOption {
	return func(s *Store) {
		s.persistTimeout = timeout
	}
}

func NewStore(opts ...StoreOption) *Store {
	store := &Store{
		positions:      map[DeviceKey]Position{},
		persistTimeout: defaultPersistTimeout,
		done:           make(chan struct{}),
	}

	for _, opt := range opts {
		opt(store)
	}

	if store.persister != nil {
		store.pending = make(chan map[DeviceKey]Position, 1)
		go store.runPersister()
	}

	return store
}

// Update replaces the record of every keyed message in the batch. Messages without a device
// key are ignored.
func (s *Store) Update(batch Batch) {
	s.mu.Lock()
	updated := 0
	for _, position := range batch.Positions {
		if position.DeviceID == "" {
			continue
		}

		s.positions[position.DeviceID] = position
		updated++
	}

	// Queued under the lock so dumps are handed over in update order
	if s.persister != nil && updated > 0 {
		table := make(map[DeviceKey]Position, len(s.positions))
		for key, position := range s.positions {
			table[key] = position
		}
		s.schedulePersist(table)
	}
	size := len(s.positions)
	s.mu.Unlock()

	log.Debug().Int("updated", updated).Int("size", size).Msg("Telemetry store updated")
}

// UpdateJSON decodes an ingestion payload and applies it
func (s *Store) UpdateJSON(payload []byte) error {
	batch, err := DecodeBatch(payload)
	if err != nil {
		return err
	}

	s.Update(batch)

	return nil
}

// Snapshot returns a copy of the table that the caller is free to iterate and modify
func (s *Store) Snapshot() map[DeviceKey]Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[DeviceKey]Position, len(s.positions))
	if err := copier.CopyWithOption(&snapshot, &s.positions, copier.Option{DeepCopy: true}); err != nil {
		log.Error().Err(err).Msg("Failed to deep copy telemetry table")

		// Records are replaced wholesale and never modified in place, a shallow copy is still consistent
		for key, position := range s.positions {
			snapshot[key] = position
		}
	}

	return snapshot
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.positions)
}

// Close stops the background persister, any queued dump is dropped
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// schedulePersist never blocks, a queued table that the persister has not picked up yet is
// replaced by the newer one
func (s *Store) schedulePersist(table map[DeviceKey]Position) {
	for {
		select {
		case s.pending <- table:
			return
		default:
		}

		// Replace the queued dump with the newer table
		select {
		case <-s.pending:
		default:
		}
	}
}

func (s *Store) runPersister() {
	for {
		select {
		case <-s.done:
			return
		case table := <-s.pending:
			ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
			startTime := time.Now()

			if err := s.persister.Persist(ctx, table); err != nil {
				log.Error().Err(err).Str("persister", s.persister.Name()).Msg("Failed to persist telemetry table")
			} else {
				log.Debug().
					Str("persister", s.persister.Name()).
					Int("length", len(table)).
					Str("time", time.Since(startTime).String()).
					Msg("Persisted telemetry table")
			}

			cancel()
		}
	}
}
