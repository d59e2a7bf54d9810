package memstore

import (
	"context"

	"github.com/gtsops/gts-workflow/internal/application/port"
	"github.com/gtsops/gts-workflow/internal/domain/trip"
)

// TripStore is the memory-resident trip registry.
type TripStore struct {
	records *shardedMap[*trip.Trip]
}

// NewTripStore creates an empty trip store.
func NewTripStore() *TripStore {
	return &TripStore{records: newShardedMap[*trip.Trip]()}
}

var _ port.TripStore = (*TripStore)(nil)

func (s *TripStore) Get(ctx context.Context, id string) (*trip.Trip, error) {
	t, ok := s.records.get(id)
	if !ok {
		return nil, trip.ErrNotFound
	}
	return t, nil
}

func (s *TripStore) Update(ctx context.Context, id string, fn func(*trip.Trip) error) (*trip.Trip, error) {
	t, found, err := s.records.update(id, fn)
	if !found {
		return nil, trip.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TripStore) Upsert(ctx context.Context, id string, fn func(*trip.Trip) error) (*trip.Trip, error) {
	return s.records.upsert(id, func() *trip.Trip { return trip.New(id) }, fn)
}

func (s *TripStore) List(ctx context.Context) ([]*trip.Trip, error) {
	return s.records.snapshot(), nil
}

func (s *TripStore) Count(ctx context.Context) (int, error) {
	return s.records.len(), nil
}

// Seed inserts a trip directly, for startup fixtures and tests.
func (s *TripStore) Seed(t *trip.Trip) {
	s.records.insertIfAbsent(t.ID, t)
}
