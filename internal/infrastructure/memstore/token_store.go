package memstore

import (
	"context"
	"fmt"

	"github.com/gtsops/gts-workflow/internal/application/port"
	"github.com/gtsops/gts-workflow/internal/domain/token"
)

// TokenStore is the memory-resident token registry.
type TokenStore struct {
	records *shardedMap[*token.Token]
}

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{records: newShardedMap[*token.Token]()}
}

var _ port.TokenStore = (*TokenStore)(nil)

func (s *TokenStore) Insert(ctx context.Context, t *token.Token) error {
	if !s.records.insertIfAbsent(t.ID, t) {
		return fmt.Errorf("token %s already exists", t.ID)
	}
	return nil
}

func (s *TokenStore) Get(ctx context.Context, id string) (*token.Token, error) {
	t, ok := s.records.get(id)
	if !ok {
		return nil, token.ErrNotFound
	}
	return t, nil
}

func (s *TokenStore) Update(ctx context.Context, id string, fn func(*token.Token) error) (*token.Token, error) {
	t, found, err := s.records.update(id, fn)
	if !found {
		return nil, token.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TokenStore) List(ctx context.Context) ([]*token.Token, error) {
	return s.records.snapshot(), nil
}

func (s *TokenStore) FindActiveByTrip(ctx context.Context, tripID string) ([]*token.Token, error) {
	var out []*token.Token
	for _, t := range s.records.snapshot() {
		if t.TripID == tripID && t.IsActive() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *TokenStore) FindActiveByDriver(ctx context.Context, driverID string) (*token.Token, error) {
	var newest *token.Token
	for _, t := range s.records.snapshot() {
		if t.DriverID != driverID || !t.IsActive() {
			continue
		}
		if newest == nil || t.CreatedAt.After(newest.CreatedAt) {
			newest = t
		}
	}
	if newest == nil {
		return nil, token.ErrNotFound
	}
	return newest, nil
}

func (s *TokenStore) CountActive(ctx context.Context) (int, error) {
	n := 0
	for _, t := range s.records.snapshot() {
		if t.IsActive() {
			n++
		}
	}
	return n, nil
}
