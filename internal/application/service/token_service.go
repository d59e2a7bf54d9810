package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/gtsops/gts-workflow/internal/application/dispatcher"
	"github.com/gtsops/gts-workflow/internal/application/port"
	"github.com/gtsops/gts-workflow/internal/domain/event"
	"github.com/gtsops/gts-workflow/internal/domain/token"
	"github.com/gtsops/gts-workflow/pkg/utils"
)

// CapManageTokens is the directory capability required for token administration.
const CapManageTokens = "canManageTokens"

// TokenService issues and validates the single-use authorization tokens that
// gate every station action.
type TokenService interface {
	// Issue mints an ACTIVE token for a (trip, driver) pair. Any token still
	// ACTIVE for the same trip is revoked first, so at most one token
	// authorizes a trip at a time.
	Issue(ctx context.Context, tripID, driverID string) (*token.Token, error)

	// Resolve validates a caller-supplied token id and returns its record.
	// Fails with token.ErrInvalid for unknown ids and token.ErrNotActive for
	// revoked or completed tokens. When the mock bypass is enabled, a
	// MOCK-TKN identity synthesizes a transient ACTIVE record.
	Resolve(ctx context.Context, tokenID string) (*token.Token, error)

	// Revoke administratively deactivates a token. Idempotent: revoking an
	// already-revoked token succeeds without change.
	Revoke(ctx context.Context, tokenID, actorID string) (*token.Token, error)

	// Complete marks a token consumed when its trip finishes.
	Complete(ctx context.Context, tokenID string) error

	List(ctx context.Context) ([]*token.Token, error)
	ActiveForDriver(ctx context.Context, driverID string) (*token.Token, error)
}

type tokenServiceImpl struct {
	store      port.TokenStore
	directory  port.UserDirectory
	dispatcher dispatcher.Dispatcher
	allowMock  bool
	logger     Logger

	// issueMu serializes issuance per trip; the find-revoke-insert sequence
	// spans three store calls and must not interleave for one trip.
	issueMu [16]sync.Mutex
}

func (s *tokenServiceImpl) issueLock(tripID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(tripID))
	return &s.issueMu[h.Sum32()%uint32(len(s.issueMu))]
}

// NewTokenService creates a TokenService. allowMock enables the development
// bypass for MOCK-TKN identities and must stay off in production.
func NewTokenService(
	store port.TokenStore,
	directory port.UserDirectory,
	d dispatcher.Dispatcher,
	allowMock bool,
	logger Logger,
) TokenService {
	return &tokenServiceImpl{
		store:      store,
		directory:  directory,
		dispatcher: d,
		allowMock:  allowMock,
		logger:     logger,
	}
}

func (s *tokenServiceImpl) Issue(ctx context.Context, tripID, driverID string) (*token.Token, error) {
	if tripID == "" || driverID == "" {
		return nil, fmt.Errorf("%w: tripId and driverId are required", ErrValidation)
	}

	mu := s.issueLock(tripID)
	mu.Lock()
	defer mu.Unlock()

	// Single-active-token invariant: a re-accept refreshes authorization
	// instead of stacking a second live token on the trip.
	active, err := s.store.FindActiveByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("find active tokens: %w", err)
	}
	for _, prev := range active {
		if _, err := s.store.Update(ctx, prev.ID, func(t *token.Token) error {
			now := time.Now()
			t.Status = token.StatusRevoked
			t.RevokedAt = &now
			return nil
		}); err != nil {
			return nil, fmt.Errorf("supersede token %s: %w", prev.ID, err)
		}
		s.logger.Info("Superseded active token", "token", prev.ID, "trip_id", tripID)
	}

	tok := &token.Token{
		ID:        utils.NewTokenID(tripID, driverID),
		TripID:    tripID,
		DriverID:  driverID,
		Status:    token.StatusActive,
		CreatedAt: time.Now(),
	}
	if err := s.store.Insert(ctx, tok); err != nil {
		return nil, fmt.Errorf("insert token: %w", err)
	}

	s.logger.Info("Token issued", "token", tok.ID, "trip_id", tripID, "driver_id", driverID)
	return tok, nil
}

func (s *tokenServiceImpl) Resolve(ctx context.Context, tokenID string) (*token.Token, error) {
	if tokenID == "" {
		return nil, fmt.Errorf("%w: token is required", ErrValidation)
	}

	if token.IsMockID(tokenID) {
		if s.allowMock {
			if tok, ok := token.FromMockID(tokenID); ok {
				return tok, nil
			}
		}
		return nil, token.ErrInvalid
	}

	tok, err := s.store.Get(ctx, tokenID)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			return nil, token.ErrInvalid
		}
		return nil, err
	}
	if !tok.IsActive() {
		return nil, fmt.Errorf("%w: %s", token.ErrNotActive, tok.Status)
	}
	return tok, nil
}

func (s *tokenServiceImpl) Revoke(ctx context.Context, tokenID, actorID string) (*token.Token, error) {
	actor, err := s.directory.Lookup(ctx, actorID)
	if err != nil || !actor.Can(CapManageTokens) {
		return nil, fmt.Errorf("%w: %s requires %s", ErrPermissionDenied, actorID, CapManageTokens)
	}

	tok, err := s.store.Update(ctx, tokenID, func(t *token.Token) error {
		if t.Status == token.StatusRevoked {
			return nil
		}
		now := time.Now()
		t.Status = token.StatusRevoked
		t.RevokedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Token revoked", "token", tokenID, "actor", actorID)
	s.dispatcher.DispatchAsync(ctx, event.New(event.TypeTokenRevoked, tok.TripID, map[string]any{
		"token":    tok.ID,
		"driverId": tok.DriverID,
	}))
	return tok, nil
}

func (s *tokenServiceImpl) Complete(ctx context.Context, tokenID string) error {
	_, err := s.store.Update(ctx, tokenID, func(t *token.Token) error {
		now := time.Now()
		t.Status = token.StatusCompleted
		t.CompletedAt = &now
		return nil
	})
	return err
}

func (s *tokenServiceImpl) List(ctx context.Context) ([]*token.Token, error) {
	return s.store.List(ctx)
}

func (s *tokenServiceImpl) ActiveForDriver(ctx context.Context, driverID string) (*token.Token, error) {
	return s.store.FindActiveByDriver(ctx, driverID)
}
