package memstore

import (
	"context"
	"fmt"

	"github.com/gtsops/gts-workflow/internal/application/port"
	"github.com/gtsops/gts-workflow/internal/domain/session"
)

// SessionStore is the memory-resident MS session registry.
type SessionStore struct {
	records *shardedMap[*session.Session]
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{records: newShardedMap[*session.Session]()}
}

var _ port.SessionStore = (*SessionStore)(nil)

func (s *SessionStore) Insert(ctx context.Context, sess *session.Session) error {
	if !s.records.insertIfAbsent(sess.ID, sess) {
		return fmt.Errorf("session %s already exists", sess.ID)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*session.Session, error) {
	sess, ok := s.records.get(id)
	if !ok {
		return nil, session.ErrNotFound
	}
	return sess, nil
}

func (s *SessionStore) Update(ctx context.Context, id string, fn func(*session.Session) error) (*session.Session, error) {
	sess, found, err := s.records.update(id, fn)
	if !found {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *SessionStore) List(ctx context.Context) ([]*session.Session, error) {
	return s.records.snapshot(), nil
}

func (s *SessionStore) Count(ctx context.Context) (int, error) {
	return s.records.len(), nil
}
