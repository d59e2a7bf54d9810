package memstore

import (
	"context"

	"github.com/gtsops/gts-workflow/internal/application/port"
	"github.com/gtsops/gts-workflow/internal/domain/notification"
)

// RegistrationStore keeps device registrations keyed by role and user, one
// device per user per role; re-registering replaces the previous device.
type RegistrationStore struct {
	records *shardedMap[*notification.Registration]
}

// NewRegistrationStore creates an empty registration store.
func NewRegistrationStore() *RegistrationStore {
	return &RegistrationStore{records: newShardedMap[*notification.Registration]()}
}

var _ port.RegistrationStore = (*RegistrationStore)(nil)

func regKey(role notification.Role, userID string) string {
	return string(role) + "/" + userID
}

func (s *RegistrationStore) Put(ctx context.Context, reg *notification.Registration) error {
	_, err := s.records.upsert(regKey(reg.Role, reg.UserID),
		func() *notification.Registration { return reg },
		func(r *notification.Registration) error {
			*r = *reg
			return nil
		})
	return err
}

func (s *RegistrationStore) Remove(ctx context.Context, role notification.Role, userID, deviceToken string) (bool, error) {
	key := regKey(role, userID)
	current, ok := s.records.get(key)
	if !ok || current.DeviceToken != deviceToken {
		return false, nil
	}
	return s.records.remove(key), nil
}

func (s *RegistrationStore) List(ctx context.Context, role notification.Role) ([]*notification.Registration, error) {
	var out []*notification.Registration
	for _, reg := range s.records.snapshot() {
		if reg.Role == role {
			out = append(out, reg)
		}
	}
	return out, nil
}
