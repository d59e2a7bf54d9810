package port

import (
	"context"
	"errors"

	"github.com/gtsops/gts-workflow/internal/domain/trip"
)

// ErrUserNotFound is returned by UserDirectory when the user id is unknown
var ErrUserNotFound = errors.New("user not found")

// User is a directory record. Identity management itself lives outside this
// service; the workflow only reads roles and capability flags.
type User struct {
	ID           string
	Name         string
	Role         string
	Capabilities map[string]bool
}

// Can reports whether the user carries a capability flag.
func (u *User) Can(capability string) bool {
	return u != nil && u.Capabilities[capability]
}

// UserDirectory resolves user ids against the external identity system.
type UserDirectory interface {
	Lookup(ctx context.Context, userID string) (*User, error)
}

// PushSender delivers a push notification to one device. Delivery is best
// effort; workflow transitions never depend on the result.
type PushSender interface {
	Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error
}

// GaugeReader samples the station instrument panel for a reading snapshot.
type GaugeReader interface {
	Snapshot(ctx context.Context) (trip.ReadingSnapshot, error)
}
