// Package directory provides user lookups for capability checks.
package directory

import (
	"context"

	"github.com/gtsops/gts-workflow/internal/application/port"
)

// StaticDirectory serves a fixed user set. It stands in for the company
// identity system during development and tests.
type StaticDirectory struct {
	users map[string]*port.User
}

var _ port.UserDirectory = (*StaticDirectory)(nil)

// NewStaticDirectory builds a directory over the given users.
func NewStaticDirectory(users []*port.User) *StaticDirectory {
	m := make(map[string]*port.User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return &StaticDirectory{users: m}
}

func (d *StaticDirectory) Lookup(ctx context.Context, userID string) (*port.User, error) {
	u, ok := d.users[userID]
	if !ok {
		return nil, port.ErrUserNotFound
	}
	return u, nil
}

// DefaultUsers is the development seed, one user per station role. Only EIC
// users carry token administration rights.
func DefaultUsers() []*port.User {
	return []*port.User{
		{ID: "driver-001", Name: "Ramesh Kumar", Role: "driver"},
		{ID: "driver-002", Name: "Suresh Patel", Role: "driver"},
		{ID: "dbs-op-001", Name: "DBS Operator", Role: "dbs"},
		{ID: "ms-op-001", Name: "MS Operator", Role: "ms"},
		{
			ID:   "eic-001",
			Name: "EIC Supervisor",
			Role: "eic",
			Capabilities: map[string]bool{
				"canManageTokens": true,
				"canViewAll":      true,
			},
		},
	}
}
