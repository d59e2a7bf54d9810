package token

import (
	"errors"
	"strings"
	"time"
)

// Status of an authorization token.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusRevoked   Status = "REVOKED"
)

var (
	// ErrInvalid is returned when a token id was never issued
	ErrInvalid = errors.New("invalid token")

	// ErrNotActive is returned when a token exists but is revoked or completed
	ErrNotActive = errors.New("token not active")

	// ErrNotFound is returned by administrative operations on unknown tokens
	ErrNotFound = errors.New("token not found")
)

// Token is the single-use authorization artifact binding a trip to the driver
// executing it. Tokens are retained after completion or revocation for
// read-back; only status changes.
type Token struct {
	ID       string `json:"token"`
	TripID   string `json:"tripId"`
	DriverID string `json:"driverId"`
	Status   Status `json:"status"`

	CreatedAt   time.Time  `json:"createdAt"`
	ValidUntil  *time.Time `json:"validUntil,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	RevokedAt   *time.Time `json:"revokedAt,omitempty"`

	// Mock marks a synthesized development-bypass token that has no store
	// entry behind it.
	Mock bool `json:"isMock,omitempty"`
}

// IsActive reports whether the token currently authorizes station actions.
func (t *Token) IsActive() bool {
	return t.Status == StatusActive
}

// Clone returns a copy safe to hand out without the store lock.
func (t *Token) Clone() *Token {
	c := *t
	if t.ValidUntil != nil {
		v := *t.ValidUntil
		c.ValidUntil = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	if t.RevokedAt != nil {
		v := *t.RevokedAt
		c.RevokedAt = &v
	}
	return &c
}

const mockPrefix = "MOCK-TKN-"

// IsMockID reports whether the identity follows the development-bypass
// pattern MOCK-TKN-<TRIP>-<SEQ>[-<DRIVER>].
func IsMockID(id string) bool {
	return strings.HasPrefix(id, mockPrefix)
}

// FromMockID synthesizes a transient ACTIVE token from a mock identity. The
// trip id is reassembled from the two segments following the prefix (trip ids
// themselves contain a dash, e.g. TRIP-001). Returns false when the identity
// does not carry enough segments to recover a trip id.
func FromMockID(id string) (*Token, bool) {
	if !IsMockID(id) {
		return nil, false
	}
	parts := strings.Split(id, "-")
	if len(parts) < 4 {
		return nil, false
	}
	tripID := parts[2] + "-" + parts[3]
	driverID := ""
	if len(parts) > 4 {
		driverID = parts[4]
	}
	return &Token{
		ID:        id,
		TripID:    tripID,
		DriverID:  driverID,
		Status:    StatusActive,
		CreatedAt: time.Now(),
		Mock:      true,
	}, true
}
