package port

import (
	"context"

	"github.com/gtsops/gts-workflow/internal/domain/notification"
	"github.com/gtsops/gts-workflow/internal/domain/session"
	"github.com/gtsops/gts-workflow/internal/domain/token"
	"github.com/gtsops/gts-workflow/internal/domain/trip"
)

// TokenStore owns token records. Update runs its mutation atomically under
// the record's key lock; when the mutation returns an error the record is
// left untouched.
type TokenStore interface {
	Insert(ctx context.Context, t *token.Token) error
	Get(ctx context.Context, id string) (*token.Token, error)
	Update(ctx context.Context, id string, fn func(*token.Token) error) (*token.Token, error)
	List(ctx context.Context) ([]*token.Token, error)
	FindActiveByTrip(ctx context.Context, tripID string) ([]*token.Token, error)
	FindActiveByDriver(ctx context.Context, driverID string) (*token.Token, error)
	CountActive(ctx context.Context) (int, error)
}

// TripStore owns trip records. Two concurrent Updates on the same trip id are
// serialized so a guard checked inside fn can never pass twice for the same
// precondition; Updates on distinct ids proceed independently.
type TripStore interface {
	Get(ctx context.Context, id string) (*trip.Trip, error)
	Update(ctx context.Context, id string, fn func(*trip.Trip) error) (*trip.Trip, error)
	// Upsert creates the trip in the CREATED state when absent, then applies fn.
	Upsert(ctx context.Context, id string, fn func(*trip.Trip) error) (*trip.Trip, error)
	List(ctx context.Context) ([]*trip.Trip, error)
	Count(ctx context.Context) (int, error)
}

// SessionStore owns MS session records, keyed by session id.
type SessionStore interface {
	Insert(ctx context.Context, s *session.Session) error
	Get(ctx context.Context, id string) (*session.Session, error)
	Update(ctx context.Context, id string, fn func(*session.Session) error) (*session.Session, error)
	List(ctx context.Context) ([]*session.Session, error)
	Count(ctx context.Context) (int, error)
}

// RegistrationStore keeps device-token registrations per audience role.
type RegistrationStore interface {
	Put(ctx context.Context, reg *notification.Registration) error
	// Remove deletes the registration only when the device token matches;
	// it reports whether anything was removed.
	Remove(ctx context.Context, role notification.Role, userID, deviceToken string) (bool, error)
	List(ctx context.Context, role notification.Role) ([]*notification.Registration, error)
}
