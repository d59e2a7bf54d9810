package notification

import "time"

// Role groups device registrations by the station-side audience they belong
// to. Pushes fan out per role: a trip arrival goes to DBS operators, a
// session completion to MS operators, an emergency to EIC users.
type Role string

const (
	RoleDriver Role = "driver"
	RoleDBS    Role = "dbs"
	RoleMS     Role = "ms"
	RoleEIC    Role = "eic"
)

// IsValid reports whether the role is a known audience.
func (r Role) IsValid() bool {
	switch r {
	case RoleDriver, RoleDBS, RoleMS, RoleEIC:
		return true
	}
	return false
}

// Registration binds a user to the FCM device token pushes are sent to.
type Registration struct {
	UserID       string    `json:"userId"`
	DeviceToken  string    `json:"deviceToken"`
	Role         Role      `json:"role"`
	RegisteredAt time.Time `json:"registeredAt"`
	Status       string    `json:"status"`
}

// Clone returns a copy of the registration.
func (r *Registration) Clone() *Registration {
	c := *r
	return &c
}

// NewRegistration returns an active registration stamped with the current time.
func NewRegistration(role Role, userID, deviceToken string) *Registration {
	return &Registration{
		UserID:       userID,
		DeviceToken:  deviceToken,
		Role:         role,
		RegisteredAt: time.Now(),
		Status:       "ACTIVE",
	}
}
