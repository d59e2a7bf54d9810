package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtsops/gts-workflow/internal/application/dispatcher"
	"github.com/gtsops/gts-workflow/internal/domain/event"
	"github.com/gtsops/gts-workflow/internal/domain/notification"
	"github.com/gtsops/gts-workflow/internal/infrastructure/memstore"
)

func newNotificationEnv() (NotificationService, *stubSender, dispatcher.Dispatcher) {
	sender := &stubSender{}
	svc := NewNotificationService(memstore.NewRegistrationStore(), sender, nopLogger{})
	d := dispatcher.New()
	svc.Bind(d)
	return svc, sender, d
}

// TestRegisterValidation tests role and field checks
func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newNotificationEnv()
	ctx := context.Background()

	_, err := svc.Register(ctx, "pilot", RegisterRequest{UserID: "u", DeviceToken: "d"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Register(ctx, notification.RoleDriver, RegisterRequest{UserID: "", DeviceToken: "d"})
	assert.ErrorIs(t, err, ErrValidation)

	reg, err := svc.Register(ctx, notification.RoleDriver, RegisterRequest{UserID: "driver-001", DeviceToken: "dev-A"})
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", reg.Status)
}

// TestArrivalEventFansOutToDBS tests the broadcast push path
func TestArrivalEventFansOutToDBS(t *testing.T) {
	svc, sender, d := newNotificationEnv()
	ctx := context.Background()

	_, err := svc.Register(ctx, notification.RoleDBS, RegisterRequest{UserID: "dbs-op-001", DeviceToken: "dev-1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, notification.RoleDBS, RegisterRequest{UserID: "dbs-op-002", DeviceToken: "dev-2"})
	require.NoError(t, err)
	// MS registrations are not an arrival audience.
	_, err = svc.Register(ctx, notification.RoleMS, RegisterRequest{UserID: "ms-op-001", DeviceToken: "dev-3"})
	require.NoError(t, err)

	require.NoError(t, d.Dispatch(ctx, event.New(event.TypeTripArrived, "TRIP-001", map[string]any{"driverId": "driver-001"})))
	assert.Equal(t, 2, sender.sentCount())
}

// TestSessionCompletedTargetsDriver tests the targeted push path
func TestSessionCompletedTargetsDriver(t *testing.T) {
	svc, sender, d := newNotificationEnv()
	ctx := context.Background()

	_, err := svc.Register(ctx, notification.RoleDriver, RegisterRequest{UserID: "driver-001", DeviceToken: "dev-1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, notification.RoleDriver, RegisterRequest{UserID: "driver-002", DeviceToken: "dev-2"})
	require.NoError(t, err)

	evt := event.NewSession(event.TypeSessionCompleted, "TRIP-001", "MS-1", map[string]any{
		"driverId": "driver-001", "sapDocument": "SAP-1",
	})
	require.NoError(t, d.Dispatch(ctx, evt))

	require.Equal(t, 1, sender.sentCount())
	assert.Contains(t, sender.sent[0], "dev-1")

	// No driver id in the payload means nothing to target.
	require.NoError(t, d.Dispatch(ctx, event.New(event.TypeSessionCompleted, "TRIP-002", nil)))
	assert.Equal(t, 1, sender.sentCount())
}

// TestUnregisterRemovesAudience tests registration teardown
func TestUnregisterRemovesAudience(t *testing.T) {
	svc, sender, d := newNotificationEnv()
	ctx := context.Background()

	_, err := svc.Register(ctx, notification.RoleEIC, RegisterRequest{UserID: "eic-001", DeviceToken: "dev-1"})
	require.NoError(t, err)

	removed, err := svc.Unregister(ctx, notification.RoleEIC, RegisterRequest{UserID: "eic-001", DeviceToken: "dev-1"})
	require.NoError(t, err)
	assert.True(t, removed)

	require.NoError(t, d.Dispatch(ctx, event.New(event.TypeEmergencyReported, "TRIP-001", map[string]any{"driverId": "driver-001"})))
	assert.Equal(t, 0, sender.sentCount())
}
