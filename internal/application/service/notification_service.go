package service

import (
	"context"
	"fmt"

	"github.com/gtsops/gts-workflow/internal/application/dispatcher"
	"github.com/gtsops/gts-workflow/internal/application/port"
	"github.com/gtsops/gts-workflow/internal/domain/event"
	"github.com/gtsops/gts-workflow/internal/domain/notification"
)

// RegisterRequest binds a user's device to a push audience.
type RegisterRequest struct {
	UserID      string `json:"userId" binding:"required"`
	DeviceToken string `json:"deviceToken" binding:"required"`
}

// NotificationService manages per-role device registrations and fans domain
// events out as push notifications. Delivery is best effort: a failed push is
// logged and never fails the workflow that triggered it.
type NotificationService interface {
	Register(ctx context.Context, role notification.Role, req RegisterRequest) (*notification.Registration, error)
	Unregister(ctx context.Context, role notification.Role, req RegisterRequest) (bool, error)
	List(ctx context.Context, role notification.Role) ([]*notification.Registration, error)

	// Bind subscribes the push handlers on the dispatcher. Call once at startup.
	Bind(d dispatcher.Dispatcher)
}

type notificationServiceImpl struct {
	registrations port.RegistrationStore
	sender        port.PushSender
	logger        Logger
}

// NewNotificationService creates the push fan-out service.
func NewNotificationService(
	registrations port.RegistrationStore,
	sender port.PushSender,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		registrations: registrations,
		sender:        sender,
		logger:        logger,
	}
}

func (s *notificationServiceImpl) Register(ctx context.Context, role notification.Role, req RegisterRequest) (*notification.Registration, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	if req.UserID == "" || req.DeviceToken == "" {
		return nil, fmt.Errorf("%w: userId and deviceToken are required", ErrValidation)
	}

	reg := notification.NewRegistration(role, req.UserID, req.DeviceToken)
	if err := s.registrations.Put(ctx, reg); err != nil {
		return nil, err
	}
	s.logger.Info("Device registered", "role", role, "user_id", req.UserID)
	return reg, nil
}

func (s *notificationServiceImpl) Unregister(ctx context.Context, role notification.Role, req RegisterRequest) (bool, error) {
	if !role.IsValid() {
		return false, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	removed, err := s.registrations.Remove(ctx, role, req.UserID, req.DeviceToken)
	if err != nil {
		return false, err
	}
	if removed {
		s.logger.Info("Device unregistered", "role", role, "user_id", req.UserID)
	}
	return removed, nil
}

func (s *notificationServiceImpl) List(ctx context.Context, role notification.Role) ([]*notification.Registration, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	return s.registrations.List(ctx, role)
}

func (s *notificationServiceImpl) Bind(d dispatcher.Dispatcher) {
	d.Subscribe(event.TypeTripAccepted, "push.ms_arrival", func(ctx context.Context, evt *event.Event) error {
		return s.broadcast(ctx, notification.RoleMS,
			"Truck arriving at your MS",
			fmt.Sprintf("Trip %s accepted by driver %s", evt.TripID, evt.PayloadString("driverId")),
			map[string]string{"type": "ms_arrival", "tripId": evt.TripID})
	})

	d.Subscribe(event.TypeTripArrived, "push.dbs_arrival", func(ctx context.Context, evt *event.Event) error {
		return s.broadcast(ctx, notification.RoleDBS,
			"Truck arrived at your DBS",
			fmt.Sprintf("Trip %s is at the gate", evt.TripID),
			map[string]string{"type": "dbs_arrival", "tripId": evt.TripID})
	})

	d.Subscribe(event.TypeEmergencyReported, "push.eic_emergency", func(ctx context.Context, evt *event.Event) error {
		return s.broadcast(ctx, notification.RoleEIC,
			"Emergency reported",
			fmt.Sprintf("Driver %s reported %s", evt.PayloadString("driverId"), evt.PayloadString("type")),
			map[string]string{
				"type":        "emergency",
				"tripId":      evt.TripID,
				"emergencyId": evt.PayloadString("emergencyId"),
			})
	})

	d.Subscribe(event.TypeSessionCompleted, "push.driver_sap", func(ctx context.Context, evt *event.Event) error {
		return s.notifyUser(ctx, notification.RoleDriver, evt.PayloadString("driverId"),
			"Loading complete",
			fmt.Sprintf("Session %s posted %.1f kg to SAP (%s)",
				evt.SessionID, evt.PayloadFloat("quantity"), evt.PayloadString("sapDocument")),
			map[string]string{"type": "session_completed", "sessionId": evt.SessionID})
	})

	d.Subscribe(event.TypeTokenRevoked, "push.driver_revoked", func(ctx context.Context, evt *event.Event) error {
		return s.notifyUser(ctx, notification.RoleDriver, evt.PayloadString("driverId"),
			"Trip authorization revoked",
			fmt.Sprintf("Token for trip %s is no longer valid", evt.TripID),
			map[string]string{"type": "token_revoked", "tripId": evt.TripID})
	})
}

// broadcast pushes to every registered device of a role.
func (s *notificationServiceImpl) broadcast(ctx context.Context, role notification.Role, title, body string, data map[string]string) error {
	regs, err := s.registrations.List(ctx, role)
	if err != nil {
		return err
	}
	for _, reg := range regs {
		if err := s.sender.Send(ctx, reg.DeviceToken, title, body, data); err != nil {
			s.logger.Error("Push delivery failed",
				"role", role, "user_id", reg.UserID, "error", err)
		}
	}
	return nil
}

// notifyUser pushes to the devices of one user within a role.
func (s *notificationServiceImpl) notifyUser(ctx context.Context, role notification.Role, userID, title, body string, data map[string]string) error {
	if userID == "" {
		return nil
	}
	regs, err := s.registrations.List(ctx, role)
	if err != nil {
		return err
	}
	for _, reg := range regs {
		if reg.UserID != userID {
			continue
		}
		if err := s.sender.Send(ctx, reg.DeviceToken, title, body, data); err != nil {
			s.logger.Error("Push delivery failed",
				"role", role, "user_id", userID, "error", err)
		}
	}
	return nil
}
