package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gtsops/gts-workflow/internal/application/dispatcher"
	"github.com/gtsops/gts-workflow/internal/application/port"
	"github.com/gtsops/gts-workflow/internal/domain/event"
	"github.com/gtsops/gts-workflow/internal/domain/token"
	"github.com/gtsops/gts-workflow/internal/domain/trip"
	"github.com/gtsops/gts-workflow/internal/domain/workflow"
	"github.com/gtsops/gts-workflow/pkg/utils"
)

// AcceptRequest carries the driver's acceptance of an assigned trip.
type AcceptRequest struct {
	TripID     string `json:"-"`
	DriverID   string `json:"driverId" binding:"required"`
	DriverName string `json:"driverName"`
	Vehicle    string `json:"vehicle"`
}

// ArrivalRequest signals a truck at the DBS gate. Either a token or an
// explicit trip id identifies the trip; the trip id wins when both are set.
type ArrivalRequest struct {
	Token   string `json:"token"`
	TripID  string `json:"tripId"`
	Vehicle string `json:"vehicle"`
}

// ConfirmDecantRequest finalizes a decant with the delivered quantity and
// both signatures.
type ConfirmDecantRequest struct {
	Token        string  `json:"token" binding:"required"`
	DeliveredQty float64 `json:"deliveredQty"`
	OperatorSig  string  `json:"operatorSig"`
	DriverSig    string  `json:"driverSig"`
}

// LocationUpdate is a token-gated driver position report.
type LocationUpdate struct {
	Token     string  `json:"token" binding:"required"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// EmergencyReport is a token-gated driver incident report.
type EmergencyReport struct {
	Token       string `json:"token" binding:"required"`
	Kind        string `json:"emergencyType"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// AcceptResult pairs the updated trip with its freshly minted token.
type AcceptResult struct {
	Trip  *trip.Trip   `json:"trip"`
	Token *token.Token `json:"token"`
}

// TripService drives the DBS-side trip lifecycle. Decant steps are guarded by
// the trip state machine; arrival and completion are accepted from any state
// because they report physical-world facts.
type TripService interface {
	Accept(ctx context.Context, req AcceptRequest) (*AcceptResult, error)
	SignalArrival(ctx context.Context, req ArrivalRequest) (*trip.Trip, error)
	StartDecant(ctx context.Context, tokenID string) (*trip.Trip, error)
	EndDecant(ctx context.Context, tokenID string) (*trip.Trip, error)
	ConfirmDecant(ctx context.Context, req ConfirmDecantRequest) (*trip.Trip, error)
	Complete(ctx context.Context, tokenID string) (*trip.Trip, error)

	Status(ctx context.Context, tripID string) (*trip.Trip, error)
	List(ctx context.Context) ([]*trip.Trip, error)

	// PreDecantSnapshot returns the instrument snapshot captured at arrival.
	PreDecantSnapshot(ctx context.Context, tripID string) (*trip.ReadingSnapshot, error)

	UpdateLocation(ctx context.Context, upd LocationUpdate) error
	ReportEmergency(ctx context.Context, rep EmergencyReport) (string, error)
}

type tripServiceImpl struct {
	trips      port.TripStore
	tokens     TokenService
	gauge      port.GaugeReader
	dispatcher dispatcher.Dispatcher
	logger     Logger
}

// NewTripService wires the trip workflow onto its stores and collaborators.
func NewTripService(
	trips port.TripStore,
	tokens TokenService,
	gauge port.GaugeReader,
	d dispatcher.Dispatcher,
	logger Logger,
) TripService {
	return &tripServiceImpl{
		trips:      trips,
		tokens:     tokens,
		gauge:      gauge,
		dispatcher: d,
		logger:     logger,
	}
}

func (s *tripServiceImpl) Accept(ctx context.Context, req AcceptRequest) (*AcceptResult, error) {
	if req.TripID == "" || req.DriverID == "" {
		return nil, fmt.Errorf("%w: tripId and driverId are required", ErrValidation)
	}
	if _, err := s.trips.Get(ctx, req.TripID); err != nil {
		return nil, err
	}

	tok, err := s.tokens.Issue(ctx, req.TripID, req.DriverID)
	if err != nil {
		return nil, err
	}

	updated, err := s.trips.Update(ctx, req.TripID, func(t *trip.Trip) error {
		if err := s.fire(ctx, t, trip.TriggerAccept); err != nil {
			return err
		}
		now := time.Now()
		t.AcceptedAt = &now
		t.DriverID = req.DriverID
		if req.DriverName != "" {
			t.DriverName = req.DriverName
		}
		if req.Vehicle != "" {
			t.Vehicle = req.Vehicle
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Trip accepted", "trip_id", req.TripID, "driver_id", req.DriverID, "token", tok.ID)
	s.dispatcher.DispatchAsync(ctx, event.New(event.TypeTripAccepted, req.TripID, map[string]any{
		"driverId": req.DriverID,
		"token":    tok.ID,
		"vehicle":  updated.Vehicle,
	}))
	return &AcceptResult{Trip: updated, Token: tok}, nil
}

func (s *tripServiceImpl) SignalArrival(ctx context.Context, req ArrivalRequest) (*trip.Trip, error) {
	tripID := req.TripID
	driverID := ""
	if tripID == "" {
		tok, err := s.tokens.Resolve(ctx, req.Token)
		if err != nil {
			return nil, err
		}
		tripID = tok.TripID
		driverID = tok.DriverID
	}
	if tripID == "" {
		return nil, fmt.Errorf("%w: token or tripId is required", ErrValidation)
	}

	pre, err := s.gauge.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read gauges: %w", err)
	}

	// Arrival is lazy-creating: a trip dispatched outside this system still
	// gets a record the moment the truck shows up at the gate.
	updated, err := s.trips.Upsert(ctx, tripID, func(t *trip.Trip) error {
		if err := s.fire(ctx, t, trip.TriggerArrive); err != nil {
			return err
		}
		now := time.Now()
		t.ArrivedAt = &now
		t.Pre = &pre
		if driverID != "" && t.DriverID == "" {
			t.DriverID = driverID
		}
		if req.Vehicle != "" {
			t.Vehicle = req.Vehicle
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Trip arrived", "trip_id", tripID,
		"pressure", pre.Pressure, "flow", pre.Flow, "mfm", pre.MFM)
	s.dispatcher.DispatchAsync(ctx, event.New(event.TypeTripArrived, tripID, map[string]any{
		"driverId": updated.DriverID,
		"vehicle":  updated.Vehicle,
	}))
	return updated, nil
}

func (s *tripServiceImpl) StartDecant(ctx context.Context, tokenID string) (*trip.Trip, error) {
	tok, err := s.tokens.Resolve(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	updated, err := s.trips.Update(ctx, tok.TripID, func(t *trip.Trip) error {
		if err := s.fire(ctx, t, trip.TriggerStartDecant); err != nil {
			return err
		}
		now := time.Now()
		t.StartTime = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Decant started", "trip_id", tok.TripID)
	s.dispatcher.DispatchAsync(ctx, event.New(event.TypeDecantStarted, tok.TripID, map[string]any{
		"driverId": updated.DriverID,
	}))
	return updated, nil
}

func (s *tripServiceImpl) EndDecant(ctx context.Context, tokenID string) (*trip.Trip, error) {
	tok, err := s.tokens.Resolve(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	post, err := s.gauge.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read gauges: %w", err)
	}

	updated, err := s.trips.Update(ctx, tok.TripID, func(t *trip.Trip) error {
		if err := s.fire(ctx, t, trip.TriggerEndDecant); err != nil {
			return err
		}
		now := time.Now()
		t.EndTime = &now
		t.Post = &post
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Decant ended", "trip_id", tok.TripID, "mfm", post.MFM)
	s.dispatcher.DispatchAsync(ctx, event.New(event.TypeDecantEnded, tok.TripID, map[string]any{
		"driverId": updated.DriverID,
	}))
	return updated, nil
}

func (s *tripServiceImpl) ConfirmDecant(ctx context.Context, req ConfirmDecantRequest) (*trip.Trip, error) {
	tok, err := s.tokens.Resolve(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateReading(req.DeliveredQty); err != nil {
		return nil, fmt.Errorf("%w: deliveredQty: %v", ErrValidation, err)
	}
	if req.OperatorSig == "" || req.DriverSig == "" {
		return nil, fmt.Errorf("%w: operator and driver signatures are required", ErrValidation)
	}

	updated, err := s.trips.Update(ctx, tok.TripID, func(t *trip.Trip) error {
		if err := s.fire(ctx, t, trip.TriggerConfirmDecant); err != nil {
			return err
		}
		now := time.Now()
		t.ConfirmedAt = &now
		qty := req.DeliveredQty
		t.DeliveredQty = &qty
		t.OperatorSig = req.OperatorSig
		t.DriverSig = req.DriverSig
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Decant confirmed", "trip_id", tok.TripID, "quantity", req.DeliveredQty)
	s.dispatcher.DispatchAsync(ctx, event.New(event.TypeDecantConfirmed, tok.TripID, map[string]any{
		"driverId": updated.DriverID,
		"quantity": req.DeliveredQty,
	}))
	return updated, nil
}

func (s *tripServiceImpl) Complete(ctx context.Context, tokenID string) (*trip.Trip, error) {
	tok, err := s.tokens.Resolve(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	updated, err := s.trips.Update(ctx, tok.TripID, func(t *trip.Trip) error {
		if err := s.fire(ctx, t, trip.TriggerComplete); err != nil {
			return err
		}
		now := time.Now()
		t.CompletedAt = &now
		return nil
	})
	if err != nil {
		// A mock token can complete a trip that was never materialized.
		if !(tok.Mock && errors.Is(err, trip.ErrNotFound)) {
			return nil, err
		}
	}

	if !tok.Mock {
		if err := s.tokens.Complete(ctx, tok.ID); err != nil {
			s.logger.Error("Failed to complete token", "token", tok.ID, "error", err)
		}
	}

	if updated == nil {
		// Transient record for the response; nothing was persisted.
		updated = trip.New(tok.TripID)
		updated.Status = trip.StatusCompleted
		updated.DriverID = tok.DriverID
	}

	s.logger.Info("Trip completed", "trip_id", tok.TripID, "token", tok.ID)
	s.dispatcher.DispatchAsync(ctx, event.New(event.TypeTripCompleted, tok.TripID, map[string]any{
		"driverId": tok.DriverID,
		"token":    tok.ID,
	}))
	return updated, nil
}

func (s *tripServiceImpl) Status(ctx context.Context, tripID string) (*trip.Trip, error) {
	return s.trips.Get(ctx, tripID)
}

func (s *tripServiceImpl) List(ctx context.Context) ([]*trip.Trip, error) {
	return s.trips.List(ctx)
}

func (s *tripServiceImpl) PreDecantSnapshot(ctx context.Context, tripID string) (*trip.ReadingSnapshot, error) {
	t, err := s.trips.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if t.Pre == nil {
		return nil, trip.ErrNotArrived
	}
	return t.Pre, nil
}

func (s *tripServiceImpl) UpdateLocation(ctx context.Context, upd LocationUpdate) error {
	tok, err := s.tokens.Resolve(ctx, upd.Token)
	if err != nil {
		return err
	}
	if math.IsNaN(upd.Latitude) || math.IsNaN(upd.Longitude) {
		return fmt.Errorf("%w: coordinates must be numbers", ErrValidation)
	}
	// Positions are observability-only; they are logged, not persisted.
	s.logger.Info("Driver location",
		"trip_id", tok.TripID, "driver_id", tok.DriverID,
		"latitude", upd.Latitude, "longitude", upd.Longitude)
	return nil
}

func (s *tripServiceImpl) ReportEmergency(ctx context.Context, rep EmergencyReport) (string, error) {
	tok, err := s.tokens.Resolve(ctx, rep.Token)
	if err != nil {
		return "", err
	}

	emergencyID := utils.NewEmergencyID(tok.TripID)
	s.logger.Error("Emergency reported",
		"emergency_id", emergencyID, "trip_id", tok.TripID,
		"driver_id", tok.DriverID, "type", rep.Kind,
		"location", rep.Location, "description", rep.Description)

	s.dispatcher.DispatchAsync(ctx, event.New(event.TypeEmergencyReported, tok.TripID, map[string]any{
		"emergencyId": emergencyID,
		"driverId":    tok.DriverID,
		"type":        rep.Kind,
		"location":    rep.Location,
		"description": rep.Description,
	}))
	return emergencyID, nil
}

// fire runs one trigger against a machine positioned at the trip's current
// status and writes the resulting state back.
func (s *tripServiceImpl) fire(ctx context.Context, t *trip.Trip, trigger workflow.Trigger) error {
	m, err := trip.NewMachine(t.Status)
	if err != nil {
		return err
	}
	if err := m.Fire(ctx, trigger); err != nil {
		return err
	}
	t.Status = m.State()
	return nil
}
