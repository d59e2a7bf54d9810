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
	"github.com/gtsops/gts-workflow/internal/domain/session"
	"github.com/gtsops/gts-workflow/internal/domain/trip"
	"github.com/gtsops/gts-workflow/internal/domain/workflow"
	"github.com/gtsops/gts-workflow/pkg/utils"
)

// ConfirmArrivalRequest opens an MS session for a truck presenting a token.
type ConfirmArrivalRequest struct {
	Token       string `json:"token" binding:"required"`
	TruckNumber string `json:"truckNumber" binding:"required"`
	OperatorID  string `json:"operatorId"`
}

// ReadingRequest records a flow-meter reading against a session.
type ReadingRequest struct {
	SessionID string  `json:"sessionId" binding:"required"`
	Reading   float64 `json:"reading"`
}

// PostSAPRequest closes a session by posting the decanted quantity to SAP.
type PostSAPRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// StationService runs the Mother Station side of a trip: arrival check-in,
// pre/post flow-meter readings and the closing SAP posting. Every step
// re-validates the session's token, so a mid-session revocation stops the
// flow immediately.
type StationService interface {
	ConfirmArrival(ctx context.Context, req ConfirmArrivalRequest) (*session.Session, error)
	RecordPreReading(ctx context.Context, req ReadingRequest) (*session.Session, error)
	RecordPostReading(ctx context.Context, req ReadingRequest) (*session.Session, error)
	PostToSAP(ctx context.Context, req PostSAPRequest) (*session.Session, error)

	Get(ctx context.Context, sessionID string) (*session.Session, error)
	List(ctx context.Context) ([]*session.Session, error)
}

type stationServiceImpl struct {
	sessions   port.SessionStore
	trips      port.TripStore
	tokens     TokenService
	dispatcher dispatcher.Dispatcher
	logger     Logger
}

// NewStationService wires the MS session workflow onto its stores.
func NewStationService(
	sessions port.SessionStore,
	trips port.TripStore,
	tokens TokenService,
	d dispatcher.Dispatcher,
	logger Logger,
) StationService {
	return &stationServiceImpl{
		sessions:   sessions,
		trips:      trips,
		tokens:     tokens,
		dispatcher: d,
		logger:     logger,
	}
}

func (s *stationServiceImpl) ConfirmArrival(ctx context.Context, req ConfirmArrivalRequest) (*session.Session, error) {
	tok, err := s.tokens.Resolve(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateTruckNumber(req.TruckNumber); err != nil {
		return nil, fmt.Errorf("%w: truckNumber: %v", ErrValidation, err)
	}

	sess := session.New(
		utils.NewSessionID(tok.TripID),
		tok.ID,
		tok.TripID,
		tok.DriverID,
		req.TruckNumber,
		req.OperatorID,
	)
	if err := s.sessions.Insert(ctx, sess); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	s.logger.Info("MS arrival confirmed",
		"session_id", sess.ID, "trip_id", tok.TripID, "truck", req.TruckNumber)
	return sess, nil
}

func (s *stationServiceImpl) RecordPreReading(ctx context.Context, req ReadingRequest) (*session.Session, error) {
	return s.recordReading(ctx, req, session.TriggerRecordPre, func(sess *session.Session, now time.Time) {
		r := req.Reading
		sess.PreReading = &r
		sess.PreAt = &now
	})
}

func (s *stationServiceImpl) RecordPostReading(ctx context.Context, req ReadingRequest) (*session.Session, error) {
	return s.recordReading(ctx, req, session.TriggerRecordPost, func(sess *session.Session, now time.Time) {
		r := req.Reading
		sess.PostReading = &r
		sess.PostAt = &now
	})
}

func (s *stationServiceImpl) recordReading(
	ctx context.Context,
	req ReadingRequest,
	trigger workflow.Trigger,
	apply func(*session.Session, time.Time),
) (*session.Session, error) {
	if err := utils.ValidateReading(req.Reading); err != nil {
		return nil, fmt.Errorf("%w: reading: %v", ErrValidation, err)
	}

	current, err := s.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.tokens.Resolve(ctx, current.TokenID); err != nil {
		return nil, err
	}

	updated, err := s.sessions.Update(ctx, req.SessionID, func(sess *session.Session) error {
		if err := s.fire(ctx, sess, trigger); err != nil {
			return err
		}
		apply(sess, time.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reading recorded",
		"session_id", req.SessionID, "trigger", trigger, "reading", req.Reading)
	return updated, nil
}

func (s *stationServiceImpl) PostToSAP(ctx context.Context, req PostSAPRequest) (*session.Session, error) {
	current, err := s.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.tokens.Resolve(ctx, current.TokenID); err != nil {
		return nil, err
	}

	updated, err := s.sessions.Update(ctx, req.SessionID, func(sess *session.Session) error {
		if err := s.fire(ctx, sess, session.TriggerPostSAP); err != nil {
			return err
		}
		if sess.PreReading == nil || sess.PostReading == nil {
			return fmt.Errorf("%w: readings missing", ErrValidation)
		}
		now := time.Now()
		qty := math.Abs(*sess.PostReading - *sess.PreReading)
		sess.Quantity = &qty
		sess.SAPDocument = utils.NewSAPDocumentID(sess.TripID, sess.ID)
		sess.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Mark the MS side done on the trip. A mock token may reference a trip
	// that was never materialized.
	if _, err := s.trips.Update(ctx, updated.TripID, func(t *trip.Trip) error {
		now := time.Now()
		t.MSCompleted = true
		t.MSCompletedAt = &now
		return nil
	}); err != nil && !errors.Is(err, trip.ErrNotFound) {
		s.logger.Error("Failed to flag trip MS-completed",
			"trip_id", updated.TripID, "error", err)
	}

	s.logger.Info("Posted to SAP",
		"session_id", updated.ID, "trip_id", updated.TripID,
		"sap_document", updated.SAPDocument, "quantity", *updated.Quantity)
	s.dispatcher.DispatchAsync(ctx, event.NewSession(event.TypeSessionCompleted, updated.TripID, updated.ID, map[string]any{
		"driverId":    updated.DriverID,
		"sapDocument": updated.SAPDocument,
		"quantity":    *updated.Quantity,
	}))
	return updated, nil
}

func (s *stationServiceImpl) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	return s.sessions.Get(ctx, sessionID)
}

func (s *stationServiceImpl) List(ctx context.Context) ([]*session.Session, error) {
	return s.sessions.List(ctx)
}

func (s *stationServiceImpl) fire(ctx context.Context, sess *session.Session, trigger workflow.Trigger) error {
	m, err := session.NewMachine(sess.Status)
	if err != nil {
		return err
	}
	if err := m.Fire(ctx, trigger); err != nil {
		return err
	}
	sess.Status = m.State()
	return nil
}
