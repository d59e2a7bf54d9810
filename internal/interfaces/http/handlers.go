package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gtsops/gts-workflow/internal/application/port"
	"github.com/gtsops/gts-workflow/internal/application/service"
	"github.com/gtsops/gts-workflow/internal/domain/notification"
	"github.com/gtsops/gts-workflow/internal/domain/session"
	"github.com/gtsops/gts-workflow/internal/domain/token"
	"github.com/gtsops/gts-workflow/internal/domain/trip"
	"github.com/gtsops/gts-workflow/internal/domain/workflow"
)

// Handlers binds the workflow services to gin routes.
type Handlers struct {
	trips         service.TripService
	station       service.StationService
	tokens        service.TokenService
	notifications service.NotificationService
	tripStore     port.TripStore
	sessionStore  port.SessionStore
	tokenStore    port.TokenStore
	logger        *zap.Logger
}

// statusFromError maps domain errors onto HTTP status codes. Unknown trips,
// sessions and token identities are not-found; an inactive token is an
// authorization failure; a rejected transition is a conflict.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, trip.ErrNotFound),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, token.ErrNotFound),
		errors.Is(err, token.ErrInvalid),
		errors.Is(err, trip.ErrNotArrived),
		errors.Is(err, port.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, token.ErrNotActive):
		return http.StatusUnauthorized
	case errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrGuardFailed):
		return http.StatusConflict
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// --- Driver ---

func (h *Handlers) AcceptTrip(c *gin.Context) {
	var req service.AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.TripID = c.Param("id")

	res, err := h.trips.Accept(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"trip":  res.Trip,
		"token": res.Token,
	})
}

func (h *Handlers) ActiveToken(c *gin.Context) {
	tok, err := h.tokens.ActiveForDriver(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tok)
}

func (h *Handlers) TripStatus(c *gin.Context) {
	tok, err := h.tokens.Resolve(c.Request.Context(), c.Query("token"))
	if err != nil {
		h.fail(c, err)
		return
	}
	t, err := h.trips.Status(c.Request.Context(), tok.TripID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handlers) CompleteTrip(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, err := h.trips.Complete(c.Request.Context(), req.Token)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"tripId":      t.ID,
		"completedAt": t.CompletedAt,
	})
}

func (h *Handlers) UpdateLocation(c *gin.Context) {
	var upd service.LocationUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.trips.UpdateLocation(c.Request.Context(), upd); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) ReportEmergency(c *gin.Context) {
	var rep service.EmergencyReport
	if err := c.ShouldBindJSON(&rep); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.trips.ReportEmergency(c.Request.Context(), rep)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "emergencyId": id})
}

// --- Mother Station ---

func (h *Handlers) ConfirmArrival(c *gin.Context) {
	var req service.ConfirmArrivalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := h.station.ConfirmArrival(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handlers) PreReading(c *gin.Context) {
	h.reading(c, h.station.RecordPreReading)
}

func (h *Handlers) PostReading(c *gin.Context) {
	h.reading(c, h.station.RecordPostReading)
}

func (h *Handlers) reading(c *gin.Context, record func(ctx context.Context, req service.ReadingRequest) (*session.Session, error)) {
	var req service.ReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := record(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handlers) ConfirmSAP(c *gin.Context) {
	var req service.PostSAPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := h.station.PostToSAP(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"sessionId":   sess.ID,
		"sapDocument": sess.SAPDocument,
		"quantity":    sess.Quantity,
	})
}

func (h *Handlers) GetSession(c *gin.Context) {
	sess, err := h.station.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handlers) ListSessions(c *gin.Context) {
	sessions, err := h.station.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
}

// --- DBS decant ---

func (h *Handlers) DecantArrive(c *gin.Context) {
	var req service.ArrivalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.trips.SignalArrival(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handlers) DecantPre(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tok, err := h.tokens.Resolve(c.Request.Context(), req.Token)
	if err != nil {
		h.fail(c, err)
		return
	}
	pre, err := h.trips.PreDecantSnapshot(c.Request.Context(), tok.TripID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tripId": tok.TripID, "pre": pre})
}

func (h *Handlers) DecantStart(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.trips.StartDecant(c.Request.Context(), req.Token)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tripId": t.ID, "status": t.Status, "startTime": t.StartTime})
}

func (h *Handlers) DecantEnd(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.trips.EndDecant(c.Request.Context(), req.Token)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tripId": t.ID, "status": t.Status, "endTime": t.EndTime, "post": t.Post})
}

func (h *Handlers) DecantConfirm(c *gin.Context) {
	var req service.ConfirmDecantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.trips.ConfirmDecant(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "tripId": t.ID, "deliveredQty": t.DeliveredQty})
}

// --- Token administration ---

func (h *Handlers) ListTokens(c *gin.Context) {
	tokens, err := h.tokens.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens, "count": len(tokens)})
}

func (h *Handlers) RevokeToken(c *gin.Context) {
	actorID := c.GetHeader("X-User-Id")
	tok, err := h.tokens.Revoke(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "token": tok})
}

// --- Notifications ---

func (h *Handlers) RegisterDevice(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		reg, err := h.notifications.Register(c.Request.Context(), notification.Role(role), req)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "registration": reg})
	}
}

func (h *Handlers) UnregisterDevice(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		removed, err := h.notifications.Unregister(c.Request.Context(), notification.Role(role), req)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "removed": removed})
	}
}

func (h *Handlers) ListDevices(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		regs, err := h.notifications.List(c.Request.Context(), notification.Role(role))
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"registrations": regs, "count": len(regs)})
	}
}

// --- Health ---

func (h *Handlers) Health(c *gin.Context) {
	ctx := c.Request.Context()
	tripCount, _ := h.tripStore.Count(ctx)
	sessionCount, _ := h.sessionStore.Count(ctx)
	activeTokens, _ := h.tokenStore.CountActive(ctx)

	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"service":      "gts-workflow",
		"time":         time.Now().Format(time.RFC3339),
		"trips":        tripCount,
		"sessions":     sessionCount,
		"activeTokens": activeTokens,
	})
}
