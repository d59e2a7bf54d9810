package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gtsops/gts-workflow/internal/application/dispatcher"
	"github.com/gtsops/gts-workflow/internal/application/port"
	"github.com/gtsops/gts-workflow/internal/application/service"
	"github.com/gtsops/gts-workflow/internal/config"
	"github.com/gtsops/gts-workflow/internal/domain/trip"
	"github.com/gtsops/gts-workflow/internal/infrastructure/gauge"
	"github.com/gtsops/gts-workflow/internal/infrastructure/memstore"
	"github.com/gtsops/gts-workflow/pkg/utils"
)

type dropSender struct{}

func (dropSender) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	return nil
}

type testDirectory struct{}

func (testDirectory) Lookup(ctx context.Context, userID string) (*port.User, error) {
	if userID == "eic-001" {
		return &port.User{ID: userID, Role: "eic", Capabilities: map[string]bool{service.CapManageTokens: true}}, nil
	}
	return nil, port.ErrUserNotFound
}

func newTestServer(t *testing.T) (*Server, *memstore.TripStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	kv := utils.NewKVLogger(logger)

	tokenStore := memstore.NewTokenStore()
	tripStore := memstore.NewTripStore()
	sessionStore := memstore.NewSessionStore()
	registrationStore := memstore.NewRegistrationStore()

	events := dispatcher.New()
	tokens := service.NewTokenService(tokenStore, testDirectory{}, events, true, kv)
	trips := service.NewTripService(tripStore, tokens, gauge.NewSimulator(), events, kv)
	station := service.NewStationService(sessionStore, tripStore, tokens, events, kv)
	notifications := service.NewNotificationService(registrationStore, dropSender{}, kv)
	notifications.Bind(events)

	srv := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 0},
		trips, station, tokens, notifications,
		tripStore, sessionStore, tokenStore, logger)
	return srv, tripStore
}

func doJSON(t *testing.T, srv *Server, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded), "body: %s", w.Body.String())
	}
	return w, decoded
}

// TestHealthEndpoint tests the health counts
func TestHealthEndpoint(t *testing.T) {
	srv, tripStore := newTestServer(t)
	tripStore.Seed(trip.New("TRIP-001"))

	w, body := doJSON(t, srv, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(1), body["trips"])
	assert.Equal(t, float64(0), body["activeTokens"])
}

// TestAcceptAndDecantEndpoints walks the DBS flow over HTTP and checks the
// status codes the mobile clients depend on.
func TestAcceptAndDecantEndpoints(t *testing.T) {
	srv, tripStore := newTestServer(t)
	tripStore.Seed(trip.New("TRIP-001"))

	w, body := doJSON(t, srv, http.MethodPost, "/driver/trip/TRIP-001/accept",
		map[string]any{"driverId": "driver-001", "driverName": "Ramesh"}, nil)
	require.Equal(t, http.StatusOK, w.Code, "body: %v", body)
	tokenID := body["token"].(map[string]any)["token"].(string)
	require.NotEmpty(t, tokenID)

	// Accepting an unknown trip is not-found.
	w, _ = doJSON(t, srv, http.MethodPost, "/driver/trip/TRIP-404/accept",
		map[string]any{"driverId": "driver-001"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Starting before arrival is a conflict.
	w, _ = doJSON(t, srv, http.MethodPost, "/dbs/decant/start", map[string]any{"token": tokenID}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, body = doJSON(t, srv, http.MethodPost, "/dbs/decant/arrive", map[string]any{"token": tokenID}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ARRIVED", body["status"])
	assert.NotNil(t, body["pre"])

	w, _ = doJSON(t, srv, http.MethodPost, "/dbs/decant/start", map[string]any{"token": tokenID}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, srv, http.MethodPost, "/dbs/decant/end", map[string]any{"token": tokenID}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Quantity must be present and finite.
	w, _ = doJSON(t, srv, http.MethodPost, "/dbs/decant/confirm",
		map[string]any{"token": tokenID, "operatorSig": "a", "driverSig": ""}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, srv, http.MethodPost, "/dbs/decant/confirm",
		map[string]any{"token": tokenID, "deliveredQty": 500.3, "operatorSig": "a", "driverSig": "b"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = doJSON(t, srv, http.MethodPost, "/driver/trip/complete", map[string]any{"token": tokenID}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])

	// The consumed token no longer authorizes reads.
	w, _ = doJSON(t, srv, http.MethodGet, "/driver/trip/status?token="+tokenID, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestStationEndpoints tests the MS session routes
func TestStationEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	w, body := doJSON(t, srv, http.MethodPost, "/ms/confirm-arrival",
		map[string]any{"token": "MOCK-TKN-TRIP-001-driver1", "truckNumber": "MP09-AB-1234"}, nil)
	require.Equal(t, http.StatusOK, w.Code, "body: %v", body)
	sessionID := body["sessionId"].(string)

	w, _ = doJSON(t, srv, http.MethodPost, "/ms/confirm-arrival",
		map[string]any{"token": "MOCK-TKN-TRIP-001-driver1", "truckNumber": "!!"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Post reading before pre is a conflict.
	w, _ = doJSON(t, srv, http.MethodPost, "/ms/post-reading",
		map[string]any{"sessionId": sessionID, "reading": 12845.9}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = doJSON(t, srv, http.MethodPost, "/ms/pre-reading",
		map[string]any{"sessionId": sessionID, "reading": 12345.6}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, srv, http.MethodPost, "/ms/post-reading",
		map[string]any{"sessionId": sessionID, "reading": 12845.9}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = doJSON(t, srv, http.MethodPost, "/ms/confirm-sap",
		map[string]any{"sessionId": sessionID}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 500.3, body["quantity"].(float64), 1e-6)
	assert.Contains(t, body["sapDocument"].(string), "SAP-")

	w, _ = doJSON(t, srv, http.MethodGet, "/ms/session/"+sessionID, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, srv, http.MethodGet, "/ms/session/MS-NOPE", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestTokenAdminEndpoints tests listing and revocation
func TestTokenAdminEndpoints(t *testing.T) {
	srv, tripStore := newTestServer(t)
	tripStore.Seed(trip.New("TRIP-001"))

	w, body := doJSON(t, srv, http.MethodPost, "/driver/trip/TRIP-001/accept",
		map[string]any{"driverId": "driver-001"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	tokenID := body["token"].(map[string]any)["token"].(string)

	w, body = doJSON(t, srv, http.MethodGet, "/tokens", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["count"])

	// Revocation without the capability is forbidden.
	w, _ = doJSON(t, srv, http.MethodPost, "/tokens/"+tokenID+"/revoke", nil, map[string]string{"X-User-Id": "driver-001"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = doJSON(t, srv, http.MethodPost, "/tokens/"+tokenID+"/revoke", nil, map[string]string{"X-User-Id": "eic-001"})
	assert.Equal(t, http.StatusOK, w.Code)

	// Idempotent.
	w, _ = doJSON(t, srv, http.MethodPost, "/tokens/"+tokenID+"/revoke", nil, map[string]string{"X-User-Id": "eic-001"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, srv, http.MethodGet, "/driver/trip/status?token="+tokenID, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// TestNotificationEndpoints tests the per-role registration routes
func TestNotificationEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, role := range []string{"driver", "dbs", "ms", "eic"} {
		w, _ := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/%s/notifications/register", role),
			map[string]any{"userId": "user-1", "deviceToken": "dev-1"}, nil)
		assert.Equal(t, http.StatusOK, w.Code, "role %s", role)
	}

	w, body := doJSON(t, srv, http.MethodGet, "/driver/notifications", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["count"])

	w, body = doJSON(t, srv, http.MethodPost, "/driver/notifications/unregister",
		map[string]any{"userId": "user-1", "deviceToken": "dev-1"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["removed"])

	// Missing fields fail gin binding.
	w, _ = doJSON(t, srv, http.MethodPost, "/ms/notifications/register", map[string]any{"userId": "u"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestEmergencyEndpoint tests the driver emergency route
func TestEmergencyEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	w, body := doJSON(t, srv, http.MethodPost, "/driver/emergency",
		map[string]any{"token": "MOCK-TKN-TRIP-001-driver1", "emergencyType": "GAS_LEAK", "location": "NH-12"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body["emergencyId"].(string), "EMG-")

	w, _ = doJSON(t, srv, http.MethodPost, "/driver/emergency",
		map[string]any{"token": "TKN-BOGUS", "emergencyType": "GAS_LEAK"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
