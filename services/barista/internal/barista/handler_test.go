package barista

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/appetiteclub/barista/pkg/enums/stationstatus"
	"github.com/appetiteclub/barista/pkg/event"
	"github.com/appetiteclub/barista/services/barista/internal/assignment"
	"github.com/appetiteclub/barista/services/barista/internal/conversation"
	"github.com/appetiteclub/barista/services/barista/internal/monitor"
	"github.com/appetiteclub/barista/services/barista/internal/order"
	"github.com/appetiteclub/barista/services/barista/internal/station"
)

func newRouter(deps HandlerDeps) http.Handler {
	h := NewHandler(deps, apt.NewNoopLogger())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func serve(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func responseData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("cannot decode response %q: %v", w.Body.String(), err)
	}
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Response does not contain data object: %s", w.Body.String())
	}
	return data
}

func sampleStations() []station.Station {
	return []station.Station{
		{ID: 1, Name: "Espresso Bar", Status: stationstatus.Statuses.Active.Code(), Capabilities: station.AcceptAnything()},
		{ID: 99, Name: "Fallback Counter", Status: stationstatus.Statuses.Active.Code(), Capabilities: station.AcceptAnything(), Fallback: true},
	}
}

func TestNewHandler(t *testing.T) {
	tests := []struct {
		name   string
		deps   HandlerDeps
		logger apt.Logger
	}{
		{name: "withAllDependencies", deps: HandlerDeps{Conversations: &MockConversations{}, Stations: NewMockStations()}, logger: apt.NewNoopLogger()},
		{name: "withNilLogger", deps: HandlerDeps{}, logger: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(tt.deps, tt.logger)
			if h == nil {
				t.Fatal("NewHandler() returned nil")
			}
			if h.deps.SweepThreshold != 15*time.Minute {
				t.Errorf("SweepThreshold = %v, want 15m", h.deps.SweepThreshold)
			}
		})
	}
}

func TestHandlerPostMessage(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		handle         func(ctx context.Context, customerID, message string) (conversation.Reply, error)
		expectedStatus int
		expectedState  string
	}{
		{
			name:           "success",
			body:           `{"customer_id":"+15550001","message":"latte"}`,
			expectedStatus: http.StatusOK,
			expectedState:  string(conversation.StateAwaitingDrink),
		},
		{
			name: "missingCustomer",
			body: `{"message":"latte"}`,
			handle: func(ctx context.Context, customerID, message string) (conversation.Reply, error) {
				return conversation.Reply{}, conversation.ErrMissingCustomer
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "fatalErrorStillReplies",
			body: `{"customer_id":"+15550001","message":"yes"}`,
			handle: func(ctx context.Context, customerID, message string) (conversation.Reply, error) {
				return conversation.Reply{Text: "Sorry", State: conversation.StateAwaitingConfirmation},
					&assignment.FatalAssignmentError{OrderNumber: "ORD-00001", Err: station.ErrNoFallback}
			},
			expectedStatus: http.StatusOK,
			expectedState:  string(conversation.StateAwaitingConfirmation),
		},
		{
			name: "storeUnavailable",
			body: `{"customer_id":"+15550001","message":"latte"}`,
			handle: func(ctx context.Context, customerID, message string) (conversation.Reply, error) {
				return conversation.Reply{}, errors.New("connection refused")
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "invalidJSON",
			body:           `{"customer_id":`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(HandlerDeps{Conversations: &MockConversations{HandleMessageFunc: tt.handle}})

			w := serve(t, router, http.MethodPost, "/messages", tt.body)
			if w.Code != tt.expectedStatus {
				t.Fatalf("PostMessage() status = %d, want %d: %s", w.Code, tt.expectedStatus, w.Body.String())
			}
			if tt.expectedState != "" {
				data := responseData(t, w)
				if data["state"] != tt.expectedState {
					t.Errorf("state = %v, want %s", data["state"], tt.expectedState)
				}
				if data["reply"] == "" {
					t.Error("reply is empty")
				}
			}
		})
	}
}

func TestHandlerListStations(t *testing.T) {
	router := newRouter(HandlerDeps{Stations: NewMockStations(sampleStations()...)})

	w := serve(t, router, http.MethodGet, "/stations", "")
	if w.Code != http.StatusOK {
		t.Fatalf("ListStations() status = %d, want %d", w.Code, http.StatusOK)
	}
	stations, ok := responseData(t, w)["stations"].([]interface{})
	if !ok {
		t.Fatalf("Response does not contain stations array: %s", w.Body.String())
	}
	if len(stations) != 2 {
		t.Errorf("stations count = %d, want 2", len(stations))
	}
}

func TestHandlerGetStation(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		expectedStatus int
	}{
		{name: "found", id: "1", expectedStatus: http.StatusOK},
		{name: "notFound", id: "7", expectedStatus: http.StatusNotFound},
		{name: "invalidID", id: "espresso", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(HandlerDeps{Stations: NewMockStations(sampleStations()...)})

			w := serve(t, router, http.MethodGet, "/stations/"+tt.id, "")
			if w.Code != tt.expectedStatus {
				t.Errorf("GetStation() status = %d, want %d", w.Code, tt.expectedStatus)
			}
		})
	}
}

func TestHandlerUpdateStationStatus(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		body           string
		setStatusErr   error
		expectedStatus int
	}{
		{name: "deactivate", id: "1", body: `{"status":"inactive"}`, expectedStatus: http.StatusOK},
		{name: "invalidStatus", id: "1", body: `{"status":"sleeping"}`, setStatusErr: station.ErrInvalidStatus, expectedStatus: http.StatusBadRequest},
		{name: "fallbackProtected", id: "99", body: `{"status":"inactive"}`, setStatusErr: station.ErrFallbackProtected, expectedStatus: http.StatusConflict},
		{name: "notFound", id: "5", body: `{"status":"inactive"}`, expectedStatus: http.StatusNotFound},
		{name: "invalidBody", id: "1", body: `status=inactive`, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stations := NewMockStations(sampleStations()...)
			if tt.setStatusErr != nil {
				stations.SetStatusFunc = func(ctx context.Context, id int, status string) error {
					return tt.setStatusErr
				}
			}
			router := newRouter(HandlerDeps{Stations: stations})

			w := serve(t, router, http.MethodPut, "/stations/"+tt.id+"/status", tt.body)
			if w.Code != tt.expectedStatus {
				t.Fatalf("UpdateStationStatus() status = %d, want %d: %s", w.Code, tt.expectedStatus, w.Body.String())
			}
			if tt.expectedStatus == http.StatusOK {
				if got := responseData(t, w)["status"]; got != "inactive" {
					t.Errorf("status = %v, want inactive", got)
				}
			}
		})
	}
}

func TestHandlerOrders(t *testing.T) {
	existing := order.NewOrder()
	existing.Number = "ORD-00001"

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		updateErr      error
		expectedStatus int
	}{
		{name: "getFound", method: http.MethodGet, path: "/orders/" + existing.ID.String(), expectedStatus: http.StatusOK},
		{name: "getNotFound", method: http.MethodGet, path: "/orders/" + uuid.New().String(), expectedStatus: http.StatusNotFound},
		{name: "getInvalidID", method: http.MethodGet, path: "/orders/ORD-00001", expectedStatus: http.StatusBadRequest},
		{name: "complete", method: http.MethodPut, path: "/orders/" + existing.ID.String() + "/status", body: `{"status":"completed"}`, expectedStatus: http.StatusOK},
		{name: "invalidStatus", method: http.MethodPut, path: "/orders/" + existing.ID.String() + "/status", body: `{"status":"lost"}`, updateErr: assignment.ErrInvalidStatus, expectedStatus: http.StatusBadRequest},
		{name: "invalidTransition", method: http.MethodPut, path: "/orders/" + existing.ID.String() + "/status", body: `{"status":"pending"}`, updateErr: assignment.ErrInvalidTransition, expectedStatus: http.StatusConflict},
		{name: "conflict", method: http.MethodPut, path: "/orders/" + existing.ID.String() + "/status", body: `{"status":"completed"}`, updateErr: assignment.ErrAssignmentConflict, expectedStatus: http.StatusConflict},
		{name: "updateNotFound", method: http.MethodPut, path: "/orders/" + uuid.New().String() + "/status", body: `{"status":"completed"}`, expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := NewMockOrders(existing)
			if tt.updateErr != nil {
				orders.UpdateStatusFunc = func(ctx context.Context, id uuid.UUID, status string) (*order.Order, error) {
					return nil, tt.updateErr
				}
			}
			router := newRouter(HandlerDeps{Orders: orders, Status: orders})

			w := serve(t, router, tt.method, tt.path, tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("%s %s status = %d, want %d: %s", tt.method, tt.path, w.Code, tt.expectedStatus, w.Body.String())
			}
		})
	}
}

func TestHandlerRunSweep(t *testing.T) {
	tests := []struct {
		name              string
		query             string
		sweepErr          error
		expectedStatus    int
		expectedThreshold time.Duration
	}{
		{name: "defaultThreshold", expectedStatus: http.StatusOK, expectedThreshold: 15 * time.Minute},
		{name: "customThreshold", query: "?threshold=5m", expectedStatus: http.StatusOK, expectedThreshold: 5 * time.Minute},
		{name: "invalidThreshold", query: "?threshold=soon", expectedStatus: http.StatusBadRequest},
		{
			name:           "fatal",
			sweepErr:       &assignment.FatalAssignmentError{OrderNumber: "ORD-00001", Err: station.ErrNoFallback},
			expectedStatus: http.StatusInternalServerError,
		},
		{name: "queryFailure", sweepErr: errors.New("timeout"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sweeper := &MockSweeper{}
			if tt.sweepErr != nil {
				sweeper.SweepFunc = func(ctx context.Context, threshold time.Duration) (monitor.Report, error) {
					return monitor.Report{}, tt.sweepErr
				}
			}
			router := newRouter(HandlerDeps{Sweeper: sweeper})

			w := serve(t, router, http.MethodPost, "/sweeps"+tt.query, "")
			if w.Code != tt.expectedStatus {
				t.Fatalf("RunSweep() status = %d, want %d: %s", w.Code, tt.expectedStatus, w.Body.String())
			}
			if tt.expectedThreshold != 0 && sweeper.LastThreshold != tt.expectedThreshold {
				t.Errorf("threshold = %v, want %v", sweeper.LastThreshold, tt.expectedThreshold)
			}
		})
	}
}

func TestHandlerStreamNotifications(t *testing.T) {
	replayed := event.SupportNotificationEvent{OrderNumber: "ORD-00001", Severity: "warning"}
	live := event.SupportNotificationEvent{OrderNumber: "ORD-00002", Severity: "error"}

	feed := NewMockFeed(replayed)
	feed.ch <- live
	h := NewHandler(HandlerDeps{Feed: feed}, apt.NewNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/notifications/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.StreamNotifications(w, req)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("StreamNotifications() did not return after disconnect")
	}

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{": connected", "event: support-notification", "ORD-00001", "ORD-00002"} {
		if !strings.Contains(body, want) {
			t.Errorf("stream missing %q:\n%s", want, body)
		}
	}
	if strings.Index(body, "ORD-00001") > strings.Index(body, "ORD-00002") {
		t.Error("recent notifications must be replayed before live ones")
	}
	if !feed.Unsubscribed() {
		t.Error("subscriber not removed on disconnect")
	}
}

func TestHandlerStreamNotificationsWithoutFeed(t *testing.T) {
	router := newRouter(HandlerDeps{})

	w := serve(t, router, http.MethodGet, "/notifications/stream", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("StreamNotifications() status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}
