package barista

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/appetiteclub/barista/pkg/event"
	"github.com/appetiteclub/barista/services/barista/internal/assignment"
	"github.com/appetiteclub/barista/services/barista/internal/conversation"
	"github.com/appetiteclub/barista/services/barista/internal/monitor"
	"github.com/appetiteclub/barista/services/barista/internal/order"
	"github.com/appetiteclub/barista/services/barista/internal/station"
)

const MaxBodyBytes = 1 << 20

type Conversations interface {
	HandleMessage(ctx context.Context, customerID, message string) (conversation.Reply, error)
}

type Stations interface {
	List(ctx context.Context) ([]station.Station, error)
	Get(ctx context.Context, id int) (station.Station, error)
	SetStatus(ctx context.Context, id int, status string) error
}

type Orders interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

type StatusUpdater interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*order.Order, error)
}

type Sweeper interface {
	Sweep(ctx context.Context, threshold time.Duration) (monitor.Report, error)
}

// NotificationFeed is the live support notification source behind the SSE
// endpoint.
type NotificationFeed interface {
	Subscribe(id string) <-chan event.SupportNotificationEvent
	Unsubscribe(id string)
	Recent() []event.SupportNotificationEvent
}

type HandlerDeps struct {
	Conversations Conversations
	Stations      Stations
	Orders        Orders
	Status        StatusUpdater
	Sweeper       Sweeper
	Feed          NotificationFeed

	// SweepThreshold is used by manual sweeps that do not pass one.
	SweepThreshold time.Duration
}

type Handler struct {
	deps   HandlerDeps
	logger apt.Logger
	tlm    *telemetry.HTTP
}

func NewHandler(deps HandlerDeps, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if deps.SweepThreshold <= 0 {
		deps.SweepThreshold = 15 * time.Minute
	}
	return &Handler{
		deps:   deps,
		logger: logger,
		tlm:    telemetry.NewHTTP(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/messages", h.PostMessage)

	r.Route("/stations", func(r chi.Router) {
		r.Get("/", h.ListStations)
		r.Get("/{id}", h.GetStation)
		r.Put("/{id}/status", h.UpdateStationStatus)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/{id}", h.GetOrder)
		r.Put("/{id}/status", h.UpdateOrderStatus)
	})

	r.Post("/sweeps", h.RunSweep)
	r.Get("/notifications/stream", h.StreamNotifications)
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}

func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.PostMessage")
	defer finish()
	log := h.log(r)

	var payload struct {
		CustomerID string `json:"customer_id"`
		Message    string `json:"message"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}

	reply, err := h.deps.Conversations.HandleMessage(r.Context(), payload.CustomerID, payload.Message)
	switch {
	case errors.Is(err, conversation.ErrMissingCustomer):
		apt.RespondError(w, http.StatusBadRequest, "customer_id is required")
		return
	case assignment.IsFatal(err):
		// The customer still gets a reply; operators are alerted through the log.
		log.Error("fatal assignment error", "customer_id", payload.CustomerID, "error", err)
	case err != nil:
		log.Errorf("cannot handle message: %v", err)
		apt.RespondError(w, http.StatusServiceUnavailable, "Conversation temporarily unavailable")
		return
	}

	apt.Respond(w, http.StatusOK, reply, nil)
}

func (h *Handler) ListStations(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListStations")
	defer finish()
	log := h.log(r)

	stations, err := h.deps.Stations.List(r.Context())
	if err != nil {
		log.Errorf("cannot list stations: %v", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not list stations")
		return
	}

	apt.Respond(w, http.StatusOK, map[string]interface{}{
		"stations": stations,
	}, nil)
}

func (h *Handler) GetStation(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetStation")
	defer finish()
	log := h.log(r)

	id, ok := stationID(w, r)
	if !ok {
		return
	}

	st, err := h.deps.Stations.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, station.ErrNotFound) {
			apt.RespondError(w, http.StatusNotFound, "Station not found")
			return
		}
		log.Errorf("cannot get station: %v", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not get station")
		return
	}

	apt.Respond(w, http.StatusOK, st, nil)
}

func (h *Handler) UpdateStationStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateStationStatus")
	defer finish()
	log := h.log(r)
	ctx := r.Context()

	id, ok := stationID(w, r)
	if !ok {
		return
	}

	var payload struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}

	if err := h.deps.Stations.SetStatus(ctx, id, payload.Status); err != nil {
		switch {
		case errors.Is(err, station.ErrInvalidStatus):
			apt.RespondError(w, http.StatusBadRequest, "Invalid station status")
		case errors.Is(err, station.ErrNotFound):
			apt.RespondError(w, http.StatusNotFound, "Station not found")
		case errors.Is(err, station.ErrFallbackProtected):
			apt.RespondError(w, http.StatusConflict, "The fallback station cannot be deactivated")
		default:
			log.Errorf("cannot update station status: %v", err)
			apt.RespondError(w, http.StatusInternalServerError, "Could not update station")
		}
		return
	}

	st, err := h.deps.Stations.Get(ctx, id)
	if err != nil {
		log.Errorf("cannot reload station: %v", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not get station")
		return
	}

	apt.Respond(w, http.StatusOK, st, nil)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetOrder")
	defer finish()
	log := h.log(r)

	id, ok := orderID(w, r)
	if !ok {
		return
	}

	o, err := h.deps.Orders.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			apt.RespondError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Errorf("cannot get order: %v", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not get order")
		return
	}

	apt.Respond(w, http.StatusOK, o, nil)
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateOrderStatus")
	defer finish()
	log := h.log(r)

	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var payload struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}

	o, err := h.deps.Status.UpdateStatus(r.Context(), id, payload.Status)
	if err != nil {
		switch {
		case errors.Is(err, assignment.ErrInvalidStatus):
			apt.RespondError(w, http.StatusBadRequest, "Invalid order status")
		case errors.Is(err, order.ErrNotFound):
			apt.RespondError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, assignment.ErrInvalidTransition), errors.Is(err, assignment.ErrAssignmentConflict):
			apt.RespondError(w, http.StatusConflict, err.Error())
		default:
			log.Errorf("cannot update order status: %v", err)
			apt.RespondError(w, http.StatusInternalServerError, "Could not update order")
		}
		return
	}

	apt.Respond(w, http.StatusOK, o, nil)
}

func (h *Handler) RunSweep(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RunSweep")
	defer finish()
	log := h.log(r)

	threshold := h.deps.SweepThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			apt.RespondError(w, http.StatusBadRequest, "Invalid threshold")
			return
		}
		threshold = d
	}

	report, err := h.deps.Sweeper.Sweep(r.Context(), threshold)
	if err != nil {
		if assignment.IsFatal(err) {
			log.Error("sweep aborted", "error", err)
			apt.RespondError(w, http.StatusInternalServerError, "Fallback station unavailable")
			return
		}
		log.Errorf("sweep failed: %v", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not run sweep")
		return
	}

	apt.Respond(w, http.StatusOK, report, nil)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Could not read request body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}
	return true
}

func stationID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid station ID")
		return 0, false
	}
	return id, true
}

func orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid order ID")
		return uuid.Nil, false
	}
	return id, true
}
