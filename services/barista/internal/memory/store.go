// Package memory is an in-process backing store for stations, orders and
// customer preferences. Every operation runs under one mutex so multi-record
// writes are atomic.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/appetiteclub/barista/services/barista/internal/assignment"
	"github.com/appetiteclub/barista/services/barista/internal/order"
	"github.com/appetiteclub/barista/services/barista/internal/station"
)

type Store struct {
	mu          sync.RWMutex
	stations    map[int]*station.Station
	orders      map[uuid.UUID]*order.Order
	preferences map[string]order.Requirements
	sequence    int
	now         func() time.Time
}

func NewStore() *Store {
	return &Store{
		stations:    make(map[int]*station.Station),
		orders:      make(map[uuid.UUID]*order.Order),
		preferences: make(map[string]order.Requirements),
		now:         time.Now,
	}
}

// Stations

func (s *Store) ListStations(ctx context.Context) ([]station.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]station.Station, 0, len(s.stations))
	for _, st := range s.stations {
		result = append(result, *st)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) GetStation(ctx context.Context, id int) (*station.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stations[id]
	if !ok {
		return nil, station.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *Store) SaveStation(ctx context.Context, st *station.Station) error {
	if st == nil {
		return fmt.Errorf("station is nil")
	}
	if st.CurrentLoad < 0 {
		return fmt.Errorf("station %d has negative load", st.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *st
	s.stations[st.ID] = &cp
	return nil
}

func (s *Store) UpdateStationStatus(ctx context.Context, id int, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stations[id]
	if !ok {
		return station.ErrNotFound
	}
	st.Status = status
	st.UpdatedAt = s.now()
	return nil
}

func (s *Store) IncrementLoad(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stations[id]
	if !ok {
		return station.ErrNotFound
	}
	st.CurrentLoad++
	return nil
}

func (s *Store) DecrementLoad(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stations[id]
	if !ok {
		return station.ErrNotFound
	}
	s.releaseLocked(st)
	return nil
}

func (s *Store) releaseLocked(st *station.Station) {
	if st.CurrentLoad > 0 {
		st.CurrentLoad--
	}
}

// Orders

func (s *Store) CreateOrder(ctx context.Context, o *order.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID]; exists {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	for _, existing := range s.orders {
		if existing.Number == o.Number {
			return fmt.Errorf("order number %s already exists", o.Number)
		}
	}

	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *Store) UpdateOrderStation(ctx context.Context, id uuid.UUID, stationID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.StationID = stationID
	o.UpdatedAt = s.now()
	return nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = s.now()
	return nil
}

func (s *Store) QueryPendingOlderThan(ctx context.Context, age time.Duration, now time.Time) ([]*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := now.Add(-age)
	var result []*order.Order
	for _, o := range s.orders {
		if o.IsPending() && o.CreatedAt.Before(cutoff) {
			cp := *o
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// ListOrders returns all orders oldest first.
func (s *Store) ListOrders(ctx context.Context) ([]*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		cp := *o
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) NextOrderNumber(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequence++
	return order.FormatNumber(s.sequence), nil
}

// Atomic assignment writes

func (s *Store) MoveOrder(ctx context.Context, orderID uuid.UUID, fromStationID, toStationID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return order.ErrNotFound
	}
	if !o.IsPending() || o.StationID != fromStationID {
		return assignment.ErrAssignmentConflict
	}

	to, ok := s.stations[toStationID]
	if !ok {
		return station.ErrNotFound
	}

	if from, ok := s.stations[fromStationID]; ok {
		s.releaseLocked(from)
	}
	to.CurrentLoad++
	o.StationID = toStationID
	o.UpdatedAt = s.now()
	return nil
}

func (s *Store) TransitionOrder(ctx context.Context, t assignment.Transition) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[t.OrderID]
	if !ok {
		return 0, order.ErrNotFound
	}
	if o.Status != t.FromStatus {
		return o.StationID, assignment.ErrAssignmentConflict
	}

	o.Status = t.ToStatus
	o.UpdatedAt = s.now()
	if t.Release {
		if st, ok := s.stations[o.StationID]; ok {
			s.releaseLocked(st)
		}
	}
	return o.StationID, nil
}

// Preferences

func (s *Store) SavePreference(ctx context.Context, customerID string, req order.Requirements) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.preferences[customerID] = req
	return nil
}

// GetPreference returns nil when the customer has no saved order.
func (s *Store) GetPreference(ctx context.Context, customerID string) (*order.Requirements, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.preferences[customerID]
	if !ok {
		return nil, nil
	}
	return &req, nil
}
