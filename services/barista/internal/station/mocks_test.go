package station

import (
	"context"
	"sort"
)

// MockRepo is a test mock for Repo
type MockRepo struct {
	stations map[int]*Station

	ListStationsFunc        func(ctx context.Context) ([]Station, error)
	GetStationFunc          func(ctx context.Context, id int) (*Station, error)
	UpdateStationStatusFunc func(ctx context.Context, id int, status string) error
}

func NewMockRepo(stations ...Station) *MockRepo {
	m := &MockRepo{stations: make(map[int]*Station)}
	for i := range stations {
		st := stations[i]
		m.stations[st.ID] = &st
	}
	return m
}

func (m *MockRepo) ListStations(ctx context.Context) ([]Station, error) {
	if m.ListStationsFunc != nil {
		return m.ListStationsFunc(ctx)
	}
	result := make([]Station, 0, len(m.stations))
	for _, st := range m.stations {
		result = append(result, *st)
	}
	// Reverse id order so callers cannot rely on repository ordering.
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (m *MockRepo) GetStation(ctx context.Context, id int) (*Station, error) {
	if m.GetStationFunc != nil {
		return m.GetStationFunc(ctx, id)
	}
	st, ok := m.stations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (m *MockRepo) SaveStation(ctx context.Context, st *Station) error {
	cp := *st
	m.stations[st.ID] = &cp
	return nil
}

func (m *MockRepo) UpdateStationStatus(ctx context.Context, id int, status string) error {
	if m.UpdateStationStatusFunc != nil {
		return m.UpdateStationStatusFunc(ctx, id, status)
	}
	st, ok := m.stations[id]
	if !ok {
		return ErrNotFound
	}
	st.Status = status
	return nil
}

func (m *MockRepo) IncrementLoad(ctx context.Context, id int) error {
	st, ok := m.stations[id]
	if !ok {
		return ErrNotFound
	}
	st.CurrentLoad++
	return nil
}

func (m *MockRepo) DecrementLoad(ctx context.Context, id int) error {
	st, ok := m.stations[id]
	if !ok {
		return ErrNotFound
	}
	if st.CurrentLoad > 0 {
		st.CurrentLoad--
	}
	return nil
}
