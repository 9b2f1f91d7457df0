package station

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/appetiteclub/apt"

	"github.com/appetiteclub/barista/pkg/enums/stationstatus"
	"github.com/appetiteclub/barista/services/barista/internal/order"
)

var (
	ErrNoFallback        = errors.New("no active fallback station")
	ErrFallbackProtected = errors.New("fallback station cannot be deactivated")
	ErrInvalidStatus     = errors.New("invalid station status")
)

// Registry is the live view over preparation stations used by the
// assignment engine.
type Registry struct {
	repo   Repo
	logger apt.Logger
}

func NewRegistry(repo Repo, logger apt.Logger) *Registry {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Registry{repo: repo, logger: logger}
}

// List returns every station ordered by id.
func (r *Registry) List(ctx context.Context) ([]Station, error) {
	stations, err := r.repo.ListStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	sort.Slice(stations, func(i, j int) bool { return stations[i].ID < stations[j].ID })
	return stations, nil
}

// ListActive returns active stations sorted by current load, ties broken by id.
func (r *Registry) ListActive(ctx context.Context, excludeFallback bool) ([]Station, error) {
	stations, err := r.repo.ListStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}

	active := make([]Station, 0, len(stations))
	for _, st := range stations {
		if !st.IsActive() {
			continue
		}
		if excludeFallback && st.Fallback {
			continue
		}
		active = append(active, st)
	}

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].CurrentLoad != active[j].CurrentLoad {
			return active[i].CurrentLoad < active[j].CurrentLoad
		}
		return active[i].ID < active[j].ID
	})
	return active, nil
}

// IsCompatible reports whether st can prepare an order with req on all
// three dimensions.
func (r *Registry) IsCompatible(req order.Requirements, st Station) bool {
	return IsCompatible(req, st)
}

func IsCompatible(req order.Requirements, st Station) bool {
	caps := st.Capabilities
	return caps.Drinks.Accepts(req.Drink) &&
		caps.Milks.Accepts(req.Milk) &&
		caps.Sizes.Accepts(req.Size)
}

func (r *Registry) Get(ctx context.Context, id int) (Station, error) {
	st, err := r.repo.GetStation(ctx, id)
	if err != nil {
		return Station{}, err
	}
	if st == nil {
		return Station{}, ErrNotFound
	}
	return *st, nil
}

// Fallback returns the first active station flagged as fallback. When every
// flagged station is inactive, or none is flagged, it yields ErrNoFallback.
func (r *Registry) Fallback(ctx context.Context) (Station, error) {
	stations, err := r.repo.ListStations(ctx)
	if err != nil {
		return Station{}, fmt.Errorf("list stations: %w", err)
	}

	var inactive *Station
	for i, st := range stations {
		if !st.Fallback {
			continue
		}
		if st.IsActive() {
			return st, nil
		}
		if inactive == nil {
			inactive = &stations[i]
		}
	}
	if inactive != nil {
		return *inactive, fmt.Errorf("%w: station %d is %s", ErrNoFallback, inactive.ID, inactive.Status)
	}
	return Station{}, ErrNoFallback
}

func (r *Registry) IncrementLoad(ctx context.Context, id int) error {
	if err := r.repo.IncrementLoad(ctx, id); err != nil {
		return fmt.Errorf("increment load of station %d: %w", id, err)
	}
	return nil
}

// DecrementLoad lowers the counter, clamped at zero by the repository.
func (r *Registry) DecrementLoad(ctx context.Context, id int) error {
	if err := r.repo.DecrementLoad(ctx, id); err != nil {
		return fmt.Errorf("decrement load of station %d: %w", id, err)
	}
	return nil
}

// SetStatus activates or deactivates a station. The fallback station is
// never deactivated.
func (r *Registry) SetStatus(ctx context.Context, id int, status string) error {
	if stationstatus.ByName(status) == nil {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	st, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	if st.Fallback && status != stationstatus.Statuses.Active.Code() {
		return ErrFallbackProtected
	}

	if err := r.repo.UpdateStationStatus(ctx, id, status); err != nil {
		return fmt.Errorf("update status of station %d: %w", id, err)
	}

	r.logger.Info("station status changed", "station_id", id, "from", st.Status, "to", status)
	return nil
}
