package station

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("station not found")

// Repo is the station directory backing the registry. Load mutations must be
// atomic in the implementation; DecrementLoad never goes below zero.
type Repo interface {
	ListStations(ctx context.Context) ([]Station, error)
	GetStation(ctx context.Context, id int) (*Station, error)
	SaveStation(ctx context.Context, st *Station) error
	UpdateStationStatus(ctx context.Context, id int, status string) error
	IncrementLoad(ctx context.Context, id int) error
	DecrementLoad(ctx context.Context, id int) error
}
