package mongo

import (
	"errors"

	"github.com/appetiteclub/barista/services/barista/internal/station"
)

func isNotFound(err error) bool {
	return errors.Is(err, station.ErrNotFound)
}
