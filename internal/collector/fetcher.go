package collector

import (
	"context"
	"errors"

	"StopHunter/internal/model"
)

// ErrDataUnavailable is returned when a source has no bars for the request.
var ErrDataUnavailable = errors.New("data unavailable")

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// Fetch returns bars for symbol covering period (e.g. "20d") at the given
	// bar interval (e.g. "1d", "5m"), oldest first.
	Fetch(ctx context.Context, symbol, period, interval string) (*model.BarSeries, error)
	Name() string
}
