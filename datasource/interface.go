package datasource

import (
	"context"

	"forecast-dashboard/models"
)

// ForecastSource is an interface for services that can fetch weather forecasts
type ForecastSource interface {
	// FetchForecast fetches at most 8*days 3-hour slots for a place
	FetchForecast(ctx context.Context, place string, days int) (models.Forecast, error)

	// Name returns the source's name
	Name() string
}

// SlotsPerDay is the number of 3-hour forecast slots in a day.
const SlotsPerDay = 8

// MaxSlots returns how many slots a request for days may return.
func MaxSlots(days int) int {
	if days <= 0 {
		return 0
	}
	return days * SlotsPerDay
}
