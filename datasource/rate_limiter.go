package datasource

import (
	"context"
	"fmt"

	"forecast-dashboard/models"

	"golang.org/x/time/rate"
)

// RateLimitedForecastSource wraps a ForecastSource with rate limiting
type RateLimitedForecastSource struct {
	source  ForecastSource
	limiter *rate.Limiter
}

// NewRateLimitedForecastSource creates a new rate limited forecast source
// rps is the maximum requests per second allowed (can be fractional)
// burst is the maximum burst size allowed
func NewRateLimitedForecastSource(source ForecastSource, rps float64, burst int) *RateLimitedForecastSource {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedForecastSource{
		source:  source,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// FetchForecast fetches forecast data, respecting rate limits
func (r *RateLimitedForecastSource) FetchForecast(ctx context.Context, place string, days int) (models.Forecast, error) {
	// Wait for rate limiter permission or context cancellation
	if err := r.limiter.Wait(ctx); err != nil {
		return models.Forecast{}, NewError(r.source.Name(), KindNetwork, 0, fmt.Errorf("rate limit wait canceled: %w", err))
	}

	return r.source.FetchForecast(ctx, place, days)
}

// Name returns the underlying source name; rate limiting is not part of
// the provider identity shown to users.
func (r *RateLimitedForecastSource) Name() string {
	return r.source.Name()
}

var _ ForecastSource = (*RateLimitedForecastSource)(nil)
