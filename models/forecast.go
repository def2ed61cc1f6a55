package models

import (
	"time"
)

// ForecastRecord represents a single 3-hour forecast slot.
// Optional measurements are nil when the provider omitted them.
type ForecastRecord struct {
	Timestamp      string    `json:"timestamp"`      // provider dt_txt
	Time           time.Time `json:"time"`           // provider dt, zero if absent
	Temperature    float64   `json:"temperature"`    // in Forecast.Units
	TemperatureMin *float64  `json:"temperatureMin"` // in Forecast.Units
	TemperatureMax *float64  `json:"temperatureMax"` // in Forecast.Units
	Condition      string    `json:"condition"`      // e.g. Clear, Clouds, Rain
	Description    string    `json:"description"`    // free text
	Icon           string    `json:"icon"`           // provider icon code
	Humidity       *float64  `json:"humidity"`       // percentage
	Pressure       *float64  `json:"pressure"`       // in hPa
	WindSpeed      *float64  `json:"windSpeed"`      // m/s (mph for imperial)
}

// Forecast is the ordered sequence of slots returned for one place.
type Forecast struct {
	Provider string           `json:"provider"`
	Place    string           `json:"place"`   // query as given by the caller
	City     string           `json:"city"`    // name resolved by the provider
	Country  string           `json:"country"` // ISO country code, may be empty
	Units    Units            `json:"units"`
	Records  []ForecastRecord `json:"records"`
	Fetched  time.Time        `json:"fetched"`
}

// Location returns the provider-resolved name, falling back to the query.
func (f Forecast) Location() string {
	switch {
	case f.City != "" && f.Country != "":
		return f.City + ", " + f.Country
	case f.City != "":
		return f.City
	default:
		return f.Place
	}
}

// Float returns a pointer to v. Handy when building records by hand.
func Float(v float64) *float64 {
	return &v
}
