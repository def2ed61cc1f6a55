package models

// Units is the OpenWeatherMap unit system a forecast was requested in.
type Units string

const (
	// UnitsStandard is the provider default: temperatures in Kelvin.
	UnitsStandard Units = "standard"
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

const kelvinOffset = 273.15

// Valid reports whether u is a known unit system. Empty means standard.
func (u Units) Valid() bool {
	switch u {
	case "", UnitsStandard, UnitsMetric, UnitsImperial:
		return true
	}
	return false
}

// Celsius converts a temperature in u to degrees Celsius.
func (u Units) Celsius(v float64) float64 {
	switch u {
	case UnitsMetric:
		return v
	case UnitsImperial:
		return (v - 32) * 5 / 9
	default:
		return v - kelvinOffset
	}
}

// Symbol returns the display suffix for temperatures in u.
func (u Units) Symbol() string {
	switch u {
	case UnitsMetric:
		return "°C"
	case UnitsImperial:
		return "°F"
	default:
		return "K"
	}
}
