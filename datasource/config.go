package datasource

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"forecast-dashboard/models"
)

// Config represents the application configuration
type Config struct {
	OpenWeatherMap struct {
		APIKey  string       `json:"apiKey"`
		BaseURL string       `json:"baseURL"`
		Units   models.Units `json:"units"`
	} `json:"openWeatherMap"`

	// Outbound limits
	HTTPTimeout    Duration `json:"httpTimeout"`
	RateLimitRPS   float64  `json:"rateLimitRPS"`
	RateLimitBurst int      `json:"rateLimitBurst"`

	Port     int    `json:"port"`
	LogLevel string `json:"logLevel"`
}

// Duration decodes JSON strings such as "10s".
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// DefaultConfig creates a default configuration
func DefaultConfig() *Config {
	config := &Config{}
	config.OpenWeatherMap.BaseURL = "http://api.openweathermap.org"
	config.HTTPTimeout = Duration(10 * time.Second)
	// OpenWeatherMap free tier allows 60 calls/minute
	config.RateLimitRPS = 1
	config.RateLimitBurst = 5
	config.Port = 8080
	config.LogLevel = "info"
	return config
}

// LoadConfig loads configuration from an optional JSON file and then
// applies environment overrides. A missing file is not an error.
func LoadConfig(filename string) (*Config, error) {
	config := DefaultConfig()

	if filename != "" {
		file, err := os.Open(filename)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			defer file.Close()
			if err := json.NewDecoder(file).Decode(config); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
			}
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("OWM_API_KEY"); v != "" {
		c.OpenWeatherMap.APIKey = v
	}
	if v := os.Getenv("OWM_BASE_URL"); v != "" {
		c.OpenWeatherMap.BaseURL = v
	}
	if v := os.Getenv("OWM_UNITS"); v != "" {
		c.OpenWeatherMap.Units = models.Units(v)
	}
	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_TIMEOUT %q: %w", v, err)
		}
		c.HTTPTimeout = Duration(d)
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RPS %q: %w", v, err)
		}
		c.RateLimitRPS = f
	}
	var err error
	if c.RateLimitBurst, err = getenvInt("RATE_LIMIT_BURST", c.RateLimitBurst); err != nil {
		return err
	}
	if c.Port, err = getenvInt("PORT", c.Port); err != nil {
		return err
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate reports configuration the service cannot start with.
func (c *Config) Validate() error {
	if c.OpenWeatherMap.APIKey == "" {
		return errors.New("no OpenWeatherMap API key provided; set OWM_API_KEY")
	}
	if !c.OpenWeatherMap.Units.Valid() {
		return fmt.Errorf("unknown units %q", c.OpenWeatherMap.Units)
	}
	if c.HTTPTimeout < 0 {
		return errors.New("httpTimeout must not be negative")
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getenvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s %q: %w", k, v, err)
	}
	return n, nil
}
