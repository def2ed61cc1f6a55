package openweathermap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"forecast-dashboard/datasource"
	"forecast-dashboard/models"
)

const (
	// DefaultBaseURL is the provider host the forecast path is appended to.
	DefaultBaseURL = "http://api.openweathermap.org"
	forecastPath   = "/data/2.5/forecast"
	providerName   = "OpenWeatherMap"
)

// OpenWeatherMapForecastSource provides forecasts from OpenWeatherMap
type OpenWeatherMapForecastSource struct {
	apiKey  string
	baseURL string
	units   models.Units
	client  *http.Client
	timeout *time.Duration
	logger  *slog.Logger
}

// Ensure OpenWeatherMapForecastSource implements ForecastSource
var _ datasource.ForecastSource = (*OpenWeatherMapForecastSource)(nil)

// Option configures an OpenWeatherMapForecastSource.
type Option func(*OpenWeatherMapForecastSource)

// WithBaseURL points the source at another host, e.g. an httptest server.
func WithBaseURL(baseURL string) Option {
	return func(o *OpenWeatherMapForecastSource) {
		o.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *OpenWeatherMapForecastSource) { o.client = client }
}

// WithTimeout sets the request timeout. Zero disables it. The timeout is
// applied to a copy of the client, so a client passed to WithHTTPClient
// is never modified.
func WithTimeout(timeout time.Duration) Option {
	return func(o *OpenWeatherMapForecastSource) { o.timeout = &timeout }
}

// WithUnits requests temperatures in the given unit system. Empty keeps
// the provider default (Kelvin).
func WithUnits(units models.Units) Option {
	return func(o *OpenWeatherMapForecastSource) { o.units = units }
}

// WithLogger sets the logger requests and failures are written to.
func WithLogger(logger *slog.Logger) Option {
	return func(o *OpenWeatherMapForecastSource) { o.logger = logger }
}

// NewOpenWeatherMapForecastSource creates a new forecast source
func NewOpenWeatherMapForecastSource(apiKey string, opts ...Option) *OpenWeatherMapForecastSource {
	o := &OpenWeatherMapForecastSource{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.timeout != nil {
		c := *o.client
		c.Timeout = *o.timeout
		o.client = &c
	}
	o.logger = o.logger.With("component", "openweathermap")
	return o
}

// Name returns the provider name
func (o *OpenWeatherMapForecastSource) Name() string {
	return providerName
}

// forecastResponse is the /data/2.5/forecast payload. Pointers mark
// fields whose absence must be told apart from a zero value.
type forecastResponse struct {
	Cod     any `json:"cod"`     // "200" on success, int or string on errors
	Message any `json:"message"` // 0 on success, text on errors
	City    struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
	List *[]forecastItem `json:"list"`
}

type forecastItem struct {
	Dt    *int64  `json:"dt"`
	DtTxt *string `json:"dt_txt"`
	Main  *struct {
		Temp     *float64 `json:"temp"`
		TempMin  *float64 `json:"temp_min"`
		TempMax  *float64 `json:"temp_max"`
		Pressure *float64 `json:"pressure"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind *struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
}

// errorResponse is what the provider sends alongside non-200 statuses.
type errorResponse struct {
	Cod     any    `json:"cod"`
	Message string `json:"message"`
}

// FetchForecast gets the first 8*days forecast slots for place. It makes
// exactly one request and never retries.
func (o *OpenWeatherMapForecastSource) FetchForecast(ctx context.Context, place string, days int) (models.Forecast, error) {
	params := url.Values{}
	params.Set("q", place)
	params.Set("appid", o.apiKey)
	if o.units != "" {
		params.Set("units", string(o.units))
	}
	apiURL := o.baseURL + forecastPath + "?" + params.Encode()

	o.logger.Debug("requesting forecast", "place", place, "days", days)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return models.Forecast{}, o.fail(datasource.KindNetwork, 0, fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return models.Forecast{}, o.fail(datasource.KindNetwork, 0, fmt.Errorf("failed to send request: %w", redactKey(err)))
	}
	defer resp.Body.Close()

	rawData, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Forecast{}, o.fail(datasource.KindNetwork, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return models.Forecast{}, o.statusError(resp.StatusCode, rawData)
	}

	var forecastResp forecastResponse
	if err := json.Unmarshal(rawData, &forecastResp); err != nil {
		return models.Forecast{}, o.fail(datasource.KindMalformed, resp.StatusCode, fmt.Errorf("failed to parse API response: %w", err))
	}

	// The provider sometimes reports errors in the body with a 200 status.
	if cod := codString(forecastResp.Cod); cod != "" && cod != "200" {
		return models.Forecast{}, o.statusError(codStatus(cod), rawData)
	}
	if forecastResp.List == nil {
		return models.Forecast{}, o.fail(datasource.KindMalformed, resp.StatusCode, errors.New(`response has no "list" field`))
	}

	items := *forecastResp.List
	if n := datasource.MaxSlots(days); n < len(items) {
		items = items[:n]
	}

	records := make([]models.ForecastRecord, 0, len(items))
	for i, item := range items {
		record, err := item.record()
		if err != nil {
			return models.Forecast{}, o.fail(datasource.KindMalformed, resp.StatusCode, fmt.Errorf("list[%d]: %w", i, err))
		}
		records = append(records, record)
	}

	units := o.units
	if units == "" {
		units = models.UnitsStandard
	}

	o.logger.Debug("forecast received", "place", place, "records", len(records), "available", len(*forecastResp.List))

	return models.Forecast{
		Provider: o.Name(),
		Place:    place,
		City:     forecastResp.City.Name,
		Country:  forecastResp.City.Country,
		Units:    units,
		Records:  records,
		Fetched:  time.Now(),
	}, nil
}

// record converts one list entry, failing when a required field is absent.
func (item forecastItem) record() (models.ForecastRecord, error) {
	if item.DtTxt == nil {
		return models.ForecastRecord{}, errors.New("missing dt_txt")
	}
	if item.Main == nil || item.Main.Temp == nil {
		return models.ForecastRecord{}, errors.New("missing main.temp")
	}
	if len(item.Weather) == 0 || item.Weather[0].Main == "" {
		return models.ForecastRecord{}, errors.New("missing weather[0].main")
	}

	record := models.ForecastRecord{
		Timestamp:      *item.DtTxt,
		Temperature:    *item.Main.Temp,
		TemperatureMin: item.Main.TempMin,
		TemperatureMax: item.Main.TempMax,
		Condition:      item.Weather[0].Main,
		Description:    item.Weather[0].Description,
		Icon:           item.Weather[0].Icon,
		Humidity:       item.Main.Humidity,
		Pressure:       item.Main.Pressure,
	}
	if item.Dt != nil {
		record.Time = time.Unix(*item.Dt, 0).UTC()
	}
	if item.Wind != nil {
		record.WindSpeed = item.Wind.Speed
	}
	return record, nil
}

func (o *OpenWeatherMapForecastSource) statusError(status int, body []byte) error {
	var payload errorResponse
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		msg = payload.Message
	} else {
		msg = strings.TrimSpace(string(body))
		if len(msg) > 256 {
			msg = msg[:256]
		}
	}

	kind := datasource.KindUpstream
	if status == http.StatusNotFound {
		kind = datasource.KindNotFound
	}

	var cause error
	if msg != "" {
		cause = errors.New(msg)
	}
	return o.fail(kind, status, cause)
}

func (o *OpenWeatherMapForecastSource) fail(kind datasource.Kind, status int, err error) error {
	return datasource.NewError(o.Name(), kind, status, err)
}

func codString(cod any) string {
	switch v := cod.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

func codStatus(cod string) int {
	var status int
	if _, err := fmt.Sscanf(cod, "%d", &status); err != nil {
		return http.StatusBadGateway
	}
	return status
}

// redactKey strips the request URL, which carries appid, from transport errors.
func redactKey(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s %s: %w", urlErr.Op, forecastPath, urlErr.Err)
	}
	return err
}
