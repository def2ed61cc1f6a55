package openweathermap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"forecast-dashboard/datasource"
	"forecast-dashboard/models"
)

var start = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

// fakeList builds n provider list entries three hours apart.
func fakeList(n int) []map[string]any {
	list := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * 3 * time.Hour)
		list = append(list, map[string]any{
			"dt":     ts.Unix(),
			"dt_txt": ts.Format("2006-01-02 15:04:05"),
			"main": map[string]any{
				"temp":     280.0 + float64(i),
				"temp_min": 279.0 + float64(i),
				"temp_max": 281.0 + float64(i),
				"pressure": 1012,
				"humidity": 60 + i%20,
			},
			"weather": []map[string]any{{"main": "Clouds", "description": "broken clouds", "icon": "04d"}},
			"wind":    map[string]any{"speed": 3.5},
		})
	}
	return list
}

func forecastBody(list []map[string]any) map[string]any {
	return map[string]any{
		"cod":     "200",
		"message": 0,
		"cnt":     len(list),
		"list":    list,
		"city":    map[string]any{"name": "Kolkata", "country": "IN"},
	}
}

// newTestSource serves body with status on the forecast path.
func newTestSource(t *testing.T, status int, body any) (*OpenWeatherMapForecastSource, *http.Request) {
	t.Helper()
	var seen http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = *r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		switch b := body.(type) {
		case string:
			w.Write([]byte(b))
		default:
			json.NewEncoder(w).Encode(b)
		}
	}))
	t.Cleanup(srv.Close)
	return NewOpenWeatherMapForecastSource("test-key", WithBaseURL(srv.URL)), &seen
}

func TestFetchForecastRequest(t *testing.T) {
	src, seen := newTestSource(t, http.StatusOK, forecastBody(fakeList(8)))

	if _, err := src.FetchForecast(context.Background(), "São Paulo", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if seen.URL.Path != "/data/2.5/forecast" {
		t.Errorf("expected forecast path, got %q", seen.URL.Path)
	}
	q := seen.URL.Query()
	if q.Get("q") != "São Paulo" {
		t.Errorf("expected place to round-trip through the query, got %q", q.Get("q"))
	}
	if q.Get("appid") != "test-key" {
		t.Errorf("expected appid to carry the key, got %q", q.Get("appid"))
	}
	if q.Has("units") {
		t.Errorf("expected no units parameter by default, got %q", q.Get("units"))
	}
}

func TestFetchForecastUnits(t *testing.T) {
	var gotUnits string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUnits = r.URL.Query().Get("units")
		json.NewEncoder(w).Encode(forecastBody(fakeList(1)))
	}))
	defer srv.Close()

	src := NewOpenWeatherMapForecastSource("k", WithBaseURL(srv.URL+"/"), WithUnits(models.UnitsMetric))
	f, err := src.FetchForecast(context.Background(), "Kolkata", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUnits != "metric" {
		t.Errorf("expected units=metric, got %q", gotUnits)
	}
	if f.Units != models.UnitsMetric {
		t.Errorf("expected forecast units metric, got %q", f.Units)
	}
}

func TestFetchForecastSliceLength(t *testing.T) {
	tests := []struct {
		name      string
		available int
		days      int
		want      int
	}{
		{"exact 24 for 3 days", 24, 3, 24},
		{"first 16 of 40 for 2 days", 40, 2, 16},
		{"fewer than requested", 5, 10, 5},
		{"empty list", 0, 3, 0},
		{"zero days", 40, 0, 0},
		{"negative days", 40, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, _ := newTestSource(t, http.StatusOK, forecastBody(fakeList(tt.available)))

			f, err := src.FetchForecast(context.Background(), "Kolkata", tt.days)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(f.Records) != tt.want {
				t.Fatalf("expected %d records, got %d", tt.want, len(f.Records))
			}
		})
	}
}

func TestFetchForecastBoundForAllDays(t *testing.T) {
	src, _ := newTestSource(t, http.StatusOK, forecastBody(fakeList(40)))

	for days := 1; days <= 10; days++ {
		f, err := src.FetchForecast(context.Background(), "Kolkata", days)
		if err != nil {
			t.Fatalf("days=%d: unexpected error: %v", days, err)
		}
		if len(f.Records) > 8*days {
			t.Errorf("days=%d: got %d records, bound is %d", days, len(f.Records), 8*days)
		}
	}
}

func TestFetchForecastPreservesContentAndOrder(t *testing.T) {
	list := fakeList(40)
	src, _ := newTestSource(t, http.StatusOK, forecastBody(list))

	f, err := src.FetchForecast(context.Background(), "Kolkata", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.Provider != "OpenWeatherMap" || f.City != "Kolkata" || f.Country != "IN" {
		t.Errorf("unexpected header: %+v", f)
	}
	if f.Units != models.UnitsStandard {
		t.Errorf("expected standard units by default, got %q", f.Units)
	}

	for i, r := range f.Records {
		want := list[i]
		if r.Timestamp != want["dt_txt"] {
			t.Errorf("record %d: timestamp %q, want %q", i, r.Timestamp, want["dt_txt"])
		}
		if r.Temperature != 280.0+float64(i) {
			t.Errorf("record %d: temperature %v", i, r.Temperature)
		}
		if r.TemperatureMin == nil || *r.TemperatureMin != 279.0+float64(i) {
			t.Errorf("record %d: temperature min %v", i, r.TemperatureMin)
		}
		if r.Condition != "Clouds" || r.Description != "broken clouds" || r.Icon != "04d" {
			t.Errorf("record %d: weather %q %q %q", i, r.Condition, r.Description, r.Icon)
		}
		if r.Humidity == nil || *r.Humidity != float64(60+i%20) {
			t.Errorf("record %d: humidity %v", i, r.Humidity)
		}
		if r.WindSpeed == nil || *r.WindSpeed != 3.5 {
			t.Errorf("record %d: wind %v", i, r.WindSpeed)
		}
		if i > 0 && r.Timestamp < f.Records[i-1].Timestamp {
			t.Errorf("record %d: timestamps decrease", i)
		}
		if !r.Time.Equal(start.Add(time.Duration(i) * 3 * time.Hour)) {
			t.Errorf("record %d: time %s", i, r.Time)
		}
	}
}

func TestFetchForecastOptionalFieldsMissing(t *testing.T) {
	body := `{"cod":"200","list":[{"dt_txt":"2026-10-19 00:00:00","main":{"temp":290.5},"weather":[{"main":"Clear"}]}]}`
	src, _ := newTestSource(t, http.StatusOK, body)

	f, err := src.FetchForecast(context.Background(), "Kolkata", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := f.Records[0]
	if r.TemperatureMin != nil || r.TemperatureMax != nil || r.Humidity != nil || r.Pressure != nil || r.WindSpeed != nil {
		t.Errorf("expected missing optional fields to be nil, got %+v", r)
	}
	if !r.Time.IsZero() {
		t.Errorf("expected zero time without dt, got %s", r.Time)
	}
	if f.Location() != "Kolkata" {
		t.Errorf("expected query fallback for location, got %q", f.Location())
	}
}

func TestFetchForecastNotFound(t *testing.T) {
	src, _ := newTestSource(t, http.StatusNotFound, `{"cod":"404","message":"city not found"}`)

	f, err := src.FetchForecast(context.Background(), "Atlantis", 3)
	if err == nil {
		t.Fatalf("expected error for unknown place, got %d records", len(f.Records))
	}
	if !errors.Is(err, datasource.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if !strings.Contains(err.Error(), "city not found") {
		t.Errorf("expected provider message in error, got %q", err.Error())
	}
}

func TestFetchForecastNotFoundInBody(t *testing.T) {
	src, _ := newTestSource(t, http.StatusOK, `{"cod":404,"message":"city not found"}`)

	_, err := src.FetchForecast(context.Background(), "Atlantis", 3)
	if !errors.Is(err, datasource.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFetchForecastUpstreamErrors(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusInternalServerError} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			src, _ := newTestSource(t, status, "upstream trouble")

			_, err := src.FetchForecast(context.Background(), "Kolkata", 1)
			var fe *datasource.FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected FetchError, got %v", err)
			}
			if fe.Kind != datasource.KindUpstream || fe.Status != status {
				t.Errorf("expected upstream/%d, got %s/%d", status, fe.Kind, fe.Status)
			}
		})
	}
}

func TestFetchForecastMalformed(t *testing.T) {
	tests := map[string]string{
		"not json":        `<html>oops</html>`,
		"no list":         `{"cod":"200"}`,
		"missing temp":    `{"cod":"200","list":[{"dt_txt":"2026-10-19 00:00:00","main":{},"weather":[{"main":"Clear"}]}]}`,
		"missing weather": `{"cod":"200","list":[{"dt_txt":"2026-10-19 00:00:00","main":{"temp":1}}]}`,
		"missing dt_txt":  `{"cod":"200","list":[{"main":{"temp":1},"weather":[{"main":"Clear"}]}]}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			src, _ := newTestSource(t, http.StatusOK, body)

			_, err := src.FetchForecast(context.Background(), "Kolkata", 1)
			if !errors.Is(err, datasource.ErrMalformed) {
				t.Fatalf("expected malformed, got %v", err)
			}
		})
	}
}

func TestFetchForecastIgnoresRecordsBeyondWindow(t *testing.T) {
	list := fakeList(8)
	list = append(list, map[string]any{"broken": true})
	src, _ := newTestSource(t, http.StatusOK, forecastBody(list))

	f, err := src.FetchForecast(context.Background(), "Kolkata", 1)
	if err != nil {
		t.Fatalf("expected entries outside the window not to be validated, got %v", err)
	}
	if len(f.Records) != 8 {
		t.Errorf("expected 8 records, got %d", len(f.Records))
	}
}

func TestFetchForecastNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	src := NewOpenWeatherMapForecastSource("secret-key", WithBaseURL(srv.URL))
	_, err := src.FetchForecast(context.Background(), "Kolkata", 1)
	if !errors.Is(err, datasource.ErrNetwork) {
		t.Fatalf("expected network failure, got %v", err)
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Errorf("error leaks the API key: %q", err.Error())
	}
}

func TestFetchForecastContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewOpenWeatherMapForecastSource("k", WithBaseURL(srv.URL))
	_, err := src.FetchForecast(ctx, "Kolkata", 1)
	if !errors.Is(err, datasource.ErrNetwork) {
		t.Fatalf("expected network failure, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled to be reachable, got %v", err)
	}
}

func TestFetchForecastTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	src := NewOpenWeatherMapForecastSource("k", WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond))
	_, err := src.FetchForecast(context.Background(), "Kolkata", 1)
	if !errors.Is(err, datasource.ErrNetwork) {
		t.Fatalf("expected network failure on timeout, got %v", err)
	}
}

func TestWithTimeoutLeavesCallerClientAlone(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}

	for name, opts := range map[string][]Option{
		"client first":  {WithHTTPClient(shared), WithTimeout(5 * time.Second)},
		"timeout first": {WithTimeout(5 * time.Second), WithHTTPClient(shared)},
	} {
		src := NewOpenWeatherMapForecastSource("k", opts...)
		if src.client.Timeout != 5*time.Second {
			t.Errorf("%s: expected 5s timeout, got %v", name, src.client.Timeout)
		}
		if src.client == shared {
			t.Errorf("%s: expected a copy of the caller's client", name)
		}
	}
	if shared.Timeout != time.Minute {
		t.Errorf("caller's client was modified: timeout %v", shared.Timeout)
	}
}

func TestWithHTTPClientKeptWithoutTimeout(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	src := NewOpenWeatherMapForecastSource("k", WithHTTPClient(shared))
	if src.client != shared {
		t.Error("expected the caller's client to be used as given")
	}
}
