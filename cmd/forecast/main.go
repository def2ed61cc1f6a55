// Command forecast prints the 3-hour forecast slots for a place.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"forecast-dashboard/dashboard"
	"forecast-dashboard/datasource"
	"forecast-dashboard/models"
	"forecast-dashboard/providers/openweathermap"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("forecast", flag.ContinueOnError)
	fs.SetOutput(stderr)

	defaultTimeout, err := envDuration("HTTP_TIMEOUT", 10*time.Second)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	var (
		place   = fs.String("place", "Kolkata", "Place to fetch the forecast for")
		days    = fs.Int("days", 3, "Number of days to forecast (1-10)")
		apiKey  = fs.String("key", "", "OpenWeatherMap API key (overrides OWM_API_KEY env)")
		units   = fs.String("units", os.Getenv("OWM_UNITS"), "Unit system: standard, metric or imperial")
		baseURL = fs.String("base-url", envOr("OWM_BASE_URL", openweathermap.DefaultBaseURL), "Provider base URL")
		timeout = fs.Duration("timeout", defaultTimeout, "HTTP request timeout, 0 disables it (default from HTTP_TIMEOUT)")
		asJSON  = fs.Bool("json", false, "Print the records as JSON")
		verbose = fs.Bool("v", false, "Log requests to stderr")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	key := resolveAPIKey(*apiKey)
	if key == "" {
		fmt.Fprintln(stderr, "error: API key is required. Use -key flag or set OWM_API_KEY environment variable.")
		return 1
	}
	if *days < dashboard.MinDays || *days > dashboard.MaxDays {
		fmt.Fprintf(stderr, "error: -days must be between %d and %d\n", dashboard.MinDays, dashboard.MaxDays)
		return 1
	}
	if !models.Units(*units).Valid() {
		fmt.Fprintf(stderr, "error: unknown units %q\n", *units)
		return 1
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	source := openweathermap.NewOpenWeatherMapForecastSource(key,
		openweathermap.WithBaseURL(*baseURL),
		openweathermap.WithUnits(models.Units(*units)),
		openweathermap.WithTimeout(*timeout),
		openweathermap.WithLogger(logger),
	)

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	forecast, err := source.FetchForecast(ctx, *place, *days)
	if err != nil {
		msg, hint := dashboard.Message(err)
		fmt.Fprintf(stderr, "error: %s %s\n", msg, hint)
		var fe *datasource.FetchError
		if errors.As(err, &fe) {
			logger.Debug("fetch failed", "error", fe)
		}
		return 1
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(forecast); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	printForecast(stdout, forecast)
	return 0
}

// resolveAPIKey returns the API key following the priority chain:
// flag > environment variable > empty string.
func resolveAPIKey(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("OWM_API_KEY")
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func printForecast(w io.Writer, f models.Forecast) {
	fmt.Fprintf(w, "\n%s  Forecast for %s (%d slots)\n\n", dashboard.Title, f.Location(), len(f.Records))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTEMP\tSKY\tHUMIDITY\tWIND")
	for _, r := range f.Records {
		fmt.Fprintf(tw, "%s\t%.1f °C\t%s %s\t%s\t%s\n",
			r.Timestamp,
			f.Units.Celsius(r.Temperature),
			dashboard.SkyIcon(r.Condition), r.Condition,
			optional(r.Humidity, "%.0f%%"),
			optional(r.WindSpeed, "%.1f"),
		)
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
