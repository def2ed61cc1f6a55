// Package dashboard turns fetched forecasts into the browser view: a
// current-conditions summary, a temperature or sky-condition view, a
// humidity trend and a detailed table.
package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"forecast-dashboard/datasource"
	"forecast-dashboard/models"
)

const (
	Title   = "WEATHER FORECAST"
	MinDays = 1
	MaxDays = 10
	// DefaultDays is what the form shows before the user moves the slider.
	DefaultDays = MinDays

	missing = "–"
)

// View selects what the main panel of the page shows.
type View string

const (
	ViewTemperature View = "Temperature"
	ViewSky         View = "Sky Condition"
)

// Views lists the selectable views in display order.
var Views = []View{ViewTemperature, ViewSky}

// ParseView accepts the query forms "temperature" and "sky" as well as
// the display names. Anything else means temperature.
func ParseView(s string) View {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sky", "sky condition", "sky_condition":
		return ViewSky
	default:
		return ViewTemperature
	}
}

// Param is the query string form of v.
func (v View) Param() string {
	if v == ViewSky {
		return "sky"
	}
	return "temperature"
}

type Summary struct {
	Time        string
	Temperature string
	Condition   string
	Description string
	Icon        string
	Humidity    string
	Wind        string
}

type Row struct {
	Time        string
	Temperature string
	Min         string
	Max         string
	Icon        string
	Condition   string
	Description string
	Humidity    string
	Pressure    string
	Wind        string
}

type Tile struct {
	Time      string
	Icon      string
	Condition string
}

// Page is the view model executed by the page template.
type Page struct {
	Title     string
	Subheader string
	Place     string
	Days      int
	View      View
	Views     []View
	MinDays   int
	MaxDays   int
	Location  string
	Provider  string
	// Charts is the rendered chart document, shown inline via srcdoc.
	Charts  string
	Summary *Summary
	Rows    []Row
	Tiles   []Tile
	Error   string
	Hint    string
}

// FormPage is the page shown before a place has been entered.
func FormPage(view View, days int) Page {
	return Page{
		Title:   Title,
		Days:    days,
		View:    view,
		Views:   Views,
		MinDays: MinDays,
		MaxDays: MaxDays,
	}
}

// Build computes the page for a fetched forecast. Temperatures are shown
// in °C converted from the forecast's own unit system.
func Build(f models.Forecast, view View, days int) Page {
	p := FormPage(view, days)
	p.Place = f.Place
	p.Subheader = Subheader(view, days, f.Place)
	p.Location = f.Location()
	p.Provider = f.Provider

	if len(f.Records) == 0 {
		p.Error = "The provider returned no forecast slots for this place."
		p.Hint = "Try again later."
		return p
	}

	first := f.Records[0]
	p.Summary = &Summary{
		Time:        first.Timestamp,
		Temperature: celsius(f.Units, &first.Temperature),
		Condition:   first.Condition,
		Description: first.Description,
		Icon:        SkyIcon(first.Condition),
		Humidity:    percent(first.Humidity),
		Wind:        speed(f.Units, first.WindSpeed),
	}

	p.Rows = make([]Row, 0, len(f.Records))
	p.Tiles = make([]Tile, 0, len(f.Records))
	for _, r := range f.Records {
		icon := SkyIcon(r.Condition)
		p.Rows = append(p.Rows, Row{
			Time:        r.Timestamp,
			Temperature: celsius(f.Units, &r.Temperature),
			Min:         celsius(f.Units, r.TemperatureMin),
			Max:         celsius(f.Units, r.TemperatureMax),
			Icon:        icon,
			Condition:   r.Condition,
			Description: r.Description,
			Humidity:    percent(r.Humidity),
			Pressure:    pressure(r.Pressure),
			Wind:        speed(f.Units, r.WindSpeed),
		})
		p.Tiles = append(p.Tiles, Tile{Time: r.Timestamp, Icon: icon, Condition: r.Condition})
	}
	return p
}

// ErrorPage reports a failed fetch with a message chosen by failure kind.
func ErrorPage(place string, view View, days int, err error) Page {
	p := FormPage(view, days)
	p.Place = place
	p.Subheader = Subheader(view, days, place)
	p.Error, p.Hint = Message(err)
	return p
}

// Message returns the user-facing text and hint for a fetch error.
func Message(err error) (string, string) {
	switch datasource.KindOf(err) {
	case datasource.KindNotFound:
		return "That place could not be found.", "Check the spelling or try a nearby city."
	case datasource.KindMalformed:
		return "The weather provider sent an unexpected response.", "Try again later."
	case datasource.KindUpstream:
		return "The weather provider refused the request.", "Try again later."
	default:
		return "The weather provider could not be reached.", "Try again later."
	}
}

func Subheader(view View, days int, place string) string {
	return fmt.Sprintf("%s for the next %d days in %s", view, days, place)
}

// SkyIcon maps a provider condition group to a glyph.
func SkyIcon(condition string) string {
	switch condition {
	case "Clear":
		return "☀️"
	case "Clouds":
		return "☁️"
	case "Rain", "Drizzle":
		return "🌧️"
	case "Thunderstorm":
		return "⛈️"
	case "Snow":
		return "❄️"
	case "Mist", "Fog", "Haze", "Smoke", "Dust", "Sand", "Ash":
		return "🌫️"
	case "Squall", "Tornado":
		return "🌪️"
	default:
		return "🌡️"
	}
}

func celsius(units models.Units, v *float64) string {
	if v == nil {
		return missing
	}
	return fmt.Sprintf("%.1f °C", units.Celsius(*v))
}

func percent(v *float64) string {
	if v == nil {
		return missing
	}
	return fmt.Sprintf("%.0f%%", *v)
}

func pressure(v *float64) string {
	if v == nil {
		return missing
	}
	return fmt.Sprintf("%.0f hPa", *v)
}

func speed(units models.Units, v *float64) string {
	if v == nil {
		return missing
	}
	if units == models.UnitsImperial {
		return fmt.Sprintf("%.1f mph", *v)
	}
	return fmt.Sprintf("%.1f m/s", *v)
}

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("index.html").ParseFS(templateFS, "templates/index.html"))

// Render writes p as a complete HTML document.
func Render(w io.Writer, p Page) error {
	return pageTemplate.Execute(w, p)
}
