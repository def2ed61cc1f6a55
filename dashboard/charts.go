package dashboard

import (
	"bytes"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"forecast-dashboard/models"
)

// gap is how echarts marks a missing point in a series.
const gap = "-"

// Series holds the chart data for one forecast, temperatures in °C.
type Series struct {
	Times       []string
	Temperature []opts.LineData
	Min         []opts.LineData
	Max         []opts.LineData
	Humidity    []opts.LineData
	hasMinMax   bool
}

// NewSeries extracts chart series from f. Missing values become gaps.
func NewSeries(f models.Forecast) Series {
	s := Series{
		Times:       make([]string, 0, len(f.Records)),
		Temperature: make([]opts.LineData, 0, len(f.Records)),
		Min:         make([]opts.LineData, 0, len(f.Records)),
		Max:         make([]opts.LineData, 0, len(f.Records)),
		Humidity:    make([]opts.LineData, 0, len(f.Records)),
	}
	for _, r := range f.Records {
		s.Times = append(s.Times, r.Timestamp)
		s.Temperature = append(s.Temperature, opts.LineData{Value: round1(f.Units.Celsius(r.Temperature))})
		s.Min = append(s.Min, point(f.Units, r.TemperatureMin))
		s.Max = append(s.Max, point(f.Units, r.TemperatureMax))
		if r.TemperatureMin != nil || r.TemperatureMax != nil {
			s.hasMinMax = true
		}
		if r.Humidity != nil {
			s.Humidity = append(s.Humidity, opts.LineData{Value: *r.Humidity})
		} else {
			s.Humidity = append(s.Humidity, opts.LineData{Value: gap})
		}
	}
	return s
}

func point(units models.Units, v *float64) opts.LineData {
	if v == nil {
		return opts.LineData{Value: gap}
	}
	return opts.LineData{Value: round1(units.Celsius(*v))}
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// Charts builds the chart page for f: the temperature chart for the
// temperature view and the humidity trend for every view.
func Charts(f models.Forecast, view View) *components.Page {
	s := NewSeries(f)

	page := components.NewPage()
	page.PageTitle = Title + " · " + f.Location()

	if view == ViewTemperature {
		temperature := charts.NewLine()
		temperature.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "960px", Height: "400px"}),
			charts.WithTitleOpts(opts.Title{Title: "Temperature", Subtitle: f.Location()}),
			charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
			charts.WithYAxisOpts(opts.YAxis{Name: "°C"}),
		)
		temperature.SetXAxis(s.Times).AddSeries("Temperature", s.Temperature)
		if s.hasMinMax {
			temperature.AddSeries("Min", s.Min).AddSeries("Max", s.Max)
		}
		page.AddCharts(temperature)
	}

	humidity := charts.NewLine()
	humidity.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "960px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Humidity", Subtitle: f.Location()}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "%"}),
	)
	humidity.SetXAxis(s.Times).AddSeries("Humidity", s.Humidity)
	page.AddCharts(humidity)

	return page
}

// RenderCharts writes the chart page for f as an HTML document.
func RenderCharts(w io.Writer, f models.Forecast, view View) error {
	return Charts(f, view).Render(w)
}

// ChartsDocument renders the chart page for f into a string so the
// dashboard can embed it without fetching the forecast a second time.
func ChartsDocument(f models.Forecast, view View) (string, error) {
	var buf bytes.Buffer
	if err := RenderCharts(&buf, f, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}
