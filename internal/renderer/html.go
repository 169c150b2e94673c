package renderer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/LeCoonEtSaBande/foil-report/internal/forecast"
	"github.com/LeCoonEtSaBande/foil-report/internal/model"
	"github.com/LeCoonEtSaBande/foil-report/internal/workdir"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(template.ParseFS(templateFS, "templates/report.html.tmpl"))

// HTMLRenderer renders the report with the embedded template.
type HTMLRenderer struct {
	sites    []Site
	criteria CriteriaSource
	logger   *slog.Logger
}

// NewHTMLRenderer creates a renderer. sites fixes the section order; sites
// found on disk but not listed are appended in ID order. criteria may be nil,
// in which case no hour is rated.
func NewHTMLRenderer(sites []Site, criteria CriteriaSource, logger *slog.Logger) *HTMLRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTMLRenderer{sites: sites, criteria: criteria, logger: logger}
}

// Render reads every RawDataFile and writes the report of the run.
func (r *HTMLRenderer) Render(ctx context.Context, rc model.RunContext, dir *workdir.Dir) (string, error) {
	name, raw, err := preflight(rc, dir)
	if err != nil {
		return "", err
	}

	forecasts := make(map[string]*forecast.SiteForecast, len(raw))
	for _, file := range raw {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		sf, err := readRawFile(dir, file)
		if err != nil {
			r.logger.Warn("skipping unreadable raw data file", "file", file, "error", err)
			continue
		}
		forecasts[sf.SiteID] = sf
	}
	if len(forecasts) == 0 {
		return "", ErrNoUsableData
	}

	view := pageView{
		Title:     "Foil Report " + rc.DisplayTime(),
		Generated: rc.DisplayTime(),
		Timezone:  rc.Timezone(),
	}
	for _, id := range r.order(forecasts) {
		view.Sites = append(view.Sites, r.siteView(forecasts[id], rc.Start))
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	if err := dir.WriteFileAtomic(name, buf.Bytes()); err != nil {
		return "", err
	}
	return name, nil
}

func readRawFile(dir *workdir.Dir, name string) (*forecast.SiteForecast, error) {
	f, err := dir.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sf, err := forecast.ReadCSV(f)
	if err != nil {
		return nil, err
	}
	if id, ok := workdir.SiteID(name); ok && sf.SiteID == "" {
		sf.SiteID = id
	}
	return sf, nil
}

// order returns the site IDs in report order.
func (r *HTMLRenderer) order(forecasts map[string]*forecast.SiteForecast) []string {
	ids := make([]string, 0, len(forecasts))
	known := make(map[string]bool, len(r.sites))
	for _, s := range r.sites {
		known[s.ID] = true
		if _, ok := forecasts[s.ID]; ok {
			ids = append(ids, s.ID)
		}
	}
	var extra []string
	for id := range forecasts {
		if !known[id] {
			extra = append(extra, id)
		}
	}
	slices.Sort(extra)
	return append(ids, extra...)
}

type pageView struct {
	Title     string
	Generated string
	Timezone  string
	Sites     []siteView
}

type siteView struct {
	ID           string
	Name         string
	UpdatedAROME string
	UpdatedWG    string
	Days         []dayView
}

type dayView struct {
	Label string
	Rows  []rowView
}

type cellView struct {
	Value string
	Style template.CSS
}

type rowView struct {
	Hour        string
	Night       bool
	AROME       bool
	Source      string
	Wind        cellView
	Gust        cellView
	Direction   string
	Arrow       template.CSS
	DirectionOK bool
	Temperature cellView
	CloudHigh   string
	CloudMid    string
	CloudLow    string
	Precip      string
	Stars       string
}

// siteView builds the rows of one site. Criteria are resolved per hour, so a
// forecast that crosses into another season is rated with that season.
func (r *HTMLRenderer) siteView(sf *forecast.SiteForecast, start time.Time) siteView {
	merged := forecast.Merge(sf)
	sv := siteView{
		ID:           sf.SiteID,
		Name:         sf.SiteName,
		UpdatedAROME: merged.UpdatedAROME,
		UpdatedWG:    merged.UpdatedWG,
	}

	for i, label := range merged.Hours {
		hour := forecast.ParseHour(label)

		var criteria forecast.Criteria
		rated := false
		if r.criteria != nil {
			criteria, rated = r.criteria.Criteria(sf.SiteID, int(hour.Month(start)))
		}

		row := rowView{
			Hour:        hourLabel(hour),
			Night:       hour.IsNight(),
			AROME:       merged.Source[i] == forecast.SourceAROME,
			Source:      merged.Source[i],
			Wind:        cellView{Value: merged.Wind[i]},
			Gust:        cellView{Value: merged.Gust[i]},
			Direction:   merged.Direction[i],
			Temperature: cellView{Value: merged.Temperature[i], Style: template.CSS("color: " + forecast.TemperatureColor(merged.Temperature[i]))}, //nolint:gosec // fixed palette
			CloudHigh:   merged.CloudHigh[i],
			CloudMid:    merged.CloudMid[i],
			CloudLow:    merged.CloudLow[i],
			Precip:      merged.Precip[i],
		}
		if deg, err := strconv.ParseFloat(strings.TrimSpace(row.Direction), 64); err == nil {
			// The down arrow points where the wind blows to.
			row.Arrow = template.CSS(fmt.Sprintf("transform: rotate(%ddeg)", int(forecast.NormalizeDegrees(deg)))) //nolint:gosec // numeric
		}

		if rated {
			row.DirectionOK = directionOK(criteria, row.Direction)
			row.Wind.Style = template.CSS(criteria.WindCellColor(row.Wind.Value, row.Direction)) //nolint:gosec // generated from numbers
			row.Gust.Style = template.CSS(criteria.WindCellColor(row.Gust.Value, row.Direction)) //nolint:gosec // generated from numbers
			stars, err := forecast.Rate(criteria, forecast.Sample{
				Hour:        hour,
				Wind:        row.Wind.Value,
				Gust:        row.Gust.Value,
				Direction:   row.Direction,
				Temperature: row.Temperature.Value,
				Precip:      row.Precip,
			})
			if err != nil {
				r.logger.Debug("hour not rated", "site", sf.SiteID, "hour", label, "error", err)
			}
			row.Stars = forecast.Stars(stars)
		}

		dayLabel := hour.DayLabel()
		if n := len(sv.Days); n == 0 || sv.Days[n-1].Label != dayLabel {
			sv.Days = append(sv.Days, dayView{Label: dayLabel})
		}
		sv.Days[len(sv.Days)-1].Rows = append(sv.Days[len(sv.Days)-1].Rows, row)
	}
	return sv
}

func directionOK(c forecast.Criteria, direction string) bool {
	deg, err := strconv.ParseFloat(strings.TrimSpace(direction), 64)
	if err != nil {
		return false
	}
	return c.DirectionOK(deg)
}

func hourLabel(h forecast.Hour) string {
	if !h.Valid {
		return h.Raw
	}
	return fmt.Sprintf("%02dh", h.Hour)
}
