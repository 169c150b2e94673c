package fetcher

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/LeCoonEtSaBande/foil-report/internal/forecast"
	"github.com/PuerkitoBio/goquery"
)

// Layout of a Windguru forecast table.
const (
	// minTableRows is the smallest table that holds all the rows we read.
	minTableRows = 7

	// waveTableRows marks tables carrying three extra wave rows between
	// direction and temperature.
	waveTableRows = 12
	waveOffset    = 3

	rowHours     = 0
	rowWind      = 1
	rowGust      = 2
	rowDirection = 3
	rowTemp      = 4
	rowClouds    = 5
	rowPrecip    = 6
)

// ParseForecastPage extracts the WG and AROME forecasts from a rendered
// Windguru spot page. updated is stored as the update label of each model.
// A page without a usable WG table returns ErrNoWGModel.
func ParseForecastPage(r io.Reader, siteID, updated string) (*forecast.SiteForecast, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	site := &forecast.SiteForecast{
		SiteID:   siteID,
		SiteName: strings.TrimSpace(doc.Find(".spot-name").First().Text()),
	}

	var wg, arome *forecast.ModelForecast
	var pending string

	// Legends and tables in document order: each legend claims the next table.
	doc.Find("div.nadlegend, table.tabulka").Each(func(_ int, s *goquery.Selection) {
		if s.Is("div.nadlegend") {
			legend := strings.ToLower(strings.TrimSpace(s.Text()))
			switch {
			case strings.Contains(legend, "wg") && wg == nil:
				pending = forecast.ModelWG
			case strings.Contains(legend, "arome") && arome == nil:
				pending = forecast.ModelAROME
			default:
				pending = ""
			}
			return
		}
		if pending == "" {
			return
		}
		m := extractTable(s, pending, updated)
		switch pending {
		case forecast.ModelWG:
			wg = m
		case forecast.ModelAROME:
			arome = m
		}
		pending = ""
	})

	if wg == nil {
		return nil, fmt.Errorf("site %s: %w", siteID, ErrNoWGModel)
	}
	site.Models = append(site.Models, *wg)
	if arome != nil {
		site.Models = append(site.Models, *arome)
	}
	return site, nil
}

// extractTable reads one forecast table. It returns nil for tables too short
// to hold a forecast.
func extractTable(table *goquery.Selection, model, updated string) *forecast.ModelForecast {
	rows := table.Find("tr")
	if rows.Length() < minTableRows {
		return nil
	}
	offset := 0
	if rows.Length() >= waveTableRows {
		offset = waveOffset
	}
	// The wave offset must not push the last row out of the table.
	if rowPrecip+offset >= rows.Length() {
		offset = 0
	}

	m := &forecast.ModelForecast{
		Model:       model,
		Updated:     updated,
		Hours:       cellTexts(rows.Eq(rowHours)),
		Wind:        cellTexts(rows.Eq(rowWind)),
		Gust:        cellTexts(rows.Eq(rowGust)),
		Direction:   directions(rows.Eq(rowDirection)),
		Temperature: cellTexts(rows.Eq(rowTemp + offset)),
		Precip:      cellTexts(rows.Eq(rowPrecip + offset)),
	}

	rows.Eq(rowClouds+offset).Find("td").Each(func(_ int, td *goquery.Selection) {
		layers := td.Find("div.clouds")
		m.CloudHigh = append(m.CloudHigh, strings.TrimSpace(layers.Eq(0).Text()))
		m.CloudMid = append(m.CloudMid, strings.TrimSpace(layers.Eq(1).Text()))
		m.CloudLow = append(m.CloudLow, strings.TrimSpace(layers.Eq(2).Text()))
	})

	return m
}

func cellTexts(row *goquery.Selection) []string {
	return row.Find("td").Map(func(_ int, td *goquery.Selection) string {
		return strings.TrimSpace(td.Text())
	})
}

// directions reads the wind arrows of a row. Each arrow is an SVG group
// rotated by the direction the wind blows to, so the direction it comes
// from is the angle minus 180°.
func directions(row *goquery.Selection) []string {
	return row.Find("g").Map(func(_ int, g *goquery.Selection) string {
		transform, ok := g.Attr("transform")
		if !ok {
			return ""
		}
		_, after, found := strings.Cut(transform, "rotate(")
		if !found {
			return ""
		}
		raw, _, _ := strings.Cut(after, ",")
		raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), ")"))
		angle, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return raw
		}
		deg := forecast.NormalizeDegrees(math.Trunc(angle - 180))
		return strconv.Itoa(int(deg))
	})
}
