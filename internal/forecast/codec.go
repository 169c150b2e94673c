package forecast

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Delimiter is the column separator of RawDataFiles.
const Delimiter = ';'

// Row labels of the RawDataFile format.
const (
	labelSiteID      = "site_id"
	labelSiteName    = "site_name"
	labelModel       = "model"
	labelUpdated     = "updated"
	labelHours       = "hours"
	labelWind        = "wind_kn"
	labelGust        = "gust_kn"
	labelDirection   = "direction_deg"
	labelTemperature = "temperature_c"
	labelCloudHigh   = "cloud_high_pct"
	labelCloudMid    = "cloud_mid_pct"
	labelCloudLow    = "cloud_low_pct"
	labelPrecip      = "precip_mm"
)

// minRows is the smallest row count of a file holding one usable model block.
const minRows = 10

var (
	// ErrTooShort is returned when a RawDataFile has too few rows to hold a forecast.
	ErrTooShort = errors.New("raw data file too short")

	// ErrMissingSiteID is returned when the first row is not the site identifier.
	ErrMissingSiteID = errors.New("raw data file has no site_id row")
)

// WriteCSV encodes a site forecast as a RawDataFile.
func WriteCSV(w io.Writer, site *SiteForecast) error {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter

	records := [][]string{
		{labelSiteID, site.SiteID},
		{labelSiteName, site.SiteName},
	}
	for i := range site.Models {
		m := &site.Models[i]
		records = append(records,
			[]string{labelModel, m.Model},
			[]string{labelUpdated, m.Updated},
			series(labelHours, m.Hours),
			series(labelWind, m.Wind),
			series(labelGust, m.Gust),
			series(labelDirection, m.Direction),
			series(labelTemperature, m.Temperature),
			series(labelCloudHigh, m.CloudHigh),
			series(labelCloudMid, m.CloudMid),
			series(labelCloudLow, m.CloudLow),
			series(labelPrecip, m.Precip),
		)
	}

	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write raw data: %w", err)
	}
	return nil
}

func series(label string, values []string) []string {
	row := make([]string, 0, len(values)+1)
	row = append(row, label)
	return append(row, values...)
}

// ReadCSV decodes a RawDataFile.
func ReadCSV(r io.Reader) (*SiteForecast, error) {
	cr := csv.NewReader(r)
	cr.Comma = Delimiter
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse raw data: %w", err)
	}
	if len(rows) < minRows {
		return nil, fmt.Errorf("%w: %d rows", ErrTooShort, len(rows))
	}
	if len(rows[0]) < 2 || rows[0][0] != labelSiteID {
		return nil, ErrMissingSiteID
	}

	site := &SiteForecast{
		SiteID:   strings.TrimSpace(rows[0][1]),
		SiteName: "Site " + strings.TrimSpace(rows[0][1]),
	}

	var current *ModelForecast
	for _, row := range rows[1:] {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		label := strings.TrimSpace(row[0])
		values := row[1:]

		switch label {
		case labelSiteName:
			if len(values) > 0 && values[0] != "" {
				site.SiteName = values[0]
			}
		case labelModel:
			name := "unknown"
			if len(values) > 0 && values[0] != "" {
				name = values[0]
			}
			site.Models = append(site.Models, ModelForecast{Model: name})
			current = &site.Models[len(site.Models)-1]
		default:
			if current == nil {
				continue
			}
			assign(current, label, values)
		}
	}

	return site, nil
}

// assign stores a series row into the matching field of m.
// Unknown labels are ignored so older readers tolerate newer rows.
func assign(m *ModelForecast, label string, values []string) {
	switch label {
	case labelUpdated:
		if len(values) > 0 {
			m.Updated = values[0]
		}
	case labelHours:
		m.Hours = values
	case labelWind:
		m.Wind = values
	case labelGust:
		m.Gust = values
	case labelDirection:
		m.Direction = values
	case labelTemperature:
		m.Temperature = values
	case labelCloudHigh:
		m.CloudHigh = values
	case labelCloudMid:
		m.CloudMid = values
	case labelCloudLow:
		m.CloudLow = values
	case labelPrecip:
		m.Precip = values
	}
}
