package forecast

// Forecast model names as they appear in the Windguru legends.
const (
	ModelWG    = "WG"
	ModelAROME = "AROME 1.3km"
)

// ModelForecast is the hourly forecast of one model for one site.
// Every series is aligned with Hours; values are kept as the source text so
// an empty cell stays distinguishable from a zero.
type ModelForecast struct {
	Model       string
	Updated     string
	Hours       []string
	Wind        []string
	Gust        []string
	Direction   []string
	Temperature []string
	CloudHigh   []string
	CloudMid    []string
	CloudLow    []string
	Precip      []string
}

// Len returns the number of forecast hours.
func (m *ModelForecast) Len() int {
	return len(m.Hours)
}

// SiteForecast is everything fetched for one site in one run.
type SiteForecast struct {
	SiteID   string
	SiteName string
	Models   []ModelForecast
}

// Model returns the forecast of the named model, if present.
func (s *SiteForecast) Model(name string) (*ModelForecast, bool) {
	for i := range s.Models {
		if s.Models[i].Model == name {
			return &s.Models[i], true
		}
	}
	return nil, false
}

// MaxHours returns the longest series length over all models.
func (s *SiteForecast) MaxHours() int {
	n := 0
	for i := range s.Models {
		if l := s.Models[i].Len(); l > n {
			n = l
		}
	}
	return n
}
