package config

import (
	"fmt"
	"slices"

	"github.com/LeCoonEtSaBande/foil-report/internal/forecast"
	"github.com/LeCoonEtSaBande/foil-report/internal/workdir"
)

// WindThresholds are the mean wind speeds, in knots, that make a session
// medium, good or excellent.
type WindThresholds struct {
	Medium    float64 `yaml:"medium"`
	Good      float64 `yaml:"good"`
	Excellent float64 `yaml:"excellent"`
}

// Season overrides the criteria of a site for some months of the year.
type Season struct {
	// Months are 1-12. The first season containing the run month wins.
	Months []int `yaml:"months"`

	// Directions replaces the site directions when not empty.
	Directions [][]float64 `yaml:"directions,omitempty"`

	// Wind replaces the site thresholds when set.
	Wind *WindThresholds `yaml:"wind,omitempty"`
}

// SiteConfig describes one forecast spot.
type SiteConfig struct {
	// ID is the Windguru spot identifier.
	ID string `yaml:"id"`

	// Name is shown when the page does not provide one.
	Name string `yaml:"name,omitempty"`

	// Directions are favourable sectors as [from, to] pairs in degrees.
	// A pair with from > to wraps through north.
	Directions [][]float64 `yaml:"directions,omitempty"`

	// Wind holds the rating thresholds.
	Wind WindThresholds `yaml:"wind"`

	// Seasons are optional per-month overrides.
	Seasons []Season `yaml:"seasons,omitempty"`
}

// Criteria returns the rating criteria in force for the given month.
func (s SiteConfig) Criteria(month int) forecast.Criteria {
	dirs := s.Directions
	wind := s.Wind
	for _, season := range s.Seasons {
		if !slices.Contains(season.Months, month) {
			continue
		}
		if len(season.Directions) > 0 {
			dirs = season.Directions
		}
		if season.Wind != nil {
			wind = *season.Wind
		}
		break
	}

	c := forecast.Criteria{
		Medium:    wind.Medium,
		Good:      wind.Good,
		Excellent: wind.Excellent,
	}
	for _, d := range dirs {
		if len(d) == 2 {
			c.Directions = append(c.Directions, forecast.DirectionRange{From: d[0], To: d[1]})
		}
	}
	return c
}

// Validate checks the site ID, direction pairs and thresholds, including
// every seasonal override.
func (s SiteConfig) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidSite)
	}
	if !workdir.ValidSiteID(s.ID) {
		return fmt.Errorf("%w %q: id may only contain letters, digits and dashes", ErrInvalidSite, s.ID)
	}
	if err := validateDirections(s.ID, s.Directions); err != nil {
		return err
	}
	if err := s.Criteria(0).Validate(); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidSite, s.ID, err)
	}
	for _, season := range s.Seasons {
		if len(season.Months) == 0 {
			return fmt.Errorf("%w %q: season without months", ErrInvalidSite, s.ID)
		}
		for _, m := range season.Months {
			if m < 1 || m > 12 {
				return fmt.Errorf("%w %q: month %d out of range", ErrInvalidSite, s.ID, m)
			}
		}
		if err := validateDirections(s.ID, season.Directions); err != nil {
			return err
		}
		if err := s.Criteria(season.Months[0]).Validate(); err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidSite, s.ID, err)
		}
	}
	return nil
}

func validateDirections(id string, dirs [][]float64) error {
	for _, d := range dirs {
		if len(d) != 2 {
			return fmt.Errorf("%w %q: direction range must be [from, to], got %v", ErrInvalidSite, id, d)
		}
		for _, deg := range d {
			if deg < 0 || deg > 360 {
				return fmt.Errorf("%w %q: direction %g out of range", ErrInvalidSite, id, deg)
			}
		}
	}
	return nil
}

// DefaultSites returns the spots reported when no configuration file lists any.
func DefaultSites() []SiteConfig {
	northSouth := [][]float64{{320, 40}, {140, 220}}
	return []SiteConfig{
		{ID: "72305", Name: "Le Grand Large", Directions: northSouth, Wind: WindThresholds{9, 11, 15}},
		{ID: "193", Name: "Chasse-sur-Rhône", Directions: [][]float64{{140, 220}}, Wind: WindThresholds{12, 15, 18}},
		{ID: "314", Name: "Lac de Monteynard", Directions: northSouth, Wind: WindThresholds{9, 12, 15}},
		{ID: "28061", Name: "Lac du Bourget", Directions: northSouth, Wind: WindThresholds{12, 15, 18}},
		{ID: "179", Name: "Lac Léman", Directions: [][]float64{{320, 40}}, Wind: WindThresholds{14, 17, 20}},
		{ID: "14", Name: "L'Almanarre", Directions: [][]float64{{50, 130}, {230, 310}}, Wind: WindThresholds{9, 11, 15}},
	}
}
