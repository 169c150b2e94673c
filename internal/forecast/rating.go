package forecast

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxStars is the best possible rating.
const MaxStars = 3

// minTemperature is the coldest temperature still worth rating, in °C.
const minTemperature = 5

// ErrInvalidCriteria is returned when wind thresholds are not increasing.
var ErrInvalidCriteria = errors.New("invalid criteria: thresholds must satisfy 0 < medium <= good <= excellent")

// DirectionRange is a favourable wind direction sector in degrees.
// When From > To the sector wraps through north (e.g. 320 to 40).
type DirectionRange struct {
	From float64
	To   float64
}

// Contains reports whether deg lies inside the sector, bounds included.
func (r DirectionRange) Contains(deg float64) bool {
	deg = NormalizeDegrees(deg)
	if r.From <= r.To {
		return deg >= r.From && deg <= r.To
	}
	return deg >= r.From || deg <= r.To
}

// NormalizeDegrees maps any angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Criteria are the conditions a spot needs to be worth the trip.
// Thresholds are mean wind speeds in knots.
type Criteria struct {
	Directions []DirectionRange
	Medium     float64
	Good       float64
	Excellent  float64
}

// Validate checks that the thresholds are positive and increasing.
func (c Criteria) Validate() error {
	if c.Medium <= 0 || c.Medium > c.Good || c.Good > c.Excellent {
		return fmt.Errorf("%w (got %g/%g/%g)", ErrInvalidCriteria, c.Medium, c.Good, c.Excellent)
	}
	return nil
}

// DirectionOK reports whether deg is inside any favourable sector.
// A spot without sectors accepts every direction.
func (c Criteria) DirectionOK(deg float64) bool {
	if len(c.Directions) == 0 {
		return true
	}
	for _, r := range c.Directions {
		if r.Contains(deg) {
			return true
		}
	}
	return false
}

// WindScore rates wind and gusts alone, from 0 to 3.
func (c Criteria) WindScore(wind, gust float64) int {
	switch {
	case wind >= c.Excellent:
		return 3
	case wind >= c.Good && gust >= c.Excellent:
		return 2
	case (wind >= c.Medium && gust > c.Good) || (wind >= c.Good && gust < c.Excellent):
		return 1
	default:
		return 0
	}
}

// Sample is one forecast hour as read from a RawDataFile.
type Sample struct {
	Hour        Hour
	Wind        string
	Gust        string
	Direction   string
	Temperature string
	Precip      string
}

// Rate scores a forecast hour from 0 to MaxStars.
//
// The rating is the product of five factors: the wind score, a favourable
// direction, daylight, no precipitation, and a temperature of at least 5°C.
// Any factor at zero makes the hour unrated.
func Rate(c Criteria, s Sample) (int, error) {
	wind, err := parseValue(s.Wind)
	if err != nil {
		return 0, err
	}
	gust, err := parseValue(s.Gust)
	if err != nil {
		return 0, err
	}
	dir, err := parseValue(s.Direction)
	if err != nil {
		return 0, err
	}
	temp, err := parseValue(s.Temperature)
	if err != nil {
		return 0, err
	}
	precip, err := parseValue(s.Precip)
	if err != nil {
		return 0, err
	}

	score := c.WindScore(wind, gust)
	if !c.DirectionOK(dir) || s.Hour.IsNight() || precip != 0 || temp < minTemperature {
		return 0, nil
	}
	return min(score, MaxStars), nil
}

// Stars renders a rating as star glyphs.
func Stars(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("⭐", min(n, MaxStars))
}

// parseValue reads a numeric cell. Empty cells read as zero.
func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value %q: %w", s, err)
	}
	return v, nil
}
