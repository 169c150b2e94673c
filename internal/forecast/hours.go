package forecast

import (
	"regexp"
	"strconv"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// hourPattern matches Windguru hour labels such as "Lu14.03h" or "Mo14.15h":
// a day abbreviation, the day of month, and the hour.
var hourPattern = regexp.MustCompile(`^([A-Za-z]+)(\d+)\.(\d+)h`)

// dayNames maps French and English two-letter abbreviations to French names.
var dayNames = map[string]string{
	"Lu": "lundi",
	"Ma": "mardi",
	"Me": "mercredi",
	"Je": "jeudi",
	"Ve": "vendredi",
	"Sa": "samedi",
	"Di": "dimanche",
	"Mo": "lundi",
	"Tu": "mardi",
	"We": "mercredi",
	"Th": "jeudi",
	"Fr": "vendredi",
	"Su": "dimanche",
}

var titleFrench = cases.Title(language.French)

// Hour is a parsed forecast hour label.
type Hour struct {
	// Raw is the label as found in the source.
	Raw string

	// Day is the French day name, title-cased ("Lundi").
	Day string

	// Date is the day of month.
	Date int

	// Hour is the hour of day.
	Hour int

	// Valid is false when Raw did not match the expected shape.
	Valid bool
}

// ParseHour parses a forecast hour label.
// Unknown day abbreviations are kept verbatim.
func ParseHour(label string) Hour {
	h := Hour{Raw: label}
	match := hourPattern.FindStringSubmatch(label)
	if match == nil {
		return h
	}

	date, err := strconv.Atoi(match[2])
	if err != nil {
		return h
	}
	hour, err := strconv.Atoi(match[3])
	if err != nil {
		return h
	}

	day := match[1]
	if name, ok := dayNames[day]; ok {
		day = titleFrench.String(name)
	}

	h.Day = day
	h.Date = date
	h.Hour = hour
	h.Valid = true
	return h
}

// DayLabel returns "Lundi 14", or the raw label if it could not be parsed.
func (h Hour) DayLabel() string {
	if !h.Valid {
		return h.Raw
	}
	return h.Day + " " + strconv.Itoa(h.Date)
}

// IsNight reports whether the hour is outside sailing daylight (20h to 7h).
// Unparsed labels count as daytime.
func (h Hour) IsNight() bool {
	if !h.Valid {
		return false
	}
	return h.Hour >= 20 || h.Hour <= 7
}

// Month returns the month of the hour, taken as the date closest to ref with
// the hour's day of month. Labels carry no month, and a forecast spans at most
// a few days around the run. Unparsed labels fall back to the month of ref.
func (h Hour) Month(ref time.Time) time.Month {
	if !h.Valid || h.Date < 1 {
		return ref.Month()
	}

	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	best, bestDist := ref.Month(), time.Duration(-1)
	for _, offset := range []int{-1, 0, 1} {
		first := time.Date(ref.Year(), ref.Month()+time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
		if h.Date > daysIn(first) {
			continue
		}
		candidate := first.AddDate(0, 0, h.Date-1)
		dist := candidate.Sub(day)
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = candidate.Month(), dist
		}
	}
	return best
}

func daysIn(first time.Time) int {
	return first.AddDate(0, 1, -1).Day()
}
