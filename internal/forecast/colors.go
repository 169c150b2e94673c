package forecast

import "fmt"

// rgb is a colour stop of the wind scale.
type rgb struct{ r, g, b float64 }

var (
	lightBlue = rgb{173, 216, 230}
	green     = rgb{50, 205, 50}
	orange    = rgb{255, 165, 0}
	red       = rgb{255, 0, 0}
)

// redMargin is how far above the good threshold the scale saturates, in knots.
const redMargin = 10

// WindColor returns the CSS background for a wind or gust speed, relative to
// the site criteria. Speeds more than 2 knots under medium get no colour.
//
// The scale fades in light blue up to medium, then blends to green at good,
// to orange at excellent, and to red at good+10.
func (c Criteria) WindColor(speed float64) string {
	faint := c.Medium - 2
	top := c.Good + redMargin

	switch {
	case speed < faint:
		return ""
	case speed < c.Medium:
		alpha := 0.3 + ratio(speed, faint, c.Medium)*0.4
		return fmt.Sprintf("background-color: rgba(%d, %d, %d, %.2f);",
			int(lightBlue.r), int(lightBlue.g), int(lightBlue.b), alpha)
	case speed < c.Good:
		return blend(lightBlue, green, ratio(speed, c.Medium, c.Good))
	case speed < c.Excellent:
		return blend(green, orange, ratio(speed, c.Good, c.Excellent))
	case speed < top:
		return blend(orange, red, ratio(speed, c.Excellent, top))
	default:
		return blend(red, red, 0)
	}
}

// WindCellColor colours a wind cell only when the direction is favourable.
func (c Criteria) WindCellColor(speed, direction string) string {
	v, err := parseValue(speed)
	if err != nil {
		return ""
	}
	d, err := parseValue(direction)
	if err != nil || !c.DirectionOK(d) {
		return ""
	}
	return c.WindColor(v)
}

// TemperatureColor returns the CSS text colour of a temperature cell.
func TemperatureColor(temp string) string {
	if temp == "" {
		return "#000000"
	}
	v, err := parseValue(temp)
	if err != nil {
		return "#000000"
	}
	switch {
	case v < 1:
		return "#8B008B"
	case v < 10:
		return "#0000FF"
	case v < 20:
		return "#87CEEB"
	case v < 25:
		return "#32CD32"
	case v < 30:
		return "#FFA500"
	case v < 35:
		return "#FF8C00"
	default:
		return "#FF0000"
	}
}

func ratio(v, lo, hi float64) float64 {
	if hi <= lo {
		return 1
	}
	return (v - lo) / (hi - lo)
}

func blend(from, to rgb, t float64) string {
	mix := func(a, b float64) int { return int(a + t*(b-a)) }
	return fmt.Sprintf("background-color: rgb(%d, %d, %d);",
		mix(from.r, to.r), mix(from.g, to.g), mix(from.b, to.b))
}
