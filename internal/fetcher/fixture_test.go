package fetcher

import (
	"fmt"
	"strings"
)

// tableHTML builds a forecast table. With waves, three wave rows sit between
// direction and temperature and two more rows close the table.
func tableHTML(hours, wind, gust, rotate, temp, precip []string, waves bool) string {
	var b strings.Builder
	b.WriteString(`<table class="tabulka">`)
	row := func(cells []string) {
		b.WriteString("<tr>")
		for _, c := range cells {
			fmt.Fprintf(&b, "<td>%s</td>", c)
		}
		b.WriteString("</tr>")
	}
	row(hours)
	row(wind)
	row(gust)

	b.WriteString("<tr>")
	for _, r := range rotate {
		fmt.Fprintf(&b, `<td><svg><g transform="rotate(%s, 50, 50)"><path/></g></svg></td>`, r)
	}
	b.WriteString("</tr>")

	if waves {
		row([]string{"1.2", "1.3"})
		row([]string{"7", "8"})
		row([]string{"W", "W"})
	}
	row(temp)

	b.WriteString("<tr>")
	for range hours {
		b.WriteString(`<td><div class="clouds">10</div><div class="clouds">20</div><div class="clouds"></div></td>`)
	}
	b.WriteString("</tr>")

	row(precip)
	if waves {
		row([]string{"", ""})
		row([]string{"", ""})
	}
	b.WriteString("</table>")
	return b.String()
}

func forecastPage(name string, withWG, withAROME bool) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><body>")
	if name != "" {
		fmt.Fprintf(&b, `<div class="spot-name"> %s </div>`, name)
	}
	if withWG {
		b.WriteString(`<div class="nadlegend">GFS 13 km / WG</div>`)
		b.WriteString(tableHTML(
			[]string{"Me01.09h", "Me01.12h"},
			[]string{"8", "14"},
			[]string{"12", "19"},
			[]string{"360", "170"},
			[]string{"14", "19"},
			[]string{"", "0.3"},
			false,
		))
	}
	if withAROME {
		b.WriteString(`<div class="nadlegend">AROME 1.3 km</div>`)
		b.WriteString(tableHTML(
			[]string{"Me01.12h", "Me01.13h"},
			[]string{"15", "16"},
			[]string{"20", "21"},
			[]string{"190.5", "200"},
			[]string{"20", "21"},
			[]string{"", ""},
			true,
		))
	}
	b.WriteString("</body></html>")
	return b.String()
}
