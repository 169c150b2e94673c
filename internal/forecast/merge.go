package forecast

// Source labels of a merged hour.
const (
	SourceAROME = "AROME"
	SourceWG    = "WG"
)

// Merged is a single hourly series built from several models.
// AROME is preferred where it covers an hour; WG fills the remaining hours.
type Merged struct {
	Hours       []string
	Source      []string
	Wind        []string
	Gust        []string
	Direction   []string
	Temperature []string
	CloudHigh   []string
	CloudMid    []string
	CloudLow    []string
	Precip      []string

	UpdatedAROME string
	UpdatedWG    string
}

// Len returns the number of merged hours.
func (m *Merged) Len() int {
	return len(m.Hours)
}

// Merge combines the AROME and WG forecasts of a site.
// Hours keep AROME order first, then the WG hours AROME does not cover.
func Merge(site *SiteForecast) Merged {
	arome, _ := site.Model(ModelAROME)
	wg, _ := site.Model(ModelWG)
	if arome == nil {
		arome = &ModelForecast{}
	}
	if wg == nil {
		wg = &ModelForecast{}
	}

	aromeIdx := indexOf(arome.Hours)
	wgIdx := indexOf(wg.Hours)

	hours := make([]string, 0, len(arome.Hours)+len(wg.Hours))
	seen := make(map[string]bool, cap(hours))
	for _, list := range [][]string{arome.Hours, wg.Hours} {
		for _, h := range list {
			if seen[h] {
				continue
			}
			seen[h] = true
			hours = append(hours, h)
		}
	}

	m := Merged{
		Hours:        hours,
		Source:       make([]string, len(hours)),
		UpdatedAROME: arome.Updated,
		UpdatedWG:    wg.Updated,
	}

	pick := func(field func(*ModelForecast) []string) []string {
		out := make([]string, len(hours))
		for i, h := range hours {
			if idx, ok := aromeIdx[h]; ok {
				out[i] = at(field(arome), idx)
			} else if idx, ok := wgIdx[h]; ok {
				out[i] = at(field(wg), idx)
			}
		}
		return out
	}

	for i, h := range hours {
		if _, ok := aromeIdx[h]; ok {
			m.Source[i] = SourceAROME
		} else {
			m.Source[i] = SourceWG
		}
	}

	m.Wind = pick(func(f *ModelForecast) []string { return f.Wind })
	m.Gust = pick(func(f *ModelForecast) []string { return f.Gust })
	m.Direction = pick(func(f *ModelForecast) []string { return f.Direction })
	m.Temperature = pick(func(f *ModelForecast) []string { return f.Temperature })
	m.CloudHigh = pick(func(f *ModelForecast) []string { return f.CloudHigh })
	m.CloudMid = pick(func(f *ModelForecast) []string { return f.CloudMid })
	m.CloudLow = pick(func(f *ModelForecast) []string { return f.CloudLow })
	m.Precip = pick(func(f *ModelForecast) []string { return f.Precip })

	return m
}

// indexOf maps each hour label to its first position.
func indexOf(hours []string) map[string]int {
	idx := make(map[string]int, len(hours))
	for i, h := range hours {
		if _, ok := idx[h]; !ok {
			idx[h] = i
		}
	}
	return idx
}

func at(values []string, i int) string {
	if i < 0 || i >= len(values) {
		return ""
	}
	return values[i]
}
