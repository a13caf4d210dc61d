package amedas

import "sort"

// DefaultRankingLimit is the number of stations shown in a ranking.
const DefaultRankingLimit = 30

// Rank orders observations with valid data for the element by descending value.
// Ties are broken by station ID. A non-positive limit keeps every entry.
func Rank(observations []Observation, element Element, limit int) []Observation {
	ranked := make([]Observation, 0, len(observations))
	for _, obs := range observations {
		if obs.HasValidData(element) {
			ranked = append(ranked, obs)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		vi, _ := ranked[i].Value(element)
		vj, _ := ranked[j].Value(element)
		if vi == vj {
			return ranked[i].StationID < ranked[j].StationID
		}
		return vi > vj
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// ElementsWithData returns, in display order, the elements for which at least
// one observation in the series has valid data.
func ElementsWithData(series []Observation) []Element {
	var out []Element
	for _, e := range elements {
		for _, obs := range series {
			if obs.HasValidData(e) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// HourlySamples returns the on-the-hour samples of a series, newest first,
// at most n of them.
func HourlySamples(series []Observation, n int) []Observation {
	var out []Observation
	for i := len(series) - 1; i >= 0 && len(out) < n; i-- {
		t := series[i].Time
		if t.Minute() == 0 && t.Second() == 0 {
			out = append(out, series[i])
		}
	}
	return out
}
