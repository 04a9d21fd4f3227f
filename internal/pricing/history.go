package pricing

import (
	"slices"
	"strings"

	"github.com/lukman83/carizon/internal/models"
)

// Series is the price history of one platform.
type Series struct {
	Source string              `json:"source"`
	Points []models.PricePoint `json:"points"`
}

// History returns the points ordered by observation time, oldest first.
// A non-empty source restricts the result to that platform (case-insensitive).
// Points observed at the same instant keep their input order.
func History(points []models.PricePoint, source string) []models.PricePoint {
	out := make([]models.PricePoint, 0, len(points))
	for _, p := range points {
		if source != "" && !strings.EqualFold(p.Source, source) {
			continue
		}
		out = append(out, p)
	}
	slices.SortStableFunc(out, func(a, b models.PricePoint) int {
		return a.ObservedAt.Compare(b.ObservedAt)
	})
	return out
}

// SeriesBySource splits a history into one time-ordered series per platform,
// in order of each platform's first appearance in points.
func SeriesBySource(points []models.PricePoint) []Series {
	var out []Series
	index := make(map[string]int)
	for _, p := range points {
		if _, ok := index[p.Source]; !ok {
			index[p.Source] = len(out)
			out = append(out, Series{Source: p.Source})
		}
	}
	for _, p := range History(points, "") {
		i := index[p.Source]
		out[i].Points = append(out[i].Points, p)
	}
	return out
}
