// Package catalog filters, orders and paginates vehicle snapshots.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/lukman83/carizon/internal/models"
	"github.com/lukman83/carizon/internal/pricing"
)

// ErrInvalidArgument is the only error the catalog raises: malformed
// pagination parameters, inverted ranges and unknown sort keys.
var ErrInvalidArgument = errors.New("invalid argument")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Validate rejects inverted or negative ranges and unknown sort keys.
func Validate(c models.FilterCriteria) error {
	for _, b := range []struct {
		name  string
		value *int64
	}{
		{"price_min", c.PriceMin},
		{"price_max", c.PriceMax},
		{"mileage_min", intBound(c.MileageMin)},
		{"mileage_max", intBound(c.MileageMax)},
		{"year_min", intBound(c.YearMin)},
		{"year_max", intBound(c.YearMax)},
	} {
		if b.value != nil && *b.value < 0 {
			return invalidf("%s %d is negative", b.name, *b.value)
		}
	}
	if c.PriceMin != nil && c.PriceMax != nil && *c.PriceMin > *c.PriceMax {
		return invalidf("price_min %d exceeds price_max %d", *c.PriceMin, *c.PriceMax)
	}
	if c.MileageMin != nil && c.MileageMax != nil && *c.MileageMin > *c.MileageMax {
		return invalidf("mileage_min %d exceeds mileage_max %d", *c.MileageMin, *c.MileageMax)
	}
	if c.YearMin != nil && c.YearMax != nil && *c.YearMin > *c.YearMax {
		return invalidf("year_min %d exceeds year_max %d", *c.YearMin, *c.YearMax)
	}
	if c.Sort != models.SortNone && !slices.Contains(models.SortKeys, c.Sort) {
		return invalidf("unknown sort key %q", c.Sort)
	}
	return nil
}

func intBound(v *int) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}

// Filter returns the records satisfying every specified criterion, ordered
// by c.Sort. The input slice is not modified and no record is copied in that
// was not already present.
func Filter(records []models.VehicleRecord, c models.FilterCriteria) ([]models.VehicleRecord, error) {
	if err := Validate(c); err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(c.Query))
	sources := lowerSet(c.Sources)

	out := make([]models.VehicleRecord, 0, len(records))
	for _, r := range records {
		if matches(r, c, terms, sources) {
			out = append(out, r)
		}
	}
	return Sort(out, c.Sort)
}

func matches(r models.VehicleRecord, c models.FilterCriteria, terms []string, sources map[string]struct{}) bool {
	if !containsFold(r.Maker, c.Maker) ||
		!containsFold(r.ModelGroup, c.ModelGroup) ||
		!containsFold(r.Model, c.Model) ||
		!containsFold(r.Trim, c.Trim) ||
		!containsFold(r.Grade, c.Grade) ||
		!containsFold(r.Color, c.Color) ||
		!containsFold(r.Fuel, c.Fuel) ||
		!containsFold(r.Transmission, c.Transmission) ||
		!containsFold(r.Region, c.Region) {
		return false
	}
	if !matchesQuery(r, terms) {
		return false
	}
	if c.PriceMin != nil || c.PriceMax != nil {
		if !inRange(pricing.MinPrice(r.Listings), c.PriceMin, c.PriceMax) {
			return false
		}
	}
	if !inRange(r.Mileage, c.MileageMin, c.MileageMax) {
		return false
	}
	if !inRange(r.Year, c.YearMin, c.YearMax) {
		return false
	}
	return matchesSources(r, sources)
}

// containsFold reports whether want is empty or a case-insensitive
// substring of field.
func containsFold(field, want string) bool {
	if want == "" {
		return true
	}
	return strings.Contains(strings.ToLower(field), strings.ToLower(want))
}

// matchesQuery requires every term to appear in at least one searchable field.
func matchesQuery(r models.VehicleRecord, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	fields := []string{r.Maker, r.ModelGroup, r.Model, r.Trim, r.Grade, r.Plate, r.ID}
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	for _, term := range terms {
		if !slices.ContainsFunc(fields, func(f string) bool { return strings.Contains(f, term) }) {
			return false
		}
	}
	return true
}

// inRange is fail-closed: a nil value never satisfies a specified bound.
func inRange[T int | int64](v, lo, hi *T) bool {
	if lo == nil && hi == nil {
		return true
	}
	if v == nil {
		return false
	}
	if lo != nil && *v < *lo {
		return false
	}
	if hi != nil && *v > *hi {
		return false
	}
	return true
}

func matchesSources(r models.VehicleRecord, sources map[string]struct{}) bool {
	if len(sources) == 0 {
		return true
	}
	for _, l := range r.Listings {
		if _, ok := sources[strings.ToLower(l.Source)]; ok {
			return true
		}
	}
	return false
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			set[strings.ToLower(v)] = struct{}{}
		}
	}
	return set
}
