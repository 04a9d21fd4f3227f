// Package pricing derives cross-platform price summaries from listing sets.
// Every function is pure and safe for concurrent use.
package pricing

import (
	"errors"
	"fmt"
	"slices"

	"github.com/lukman83/carizon/internal/models"
)

// ErrInvalidThresholds is returned by Thresholds.Validate.
var ErrInvalidThresholds = errors.New("invalid spread thresholds")

// Thresholds are the spread band boundaries in currency units.
// A spread below Good is good, below Warn is warn, anything else is bad.
type Thresholds struct {
	Good int64
	Warn int64
}

// DefaultThresholds are the bands the first list page used (1M / 3M KRW).
var DefaultThresholds = Thresholds{Good: 1_000_000, Warn: 3_000_000}

// Validate checks that both bounds are non-negative and ordered.
func (t Thresholds) Validate() error {
	if t.Good < 0 || t.Warn < 0 {
		return fmt.Errorf("%w: negative bound (good=%d, warn=%d)", ErrInvalidThresholds, t.Good, t.Warn)
	}
	if t.Warn < t.Good {
		return fmt.Errorf("%w: warn %d below good %d", ErrInvalidThresholds, t.Warn, t.Good)
	}
	return nil
}

// Classify maps a spread onto its band.
func Classify(spread int64, th Thresholds) models.SpreadBand {
	switch {
	case spread < th.Good:
		return models.BandGood
	case spread < th.Warn:
		return models.BandWarn
	default:
		return models.BandBad
	}
}

// Summarize computes min, max, spread, cheapest source and band over the
// listings that carry a price. Listings without a price are ignored; an
// empty or fully unpriced set yields a summary with every pointer nil.
func Summarize(listings []models.ListingPoint, th Thresholds) models.PriceSummary {
	summary := models.PriceSummary{SourceCount: countSources(listings)}

	var minIdx, maxIdx = -1, -1
	for i, l := range listings {
		if !l.HasPrice() {
			continue
		}
		summary.PricedCount++
		if minIdx < 0 || *l.Price < *listings[minIdx].Price {
			minIdx = i
		}
		if maxIdx < 0 || *l.Price > *listings[maxIdx].Price {
			maxIdx = i
		}
	}
	if minIdx < 0 {
		return summary
	}

	lo, hi := *listings[minIdx].Price, *listings[maxIdx].Price
	spread := hi - lo
	cheapest := listings[minIdx].Source

	summary.Min = &lo
	summary.Max = &hi
	summary.Spread = &spread
	summary.CheapestSource = &cheapest
	summary.Representative = Representative(listings)
	summary.Band = Classify(spread, th)
	return summary
}

// MinPrice returns the lowest defined price, or nil.
func MinPrice(listings []models.ListingPoint) *int64 {
	var out *int64
	for _, l := range listings {
		if l.HasPrice() && (out == nil || *l.Price < *out) {
			p := *l.Price
			out = &p
		}
	}
	return out
}

// MaxPrice returns the highest defined price, or nil.
func MaxPrice(listings []models.ListingPoint) *int64 {
	var out *int64
	for _, l := range listings {
		if l.HasPrice() && (out == nil || *l.Price > *out) {
			p := *l.Price
			out = &p
		}
	}
	return out
}

// CheapestSource returns the source of the first listing carrying the
// minimum price, or "" when no price is known.
func CheapestSource(listings []models.ListingPoint) string {
	best := -1
	for i, l := range listings {
		if l.HasPrice() && (best < 0 || *l.Price < *listings[best].Price) {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return listings[best].Source
}

// Representative is the median of the defined prices. With an even count
// it is the floor of the mean of the two middle values.
func Representative(listings []models.ListingPoint) *int64 {
	prices := make([]int64, 0, len(listings))
	for _, l := range listings {
		if l.HasPrice() {
			prices = append(prices, *l.Price)
		}
	}
	if len(prices) == 0 {
		return nil
	}
	slices.Sort(prices)

	mid := len(prices) / 2
	median := prices[mid]
	if len(prices)%2 == 0 {
		median = prices[mid-1] + (prices[mid]-prices[mid-1])/2
	}
	return &median
}

// CompareToRepresentative rates a single listing against the representative
// price: equal is good, cheaper is warn, dearer is bad. Unpriced listings or
// an unknown representative yield BandNone.
func CompareToRepresentative(l models.ListingPoint, representative *int64) models.SpreadBand {
	if !l.HasPrice() || representative == nil {
		return models.BandNone
	}
	switch {
	case *l.Price == *representative:
		return models.BandGood
	case *l.Price < *representative:
		return models.BandWarn
	default:
		return models.BandBad
	}
}

func countSources(listings []models.ListingPoint) int {
	seen := make(map[string]struct{}, len(listings))
	for _, l := range listings {
		seen[l.Source] = struct{}{}
	}
	return len(seen)
}
