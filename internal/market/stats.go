package market

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/lukman83/carizon/internal/pricing"
)

// SourceStats describes one platform's presence in the snapshot.
type SourceStats struct {
	Source   string `json:"source"`
	Listings int    `json:"listings"`
	Priced   int    `json:"priced"`
	MinPrice *int64 `json:"min_price"`
	MaxPrice *int64 `json:"max_price"`
	AvgPrice *int64 `json:"avg_price"`
	// Cheapest counts vehicles on which this platform has the lowest price.
	Cheapest int `json:"cheapest"`
}

// MakerStats counts vehicles per maker.
type MakerStats struct {
	Maker       string `json:"maker"`
	Vehicles    int    `json:"vehicles"`
	CheapestMin *int64 `json:"cheapest_min_price"`
}

// Sources aggregates listings per platform, busiest platform first.
// Platform names are grouped case-insensitively and reported in upper case.
func (s *Service) Sources(ctx context.Context) ([]SourceStats, error) {
	records, err := s.src.Vehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load vehicles from %s: %w", s.src.Name(), err)
	}

	byName := make(map[string]*SourceStats)
	sums := make(map[string]int64)
	get := func(name string) *SourceStats {
		key := strings.ToUpper(name)
		st, ok := byName[key]
		if !ok {
			st = &SourceStats{Source: key}
			byName[key] = st
		}
		return st
	}

	for _, r := range records {
		for _, l := range r.Listings {
			st := get(l.Source)
			st.Listings++
			if !l.HasPrice() {
				continue
			}
			p := *l.Price
			st.Priced++
			sums[st.Source] += p
			if st.MinPrice == nil || p < *st.MinPrice {
				st.MinPrice = &p
			}
			if st.MaxPrice == nil || p > *st.MaxPrice {
				st.MaxPrice = &p
			}
		}
		if src := pricing.CheapestSource(r.Listings); src != "" {
			get(src).Cheapest++
		}
	}

	out := make([]SourceStats, 0, len(byName))
	for _, st := range byName {
		if st.Priced > 0 {
			avg := sums[st.Source] / int64(st.Priced)
			st.AvgPrice = &avg
		}
		out = append(out, *st)
	}
	slices.SortFunc(out, func(a, b SourceStats) int {
		if c := cmp.Compare(b.Listings, a.Listings); c != 0 {
			return c
		}
		return cmp.Compare(a.Source, b.Source)
	})
	return out, nil
}

// Makers counts vehicles per maker, most common first. A non-empty query
// keeps makers whose name contains it, ignoring case.
func (s *Service) Makers(ctx context.Context, query string) ([]MakerStats, error) {
	records, err := s.src.Vehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load vehicles from %s: %w", s.src.Name(), err)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	byName := make(map[string]*MakerStats)
	for _, r := range records {
		maker := strings.TrimSpace(r.Maker)
		if maker == "" {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(maker), query) {
			continue
		}
		key := strings.ToUpper(maker)
		st, ok := byName[key]
		if !ok {
			st = &MakerStats{Maker: key}
			byName[key] = st
		}
		st.Vehicles++
		if p := pricing.MinPrice(r.Listings); p != nil && (st.CheapestMin == nil || *p < *st.CheapestMin) {
			st.CheapestMin = p
		}
	}

	out := make([]MakerStats, 0, len(byName))
	for _, st := range byName {
		out = append(out, *st)
	}
	slices.SortFunc(out, func(a, b MakerStats) int {
		if c := cmp.Compare(b.Vehicles, a.Vehicles); c != 0 {
			return c
		}
		return cmp.Compare(a.Maker, b.Maker)
	})
	return out, nil
}
