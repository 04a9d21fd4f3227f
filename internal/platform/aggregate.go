package platform

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lukman83/carizon/internal/logger"
	"github.com/lukman83/carizon/internal/models"
)

// Aggregate fans out to several sources concurrently and merges their
// snapshots into one. Records describing the same vehicle (same ID, or same
// plate when the ID is missing) are combined; a listing source already seen
// for a vehicle is never added twice.
type Aggregate struct {
	Label         string
	Sources       []Source
	MaxConcurrent int
	RateLimiter   *rate.Limiter
	// Partial keeps the snapshots of healthy sources when others fail.
	Partial bool
	Log     logger.Logger
}

func (a *Aggregate) Name() string {
	if a.Label != "" {
		return a.Label
	}
	return "aggregate"
}

func (a *Aggregate) Vehicles(ctx context.Context) ([]models.VehicleRecord, error) {
	log := a.Log
	if log == nil {
		log = logger.Nop()
	}

	g, gctx := errgroup.WithContext(ctx)
	if a.MaxConcurrent > 0 {
		g.SetLimit(a.MaxConcurrent)
	}

	results := make([][]models.VehicleRecord, len(a.Sources))
	for i, src := range a.Sources {
		g.Go(func() error {
			if a.RateLimiter != nil {
				if err := a.RateLimiter.Wait(gctx); err != nil {
					return err
				}
			}
			records, err := src.Vehicles(gctx)
			if err != nil {
				if a.Partial && ctx.Err() == nil {
					log.Warn("source failed, continuing without it", logger.String("source", src.Name()), logger.Error(err))
					return nil
				}
				return fmt.Errorf("source %s: %w", src.Name(), err)
			}
			ReportProgress(ctx, "Fetched %d vehicles from %s", len(records), src.Name())
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := Merge(results...)
	log.Debug("merged snapshots", logger.Int("sources", len(a.Sources)), logger.Int("vehicles", len(merged)))
	return merged, nil
}

// Merge combines snapshots in argument order. The first snapshot to mention
// a vehicle fixes its position in the output and its descriptive fields;
// later snapshots only fill fields that are still empty and contribute
// listings and history for sources not yet present.
func Merge(snapshots ...[]models.VehicleRecord) []models.VehicleRecord {
	var out []models.VehicleRecord
	index := make(map[string]int)

	for _, snapshot := range snapshots {
		for _, rec := range snapshot {
			key := mergeKey(rec)
			i, ok := index[key]
			if key == "" || !ok {
				if key != "" {
					index[key] = len(out)
				}
				out = append(out, cloneRecord(rec))
				continue
			}
			mergeInto(&out[i], rec)
		}
	}
	return out
}

func mergeKey(r models.VehicleRecord) string {
	if r.ID != "" {
		return "id:" + r.ID
	}
	if r.Plate != "" {
		return "plate:" + strings.ReplaceAll(r.Plate, " ", "")
	}
	return ""
}

func cloneRecord(r models.VehicleRecord) models.VehicleRecord {
	r.Listings = dedupeListings(nil, r.Listings)
	r.History = append([]models.PricePoint(nil), r.History...)
	return r
}

func mergeInto(dst *models.VehicleRecord, src models.VehicleRecord) {
	fill := func(d *string, s string) {
		if *d == "" {
			*d = s
		}
	}
	fill(&dst.Plate, src.Plate)
	fill(&dst.Maker, src.Maker)
	fill(&dst.ModelGroup, src.ModelGroup)
	fill(&dst.Model, src.Model)
	fill(&dst.Trim, src.Trim)
	fill(&dst.Grade, src.Grade)
	fill(&dst.Color, src.Color)
	fill(&dst.Fuel, src.Fuel)
	fill(&dst.Transmission, src.Transmission)
	fill(&dst.BodyType, src.BodyType)
	fill(&dst.Region, src.Region)
	fill(&dst.AdvertStatus, src.AdvertStatus)
	if dst.Year == nil {
		dst.Year = src.Year
	}
	if dst.Mileage == nil {
		dst.Mileage = src.Mileage
	}
	dst.Listings = dedupeListings(dst.Listings, src.Listings)
	dst.History = append(dst.History, src.History...)
}

// dedupeListings appends the listings of add whose source is not yet in
// base, keeping the first occurrence of each source.
func dedupeListings(base, add []models.ListingPoint) []models.ListingPoint {
	seen := make(map[string]struct{}, len(base)+len(add))
	out := make([]models.ListingPoint, 0, len(base)+len(add))
	for _, l := range base {
		seen[strings.ToUpper(l.Source)] = struct{}{}
		out = append(out, l)
	}
	for _, l := range add {
		key := strings.ToUpper(l.Source)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}
