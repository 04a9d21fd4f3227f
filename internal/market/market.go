// Package market answers the questions the CLI, REST and MCP surfaces ask:
// search, vehicle detail, price history and per-platform statistics.
package market

import (
	"context"
	"fmt"

	"github.com/lukman83/carizon/internal/catalog"
	"github.com/lukman83/carizon/internal/logger"
	"github.com/lukman83/carizon/internal/models"
	"github.com/lukman83/carizon/internal/platform"
	"github.com/lukman83/carizon/internal/pricing"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// VehicleView is a record with its derived price summary. The record's
// fields are flattened into the JSON object.
type VehicleView struct {
	models.VehicleRecord
	Summary models.PriceSummary `json:"summary"`
}

// ListingComparison places one listing against the representative price.
type ListingComparison struct {
	Source   string            `json:"source"`
	Price    *int64            `json:"price"`
	Diff     *int64            `json:"diff"`
	Band     models.SpreadBand `json:"band,omitempty"`
	Cheapest bool              `json:"cheapest"`
}

// VehicleDetail extends VehicleView with per-listing comparisons and the
// price history grouped by platform.
type VehicleDetail struct {
	VehicleView
	Comparisons []ListingComparison `json:"comparisons"`
	Series      []pricing.Series    `json:"series"`
}

// Options tune a Service. Zero values take the package defaults.
type Options struct {
	// Thresholds nil means pricing.DefaultThresholds. Zero bands are valid.
	Thresholds      *pricing.Thresholds
	DefaultPageSize int
	MaxPageSize     int
	DefaultSort     models.SortKey
	Log             logger.Logger
}

// Service is safe for concurrent use as long as its source is.
type Service struct {
	src  platform.Source
	opts Options
	th   pricing.Thresholds
	log  logger.Logger
}

// New returns a Service over src.
func New(src platform.Source, opts Options) (*Service, error) {
	th := pricing.DefaultThresholds
	if opts.Thresholds != nil {
		th = *opts.Thresholds
	}
	if err := th.Validate(); err != nil {
		return nil, err
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = MaxPageSize
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = min(DefaultPageSize, opts.MaxPageSize)
	}
	if opts.DefaultPageSize > opts.MaxPageSize {
		return nil, fmt.Errorf("default page size %d exceeds maximum %d", opts.DefaultPageSize, opts.MaxPageSize)
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Service{src: src, opts: opts, th: th, log: log}, nil
}

// SourceName reports the configured source.
func (s *Service) SourceName() string { return s.src.Name() }

// View summarizes one record.
func (s *Service) View(r models.VehicleRecord) VehicleView {
	if r.Listings == nil {
		r.Listings = []models.ListingPoint{}
	}
	return VehicleView{VehicleRecord: r, Summary: pricing.Summarize(r.Listings, s.th)}
}

// Search filters, sorts and pages the current snapshot. A zero pageSize
// takes the default; one above the maximum is an invalid argument. An empty
// sort key takes the configured default.
func (s *Service) Search(ctx context.Context, c models.FilterCriteria, pageIndex, pageSize int) (models.Page[VehicleView], error) {
	if pageSize == 0 {
		pageSize = s.opts.DefaultPageSize
	}
	if pageSize > s.opts.MaxPageSize {
		return models.Page[VehicleView]{}, fmt.Errorf("%w: page size %d exceeds maximum %d", catalog.ErrInvalidArgument, pageSize, s.opts.MaxPageSize)
	}
	if c.Sort == models.SortNone {
		c.Sort = s.opts.DefaultSort
	}
	// Reject bad criteria before paying for a snapshot.
	if err := catalog.Validate(c); err != nil {
		return models.Page[VehicleView]{}, err
	}
	if pageSize <= 0 {
		return models.Page[VehicleView]{}, fmt.Errorf("%w: page size must be positive, got %d", catalog.ErrInvalidArgument, pageSize)
	}

	records, err := s.src.Vehicles(ctx)
	if err != nil {
		return models.Page[VehicleView]{}, fmt.Errorf("load vehicles from %s: %w", s.src.Name(), err)
	}

	page, err := catalog.Query(records, c, pageIndex, pageSize)
	if err != nil {
		return models.Page[VehicleView]{}, err
	}
	s.log.Debug("search",
		logger.String("query", c.Query),
		logger.Int("matched", page.TotalElements),
		logger.Int("page", page.PageIndex),
	)

	views := make([]VehicleView, 0, len(page.Content))
	for _, r := range page.Content {
		views = append(views, s.View(r))
	}
	return models.Page[VehicleView]{
		Content:       views,
		PageIndex:     page.PageIndex,
		PageSize:      page.PageSize,
		TotalElements: page.TotalElements,
		TotalPages:    page.TotalPages,
		IsFirst:       page.IsFirst,
		IsLast:        page.IsLast,
	}, nil
}

// Detail looks up one vehicle by ID or plate.
func (s *Service) Detail(ctx context.Context, id string) (*VehicleDetail, error) {
	rec, err := platform.Find(ctx, s.src, id)
	if err != nil {
		return nil, err
	}

	view := s.View(*rec)
	detail := &VehicleDetail{
		VehicleView: view,
		Comparisons: make([]ListingComparison, 0, len(rec.Listings)),
		Series:      pricing.SeriesBySource(rec.History),
	}
	if detail.Series == nil {
		detail.Series = []pricing.Series{}
	}
	cheapest := pricing.CheapestSource(rec.Listings)
	for _, l := range rec.Listings {
		c := ListingComparison{
			Source:   l.Source,
			Price:    l.Price,
			Band:     pricing.CompareToRepresentative(l, view.Summary.Representative),
			Cheapest: cheapest != "" && l.Source == cheapest,
		}
		if l.Price != nil && view.Summary.Representative != nil {
			diff := *l.Price - *view.Summary.Representative
			c.Diff = &diff
		}
		detail.Comparisons = append(detail.Comparisons, c)
	}
	return detail, nil
}

// History returns one vehicle's price history in time order, optionally
// restricted to one platform.
func (s *Service) History(ctx context.Context, id, source string) ([]models.PricePoint, error) {
	rec, err := platform.Find(ctx, s.src, id)
	if err != nil {
		return nil, err
	}
	return pricing.History(rec.History, source), nil
}
