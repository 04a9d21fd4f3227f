package models

import "time"

// ListingPoint is one platform's observation of a vehicle's price.
type ListingPoint struct {
	Source     string     `json:"source"`
	Price      *int64     `json:"price"`
	ObservedAt *time.Time `json:"observed_at,omitempty"`
	URL        string     `json:"url,omitempty"`
	Mileage    *int       `json:"mileage,omitempty"`
	Status     string     `json:"status,omitempty"`
}

// HasPrice reports whether the platform reported a price.
func (l ListingPoint) HasPrice() bool {
	return l.Price != nil
}

// PricePoint is a single historical price check for one platform listing.
type PricePoint struct {
	Source     string    `json:"source"`
	Price      int64     `json:"price"`
	ObservedAt time.Time `json:"observed_at"`
}

// VehicleRecord is the canonical vehicle entity. Records are read-only
// snapshots; min/max/cheapest prices are always derived from Listings.
type VehicleRecord struct {
	ID           string         `json:"id"`
	Plate        string         `json:"plate,omitempty"`
	Maker        string         `json:"maker,omitempty"`
	ModelGroup   string         `json:"model_group,omitempty"`
	Model        string         `json:"model,omitempty"`
	Trim         string         `json:"trim,omitempty"`
	Grade        string         `json:"grade,omitempty"`
	Year         *int           `json:"year,omitempty"`
	Mileage      *int           `json:"mileage,omitempty"`
	Color        string         `json:"color,omitempty"`
	Fuel         string         `json:"fuel,omitempty"`
	Transmission string         `json:"transmission,omitempty"`
	BodyType     string         `json:"body_type,omitempty"`
	Region       string         `json:"region,omitempty"`
	AdvertStatus string         `json:"advert_status,omitempty"`
	Listings     []ListingPoint `json:"listings"`
	History      []PricePoint   `json:"history,omitempty"`
}

// Key returns the identity used to merge observations of the same vehicle.
func (v VehicleRecord) Key() string {
	if v.ID != "" {
		return v.ID
	}
	return v.Plate
}

// Name joins maker, model and trim for display.
func (v VehicleRecord) Name() string {
	name := ""
	for _, part := range []string{v.Maker, v.Model, v.Trim} {
		if part == "" {
			continue
		}
		if name != "" {
			name += " "
		}
		name += part
	}
	return name
}

// SortKey selects the ordering applied after filtering.
type SortKey string

const (
	SortNone       SortKey = ""
	SortPriceAsc   SortKey = "price_asc"
	SortPriceDesc  SortKey = "price_desc"
	SortMileageAsc SortKey = "mileage_asc"
	SortYearDesc   SortKey = "year_desc"
)

// SortKeys lists every supported non-empty sort key.
var SortKeys = []SortKey{SortPriceAsc, SortPriceDesc, SortMileageAsc, SortYearDesc}

// FilterCriteria holds user-supplied constraints. Zero values impose no
// constraint.
type FilterCriteria struct {
	Query        string   `json:"q,omitempty"`
	Maker        string   `json:"maker,omitempty"`
	ModelGroup   string   `json:"model_group,omitempty"`
	Model        string   `json:"model,omitempty"`
	Trim         string   `json:"trim,omitempty"`
	Grade        string   `json:"grade,omitempty"`
	Color        string   `json:"color,omitempty"`
	Fuel         string   `json:"fuel,omitempty"`
	Transmission string   `json:"transmission,omitempty"`
	Region       string   `json:"region,omitempty"`
	PriceMin     *int64   `json:"price_min,omitempty"`
	PriceMax     *int64   `json:"price_max,omitempty"`
	MileageMin   *int     `json:"mileage_min,omitempty"`
	MileageMax   *int     `json:"mileage_max,omitempty"`
	YearMin      *int     `json:"year_min,omitempty"`
	YearMax      *int     `json:"year_max,omitempty"`
	Sources      []string `json:"sources,omitempty"`
	Sort         SortKey  `json:"sort,omitempty"`
}

// Page is one slice of an ordered result set.
type Page[T any] struct {
	Content       []T  `json:"content"`
	PageIndex     int  `json:"page_index"`
	PageSize      int  `json:"page_size"`
	TotalElements int  `json:"total_elements"`
	TotalPages    int  `json:"total_pages"`
	IsFirst       bool `json:"is_first"`
	IsLast        bool `json:"is_last"`
}

// SpreadBand classifies the gap between the cheapest and dearest listing.
type SpreadBand string

const (
	BandNone SpreadBand = ""
	BandGood SpreadBand = "good"
	BandWarn SpreadBand = "warn"
	BandBad  SpreadBand = "bad"
)

// PriceSummary is derived from a vehicle's listings. Pointer fields are nil
// when no listing carries a price.
type PriceSummary struct {
	Min            *int64     `json:"min"`
	Max            *int64     `json:"max"`
	Spread         *int64     `json:"spread"`
	CheapestSource *string    `json:"cheapest_source"`
	Representative *int64     `json:"representative"`
	Band           SpreadBand `json:"band,omitempty"`
	PricedCount    int        `json:"priced_count"`
	SourceCount    int        `json:"source_count"`
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
