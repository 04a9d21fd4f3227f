package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lukman83/carizon/internal/market"
	"github.com/lukman83/carizon/internal/models"
	"github.com/lukman83/carizon/internal/pricing"
)

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "₩0", formatPrice(0))
	assert.Equal(t, "₩950", formatPrice(950))
	assert.Equal(t, "₩1,000", formatPrice(1000))
	assert.Equal(t, "₩35,900,000", formatPrice(35_900_000))
	assert.Equal(t, "-₩300,000", formatPrice(-300_000))
	assert.Equal(t, "+₩300,000", formatDiff(300_000))
	assert.Equal(t, "±₩0", formatDiff(0))
	assert.Equal(t, "-", optPrice(nil))
	assert.Equal(t, "42,150 km", formatKm(42150))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "ENCAR", truncate("ENCAR", 10))
	assert.Equal(t, "그랜저 ...", truncate("그랜저 하이브리드", 7))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func TestCleanURL(t *testing.T) {
	assert.Equal(t, "https://www.kcar.com/bc/detail/123", cleanURL("https://www.kcar.com/bc/detail/123?utm_source=x#photos"))
	assert.Equal(t, "::bad", cleanURL("::bad"))
}

func TestPrintVehiclesTable(t *testing.T) {
	page := models.Page[market.VehicleView]{
		Content: []market.VehicleView{{
			VehicleRecord: models.VehicleRecord{
				ID: "GRAN-1", Plate: "12가3456", Maker: "HYUNDAI", Model: "GRANDEUR", Year: models.Int(2023),
				Mileage: models.Int(18000), Fuel: "Hybrid",
			},
			Summary: models.PriceSummary{
				Min: models.Int64(35_900_000), Max: models.Int64(36_200_000), Spread: models.Int64(300_000),
				CheapestSource: ptr("ENCAR"), Band: models.BandGood, PricedCount: 2, SourceCount: 2,
			},
		}},
		PageIndex: 1, PageSize: 5, TotalElements: 6, TotalPages: 2,
	}

	var buf bytes.Buffer
	printVehiclesTable(&buf, page)
	out := buf.String()
	assert.Contains(t, out, " 6. HYUNDAI GRANDEUR (2023)  12가3456")
	assert.Contains(t, out, "Price: ₩35,900,000 - ₩36,200,000  |  Cheapest: ENCAR  |  Spread: ₩300,000 [good]  |  2/2 priced")
	assert.Contains(t, out, "18,000 km · Hybrid")
	assert.Contains(t, out, "Page 2 of 2 (6 vehicles)")

	buf.Reset()
	printVehiclesTable(&buf, models.Page[market.VehicleView]{})
	assert.Equal(t, "No vehicles found.\n", buf.String())
}

func TestPrintDetail(t *testing.T) {
	observed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	d := &market.VehicleDetail{
		VehicleView: market.VehicleView{
			VehicleRecord: models.VehicleRecord{
				ID: "K5-2", Maker: "KIA", Model: "K5",
				Listings: []models.ListingPoint{
					{Source: "ENCAR", Price: models.Int64(22_600_000), URL: "https://fem.encar.com/cars/detail/1?src=list"},
					{Source: "KCAR"},
				},
			},
			Summary: models.PriceSummary{Min: models.Int64(22_600_000), Representative: models.Int64(22_600_000), PricedCount: 1, SourceCount: 2},
		},
		Comparisons: []market.ListingComparison{
			{Source: "ENCAR", Price: models.Int64(22_600_000), Diff: models.Int64(0), Cheapest: true},
			{Source: "KCAR"},
		},
		Series: []pricing.Series{{
			Source: "ENCAR",
			Points: []models.PricePoint{{Source: "ENCAR", Price: 23_000_000, ObservedAt: observed}},
		}},
	}

	var buf bytes.Buffer
	printDetail(&buf, d)
	out := buf.String()
	assert.Contains(t, out, "KIA K5\n")
	assert.Contains(t, out, "Typical: ₩22,600,000")
	assert.Contains(t, out, "[Cheapest]")
	assert.Contains(t, out, "https://fem.encar.com/cars/detail/1\n")
	assert.Contains(t, out, "History on ENCAR:")
	assert.Contains(t, out, "2024-03-01  ₩23,000,000")
}

func ptr(s string) *string { return &s }
