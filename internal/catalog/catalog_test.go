package catalog_test

import (
	"github.com/lukman83/carizon/internal/models"
)

func priced(source string, price int64) models.ListingPoint {
	return models.ListingPoint{Source: source, Price: models.Int64(price)}
}

// fixture mirrors the demo data the list page was built against.
func fixture() []models.VehicleRecord {
	return []models.VehicleRecord{
		{
			ID: "GRAN-2023-50000-BLK-001", Plate: "12가3456",
			Maker: "HYUNDAI", Model: "GRANDEUR", Trim: "2.5 GDi",
			Year: models.Int(2023), Mileage: models.Int(50000), Color: "BLACK", Fuel: "Gasoline",
			Listings: []models.ListingPoint{priced("ENC", 35_900_000), priced("KBCAR", 36_200_000)},
		},
		{
			ID: "K5-2022-42000-WHT-002", Plate: "34나5678",
			Maker: "KIA", Model: "K5", Trim: "1.6T",
			Year: models.Int(2022), Mileage: models.Int(42000), Color: "WHITE", Fuel: "Gasoline",
			Listings: []models.ListingPoint{priced("KCAR", 22_900_000), priced("ENC", 22_600_000)},
		},
		{
			ID: "SORENTO-UNPRICED-003",
			Maker: "KIA", Model: "SORENTO", Trim: "2.2 Diesel",
			Color:    "GRAY",
			Listings: []models.ListingPoint{{Source: "TCAR"}},
		},
	}
}

func ids(records []models.VehicleRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
