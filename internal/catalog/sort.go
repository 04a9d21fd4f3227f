package catalog

import (
	"cmp"
	"slices"

	"github.com/lukman83/carizon/internal/models"
	"github.com/lukman83/carizon/internal/pricing"
)

// Sort returns a copy of records ordered by key. Records with no value for
// the key sort last in every direction; ties keep input order. SortNone
// keeps the input order.
func Sort(in []models.VehicleRecord, key models.SortKey) ([]models.VehicleRecord, error) {
	records := slices.Clone(in)
	switch key {
	case models.SortNone:
		return records, nil
	case models.SortPriceAsc, models.SortPriceDesc:
		// Derive once per record rather than on every comparison.
		keyed := make([]keyedRecord, len(records))
		for i := range records {
			keyed[i] = keyedRecord{rec: records[i], price: pricing.MinPrice(records[i].Listings)}
		}
		desc := key == models.SortPriceDesc
		slices.SortStableFunc(keyed, func(a, b keyedRecord) int {
			return compareNullsLast(a.price, b.price, desc)
		})
		for i := range keyed {
			records[i] = keyed[i].rec
		}
		return records, nil
	case models.SortMileageAsc:
		slices.SortStableFunc(records, func(a, b models.VehicleRecord) int {
			return compareNullsLast(a.Mileage, b.Mileage, false)
		})
		return records, nil
	case models.SortYearDesc:
		slices.SortStableFunc(records, func(a, b models.VehicleRecord) int {
			return compareNullsLast(a.Year, b.Year, true)
		})
		return records, nil
	default:
		return nil, invalidf("unknown sort key %q", key)
	}
}

type keyedRecord struct {
	rec   models.VehicleRecord
	price *int64
}

func compareNullsLast[T cmp.Ordered](a, b *T, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case desc:
		return cmp.Compare(*b, *a)
	default:
		return cmp.Compare(*a, *b)
	}
}
