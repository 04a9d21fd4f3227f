package pricing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/carizon/internal/models"
	"github.com/lukman83/carizon/internal/pricing"
)

func point(source string, price int64, day int) models.PricePoint {
	return models.PricePoint{
		Source:     source,
		Price:      price,
		ObservedAt: time.Date(2025, time.March, day, 9, 0, 0, 0, time.UTC),
	}
}

func TestHistory_OrdersByTime(t *testing.T) {
	points := []models.PricePoint{
		point("ENCAR", 300, 3),
		point("KCAR", 100, 1),
		point("ENCAR", 200, 2),
	}

	got := pricing.History(points, "")
	require.Len(t, got, 3)
	assert.Equal(t, int64(100), got[0].Price)
	assert.Equal(t, int64(200), got[1].Price)
	assert.Equal(t, int64(300), got[2].Price)
}

func TestHistory_FiltersSourceCaseInsensitive(t *testing.T) {
	points := []models.PricePoint{
		point("ENCAR", 300, 3),
		point("KCAR", 100, 1),
		point("ENCAR", 200, 2),
	}

	got := pricing.History(points, "encar")
	require.Len(t, got, 2)
	assert.Equal(t, int64(200), got[0].Price)
	assert.Equal(t, int64(300), got[1].Price)

	assert.Empty(t, pricing.History(points, "TCAR"))
}

func TestHistory_SameInstantKeepsInputOrder(t *testing.T) {
	points := []models.PricePoint{point("A", 1, 5), point("B", 2, 5), point("C", 3, 4)}

	got := pricing.History(points, "")
	require.Len(t, got, 3)
	assert.Equal(t, "C", got[0].Source)
	assert.Equal(t, "A", got[1].Source)
	assert.Equal(t, "B", got[2].Source)
}

func TestSeriesBySource(t *testing.T) {
	points := []models.PricePoint{
		point("KCAR", 120, 4),
		point("ENCAR", 300, 3),
		point("KCAR", 110, 1),
		point("ENCAR", 200, 2),
	}

	series := pricing.SeriesBySource(points)
	require.Len(t, series, 2)

	assert.Equal(t, "KCAR", series[0].Source)
	require.Len(t, series[0].Points, 2)
	assert.Equal(t, int64(110), series[0].Points[0].Price)
	assert.Equal(t, int64(120), series[0].Points[1].Price)

	assert.Equal(t, "ENCAR", series[1].Source)
	require.Len(t, series[1].Points, 2)
	assert.Equal(t, int64(200), series[1].Points[0].Price)

	assert.Empty(t, pricing.SeriesBySource(nil))
}
