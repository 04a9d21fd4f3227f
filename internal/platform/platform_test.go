package platform_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/lukman83/carizon/internal/models"
	"github.com/lukman83/carizon/internal/platform"
)

func priced(source string, price int64) models.ListingPoint {
	return models.ListingPoint{Source: source, Price: models.Int64(price)}
}

type failingSource struct{ name string }

func (f failingSource) Name() string { return f.name }

func (f failingSource) Vehicles(context.Context) ([]models.VehicleRecord, error) {
	return nil, errors.New("upstream unavailable")
}

type finderSource struct {
	platform.Static
	lookups int
}

func (f *finderSource) Vehicle(_ context.Context, id string) (*models.VehicleRecord, error) {
	f.lookups++
	if id != "K5" {
		return nil, platform.ErrNotFound
	}
	return &models.VehicleRecord{ID: "K5"}, nil
}

func TestRegistry(t *testing.T) {
	reg := platform.NewRegistry()
	reg.Register(&platform.Static{Label: "kcar"})
	reg.Register(&platform.Static{Label: "encar"})

	assert.Equal(t, []string{"encar", "kcar"}, reg.List())

	src, err := reg.Get("kcar")
	require.NoError(t, err)
	assert.Equal(t, "kcar", src.Name())

	_, err = reg.Get("tcar")
	assert.Error(t, err)

	reg.Register(&platform.Static{Label: "kcar", Records: []models.VehicleRecord{{ID: "A"}}})
	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, "kcar", all[0].Name(), "registration order, not name order")
	assert.Equal(t, "encar", all[1].Name())
	records, err := all[0].Vehicles(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1, "re-registering replaces the source in place")
}

func TestFind_ScansSnapshotByIDThenPlate(t *testing.T) {
	src := &platform.Static{Records: []models.VehicleRecord{
		{ID: "A", Plate: "12가3456"},
		{ID: "B", Plate: "A"},
	}}

	rec, err := platform.Find(context.Background(), src, "A")
	require.NoError(t, err)
	assert.Equal(t, "A", rec.ID)

	rec, err = platform.Find(context.Background(), src, "12가3456")
	require.NoError(t, err)
	assert.Equal(t, "A", rec.ID)

	_, err = platform.Find(context.Background(), src, "missing")
	assert.ErrorIs(t, err, platform.ErrNotFound)
}

func TestFind_PrefersFinder(t *testing.T) {
	src := &finderSource{}
	rec, err := platform.Find(context.Background(), src, "K5")
	require.NoError(t, err)
	assert.Equal(t, "K5", rec.ID)
	assert.Equal(t, 1, src.lookups)

	_, err = platform.Find(context.Background(), src, "X")
	assert.ErrorIs(t, err, platform.ErrNotFound)
}

func TestMerge_CombinesListingsByIdentity(t *testing.T) {
	encar := []models.VehicleRecord{
		{ID: "GRAN-1", Maker: "HYUNDAI", Listings: []models.ListingPoint{priced("ENCAR", 35_900_000)}},
		{ID: "K5-2", Listings: []models.ListingPoint{priced("ENCAR", 22_600_000)}},
	}
	kcar := []models.VehicleRecord{
		{ID: "K5-2", Maker: "KIA", Year: models.Int(2022), Listings: []models.ListingPoint{priced("KCAR", 22_900_000)}},
		{ID: "GRAN-1", Maker: "hyundai-motor", Listings: []models.ListingPoint{priced("encar", 1), priced("KCAR", 36_000_000)}},
		{ID: "NEW-3", Listings: []models.ListingPoint{priced("KCAR", 10_000_000)}},
	}

	merged := platform.Merge(encar, kcar)
	require.Len(t, merged, 3)

	assert.Equal(t, "GRAN-1", merged[0].ID)
	assert.Equal(t, "HYUNDAI", merged[0].Maker, "first snapshot wins descriptive fields")
	require.Len(t, merged[0].Listings, 2, "duplicate source is dropped case-insensitively")
	assert.Equal(t, int64(35_900_000), *merged[0].Listings[0].Price)
	assert.Equal(t, "KCAR", merged[0].Listings[1].Source)

	assert.Equal(t, "K5-2", merged[1].ID)
	assert.Equal(t, "KIA", merged[1].Maker, "empty fields are filled from later snapshots")
	require.NotNil(t, merged[1].Year)
	assert.Equal(t, 2022, *merged[1].Year)
	assert.Len(t, merged[1].Listings, 2)

	assert.Equal(t, "NEW-3", merged[2].ID)
}

func TestMerge_FallsBackToPlateAndKeepsAnonymousRecords(t *testing.T) {
	merged := platform.Merge(
		[]models.VehicleRecord{{Plate: "12가 3456", Listings: []models.ListingPoint{priced("A", 1)}}, {}},
		[]models.VehicleRecord{{Plate: "12가3456", Listings: []models.ListingPoint{priced("B", 2)}}, {}},
	)
	require.Len(t, merged, 3)
	assert.Len(t, merged[0].Listings, 2)
}

func TestMerge_DoesNotAliasInput(t *testing.T) {
	in := []models.VehicleRecord{{ID: "X", Listings: []models.ListingPoint{priced("A", 1)}}}
	merged := platform.Merge(in, []models.VehicleRecord{{ID: "X", Listings: []models.ListingPoint{priced("B", 2)}}})
	require.Len(t, merged[0].Listings, 2)
	assert.Len(t, in[0].Listings, 1)
}

func TestAggregate_Vehicles(t *testing.T) {
	var mu sync.Mutex
	var messages []string
	ctx := platform.WithProgress(context.Background(), func(msg string) {
		mu.Lock()
		defer mu.Unlock()
		messages = append(messages, msg)
	})

	agg := &platform.Aggregate{
		Sources: []platform.Source{
			&platform.Static{Label: "encar", Records: []models.VehicleRecord{{ID: "A", Listings: []models.ListingPoint{priced("ENCAR", 10)}}}},
			&platform.Static{Label: "kcar", Records: []models.VehicleRecord{{ID: "A", Listings: []models.ListingPoint{priced("KCAR", 12)}}, {ID: "B"}}},
		},
		MaxConcurrent: 1,
	}

	records, err := agg.Vehicles(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A", records[0].ID)
	assert.Len(t, records[0].Listings, 2)
	assert.Len(t, messages, 2)
	assert.Equal(t, "aggregate", agg.Name())
}

func TestAggregate_RateLimiter(t *testing.T) {
	sources := []platform.Source{
		&platform.Static{Label: "encar", Records: []models.VehicleRecord{{ID: "A"}}},
		&platform.Static{Label: "kcar", Records: []models.VehicleRecord{{ID: "B"}}},
		&platform.Static{Label: "kbcar", Records: []models.VehicleRecord{{ID: "C"}}},
	}

	agg := &platform.Aggregate{Sources: sources, RateLimiter: rate.NewLimiter(rate.Every(40*time.Millisecond), 1)}
	start := time.Now()
	records, err := agg.Vehicles(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond, "three sources at one per 40ms")

	// A limiter that never admits a request fails the snapshot.
	blocked := &platform.Aggregate{Sources: sources, RateLimiter: rate.NewLimiter(0, 0)}
	_, err = blocked.Vehicles(context.Background())
	assert.Error(t, err)
}

func TestAggregate_FailureModes(t *testing.T) {
	sources := []platform.Source{
		&platform.Static{Label: "encar", Records: []models.VehicleRecord{{ID: "A"}}},
		failingSource{name: "tcar"},
	}

	_, err := (&platform.Aggregate{Sources: sources}).Vehicles(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tcar")

	records, err := (&platform.Aggregate{Sources: sources, Partial: true}).Vehicles(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
