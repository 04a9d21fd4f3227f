package platform

import (
	"context"
	"errors"

	"github.com/lukman83/carizon/internal/models"
)

// ErrNotFound is returned when a vehicle id is unknown to a source.
var ErrNotFound = errors.New("vehicle not found")

// Source supplies read-only vehicle snapshots. Implementations return a
// complete, consistent snapshot or an error; callers neither retry nor cache.
type Source interface {
	Name() string
	Vehicles(ctx context.Context) ([]models.VehicleRecord, error)
}

// Finder is implemented by sources that can look up one vehicle without
// fetching the full snapshot.
type Finder interface {
	Vehicle(ctx context.Context, id string) (*models.VehicleRecord, error)
}

// Find looks id up through Finder when src supports it, otherwise by
// scanning the snapshot. Records match on ID first, then on plate.
func Find(ctx context.Context, src Source, id string) (*models.VehicleRecord, error) {
	if f, ok := src.(Finder); ok {
		return f.Vehicle(ctx, id)
	}

	records, err := src.Vehicles(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	for i := range records {
		if records[i].Plate != "" && records[i].Plate == id {
			return &records[i], nil
		}
	}
	return nil, ErrNotFound
}

// Static serves a fixed snapshot. It backs tests and in-memory fixtures.
type Static struct {
	Label   string
	Records []models.VehicleRecord
}

func (s *Static) Name() string { return s.Label }

func (s *Static) Vehicles(context.Context) ([]models.VehicleRecord, error) {
	return s.Records, nil
}
