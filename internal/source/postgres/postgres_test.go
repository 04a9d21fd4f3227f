package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/carizon/internal/platform"
)

var (
	masterCols  = []string{"car_id", "car_no", "maker_name", "model_group_name", "model_name", "trim_name", "year", "mileage", "color", "transmission", "fuel", "body_type", "region", "adv_status"}
	listingCols = []string{"platform_car_id", "car_id", "platform_name", "price", "km", "status", "pc_url", "m_url", "last_seen_date"}
	historyCols = []string{"car_id", "platform_name", "price", "checked_at"}
)

func newMock(t *testing.T) (*Source, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

func TestSource_Vehicles(t *testing.T) {
	src, mock := newMock(t)
	seen := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM car_master ORDER BY car_id").WillReturnRows(
		sqlmock.NewRows(masterCols).
			AddRow(1, "12가3456", "HYUNDAI", "GRANDEUR", "GRANDEUR IG", "2.5", 2023, 50000, "BLACK", "AUTO", "GASOLINE", "SEDAN", "SEOUL", "ACTIVE").
			AddRow(2, nil, "KIA", nil, "K5", nil, nil, nil, nil, nil, nil, nil, nil, nil),
	)
	mock.ExpectQuery("FROM platform_car WHERE car_id IS NOT NULL").WillReturnRows(
		sqlmock.NewRows(listingCols).
			AddRow(10, 1, "ENCAR", 35900000, 50000, "ON_SALE", "https://encar.example/1", nil, seen).
			AddRow(11, 1, "KBCAR", 36200000, nil, nil, nil, "https://m.kbcar.example/1", nil).
			AddRow(12, 1, "encar", 1, nil, nil, nil, nil, nil).
			AddRow(13, 2, "TCAR", nil, nil, nil, nil, nil, nil).
			AddRow(14, 99, "KCAR", 100, nil, nil, nil, nil, nil),
	)
	mock.ExpectQuery("FROM car_price_history h").WillReturnRows(
		sqlmock.NewRows(historyCols).
			AddRow(1, "ENCAR", 36500000, seen.AddDate(0, -1, 0)).
			AddRow(1, "ENCAR", 35900000, seen),
	)

	records, err := src.Vehicles(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	require.Len(t, records, 2)

	gran := records[0]
	assert.Equal(t, "1", gran.ID)
	assert.Equal(t, "12가3456", gran.Plate)
	assert.Equal(t, "GRANDEUR IG", gran.Model)
	require.NotNil(t, gran.Year)
	assert.Equal(t, 2023, *gran.Year)
	require.Len(t, gran.Listings, 2, "duplicate platform rows keep the first")
	assert.Equal(t, int64(35_900_000), *gran.Listings[0].Price)
	assert.Equal(t, "https://encar.example/1", gran.Listings[0].URL)
	require.NotNil(t, gran.Listings[0].ObservedAt)
	assert.Equal(t, "https://m.kbcar.example/1", gran.Listings[1].URL, "mobile URL is the fallback")
	assert.Len(t, gran.History, 2)

	k5 := records[1]
	assert.Empty(t, k5.Plate)
	assert.Nil(t, k5.Year)
	require.Len(t, k5.Listings, 1)
	assert.Nil(t, k5.Listings[0].Price)
}

func TestSource_Vehicle(t *testing.T) {
	src, mock := newMock(t)

	mock.ExpectQuery("FROM car_master WHERE car_id").WithArgs(int64(2)).WillReturnRows(
		sqlmock.NewRows(masterCols).AddRow(2, nil, "KIA", nil, "K5", nil, 2022, nil, nil, nil, nil, nil, nil, nil),
	)
	mock.ExpectQuery("FROM platform_car WHERE car_id").WithArgs(int64(2)).WillReturnRows(
		sqlmock.NewRows(listingCols).AddRow(13, 2, "KCAR", 22900000, nil, nil, nil, nil, nil),
	)
	mock.ExpectQuery("FROM car_price_history h").WithArgs(int64(2)).WillReturnRows(sqlmock.NewRows(historyCols))

	rec, err := src.Vehicle(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "K5", rec.Model)
	assert.Len(t, rec.Listings, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSource_VehicleNotFound(t *testing.T) {
	src, mock := newMock(t)

	_, err := src.Vehicle(context.Background(), "GRAN-1")
	assert.ErrorIs(t, err, platform.ErrNotFound, "non-numeric ids never hit the database")

	mock.ExpectQuery("FROM car_master WHERE car_id").WithArgs(int64(404)).WillReturnRows(sqlmock.NewRows(masterCols))
	_, err = src.Vehicle(context.Background(), "404")
	assert.ErrorIs(t, err, platform.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSource_QueryError(t *testing.T) {
	src, mock := newMock(t)
	mock.ExpectQuery("FROM car_master").WillReturnError(errors.New("connection reset"))

	_, err := src.Vehicles(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "car_master")
	assert.Equal(t, "postgres", src.Name())
}
