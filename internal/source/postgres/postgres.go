// Package postgres reads a vehicle snapshot from the carizon backend
// database. It only ever issues SELECTs.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/lukman83/carizon/internal/models"
	"github.com/lukman83/carizon/internal/platform"
)

const (
	DefaultMaxOpenConns    = 10
	DefaultMaxIdleConns    = 2
	DefaultConnMaxLifetime = 5 * time.Minute
	DefaultPingTimeout     = 5 * time.Second
)

const (
	masterColumns = `car_id, car_no, maker_name, model_group_name, model_name, trim_name,
		year, mileage, color, transmission, fuel, body_type, region, adv_status`

	listingColumns = `platform_car_id, car_id, platform_name, price, km, status, pc_url, m_url, last_seen_date`

	historyColumns = `pc.car_id, pc.platform_name, h.price, h.checked_at`
)

var (
	selectMasters  = `SELECT ` + masterColumns + ` FROM car_master ORDER BY car_id`
	selectListings = `SELECT ` + listingColumns + ` FROM platform_car WHERE car_id IS NOT NULL ORDER BY car_id, platform_car_id`
	selectHistory  = `SELECT ` + historyColumns + ` FROM car_price_history h
		JOIN platform_car pc ON pc.platform_car_id = h.platform_car_id
		WHERE pc.car_id IS NOT NULL ORDER BY h.checked_at`

	selectMaster      = `SELECT ` + masterColumns + ` FROM car_master WHERE car_id = $1`
	selectCarListings = `SELECT ` + listingColumns + ` FROM platform_car WHERE car_id = $1 ORDER BY platform_car_id`
	selectCarHistory  = `SELECT ` + historyColumns + ` FROM car_price_history h
		JOIN platform_car pc ON pc.platform_car_id = h.platform_car_id
		WHERE pc.car_id = $1 ORDER BY h.checked_at`
)

type masterRow struct {
	CarID          int64          `db:"car_id"`
	CarNo          sql.NullString `db:"car_no"`
	MakerName      sql.NullString `db:"maker_name"`
	ModelGroupName sql.NullString `db:"model_group_name"`
	ModelName      sql.NullString `db:"model_name"`
	TrimName       sql.NullString `db:"trim_name"`
	Year           sql.NullInt64  `db:"year"`
	Mileage        sql.NullInt64  `db:"mileage"`
	Color          sql.NullString `db:"color"`
	Transmission   sql.NullString `db:"transmission"`
	Fuel           sql.NullString `db:"fuel"`
	BodyType       sql.NullString `db:"body_type"`
	Region         sql.NullString `db:"region"`
	AdvStatus      sql.NullString `db:"adv_status"`
}

type listingRow struct {
	PlatformCarID int64          `db:"platform_car_id"`
	CarID         int64          `db:"car_id"`
	PlatformName  string         `db:"platform_name"`
	Price         sql.NullInt64  `db:"price"`
	Km            sql.NullInt64  `db:"km"`
	Status        sql.NullString `db:"status"`
	PcURL         sql.NullString `db:"pc_url"`
	MURL          sql.NullString `db:"m_url"`
	LastSeenDate  sql.NullTime   `db:"last_seen_date"`
}

type historyRow struct {
	CarID        int64     `db:"car_id"`
	PlatformName string    `db:"platform_name"`
	Price        int64     `db:"price"`
	CheckedAt    time.Time `db:"checked_at"`
}

// Source is a platform.Source and platform.Finder over the backend tables.
type Source struct {
	db    *sqlx.DB
	Label string
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Source, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(db), nil
}

// New wraps an existing connection.
func New(db *sqlx.DB) *Source {
	return &Source{db: db}
}

func (s *Source) Close() error {
	return s.db.Close()
}

func (s *Source) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return "postgres"
}

func (s *Source) Vehicles(ctx context.Context) ([]models.VehicleRecord, error) {
	var masters []masterRow
	if err := s.db.SelectContext(ctx, &masters, selectMasters); err != nil {
		return nil, fmt.Errorf("select car_master: %w", err)
	}
	var listings []listingRow
	if err := s.db.SelectContext(ctx, &listings, selectListings); err != nil {
		return nil, fmt.Errorf("select platform_car: %w", err)
	}
	var history []historyRow
	if err := s.db.SelectContext(ctx, &history, selectHistory); err != nil {
		return nil, fmt.Errorf("select car_price_history: %w", err)
	}
	return assemble(masters, listings, history), nil
}

// Vehicle looks up one car_master row. Non-numeric ids cannot exist.
func (s *Source) Vehicle(ctx context.Context, id string) (*models.VehicleRecord, error) {
	carID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, platform.ErrNotFound
	}

	var master masterRow
	if err := s.db.GetContext(ctx, &master, selectMaster, carID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, platform.ErrNotFound
		}
		return nil, fmt.Errorf("select car_master %d: %w", carID, err)
	}
	var listings []listingRow
	if err := s.db.SelectContext(ctx, &listings, selectCarListings, carID); err != nil {
		return nil, fmt.Errorf("select platform_car %d: %w", carID, err)
	}
	var history []historyRow
	if err := s.db.SelectContext(ctx, &history, selectCarHistory, carID); err != nil {
		return nil, fmt.Errorf("select car_price_history %d: %w", carID, err)
	}

	recs := assemble([]masterRow{master}, listings, history)
	return &recs[0], nil
}

// assemble joins rows into records in car_master order. Each platform is
// listed once per car; the lowest platform_car_id wins.
func assemble(masters []masterRow, listings []listingRow, history []historyRow) []models.VehicleRecord {
	out := make([]models.VehicleRecord, len(masters))
	index := make(map[int64]int, len(masters))
	for i, m := range masters {
		index[m.CarID] = i
		out[i] = models.VehicleRecord{
			ID:           strconv.FormatInt(m.CarID, 10),
			Plate:        m.CarNo.String,
			Maker:        m.MakerName.String,
			ModelGroup:   m.ModelGroupName.String,
			Model:        m.ModelName.String,
			Trim:         m.TrimName.String,
			Year:         nullInt(m.Year),
			Mileage:      nullInt(m.Mileage),
			Color:        m.Color.String,
			Transmission: m.Transmission.String,
			Fuel:         m.Fuel.String,
			BodyType:     m.BodyType.String,
			Region:       m.Region.String,
			AdvertStatus: m.AdvStatus.String,
			Listings:     []models.ListingPoint{},
		}
	}

	seen := make(map[int64]map[string]struct{})
	for _, l := range listings {
		i, ok := index[l.CarID]
		if !ok {
			continue
		}
		key := strings.ToUpper(l.PlatformName)
		if seen[l.CarID] == nil {
			seen[l.CarID] = make(map[string]struct{})
		}
		if _, dup := seen[l.CarID][key]; dup {
			continue
		}
		seen[l.CarID][key] = struct{}{}

		point := models.ListingPoint{
			Source:  l.PlatformName,
			Mileage: nullInt(l.Km),
			Status:  l.Status.String,
			URL:     l.PcURL.String,
		}
		if point.URL == "" {
			point.URL = l.MURL.String
		}
		if l.Price.Valid && l.Price.Int64 >= 0 {
			point.Price = &l.Price.Int64
		}
		if l.LastSeenDate.Valid {
			point.ObservedAt = &l.LastSeenDate.Time
		}
		out[i].Listings = append(out[i].Listings, point)
	}

	for _, h := range history {
		i, ok := index[h.CarID]
		if !ok {
			continue
		}
		out[i].History = append(out[i].History, models.PricePoint{
			Source:     h.PlatformName,
			Price:      h.Price,
			ObservedAt: h.CheckedAt,
		})
	}
	return out
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
