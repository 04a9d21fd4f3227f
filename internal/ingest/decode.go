// Package ingest turns upstream vehicle payloads into canonical records.
//
// The three front-ends and two backends that fed carizon never agreed on
// field names (carNo/numberPlate/plate, advStatus/advertStatus, prices/
// platformListings/offers, ...). Every alias is resolved here so that no
// other package sees more than one spelling.
package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/buger/jsonparser"

	"github.com/lukman83/carizon/internal/models"
)

// ErrNoIdentity is returned for payloads without any id or plate field.
var ErrNoIdentity = errors.New("vehicle has no id or plate")

var (
	idKeys           = []string{"carId", "car_id", "car_uid", "carUid", "id"}
	plateKeys        = []string{"carNo", "car_no", "numberPlate", "number_plate", "plate"}
	makerKeys        = []string{"makerName", "maker_name", "maker", "brand"}
	modelGroupKeys   = []string{"modelGroupName", "model_group_name", "modelGroup", "model_group"}
	modelKeys        = []string{"modelName", "model_name", "model"}
	trimKeys         = []string{"trimName", "trim_name", "trim"}
	gradeKeys        = []string{"gradeName", "grade_name", "grade"}
	yearKeys         = []string{"year"}
	mileageKeys      = []string{"mileage", "mileage_km", "km"}
	colorKeys        = []string{"color", "colour"}
	fuelKeys         = []string{"fuel"}
	transmissionKeys = []string{"transmission"}
	bodyTypeKeys     = []string{"bodyType", "body_type"}
	regionKeys       = []string{"region"}
	advertKeys       = []string{"advertStatus", "advStatus", "adv_status", "advert_status"}

	listingArrayKeys = []string{"listings", "platformListings", "platform_listings", "offers", "prices"}
	sourceKeys       = []string{"source", "platformName", "platform_name", "platform"}
	urlKeys          = []string{"url", "pcUrl", "pc_url", "mUrl", "m_url"}
	observedKeys     = []string{"observedAt", "observed_at", "checkedAt", "checked_at", "lastSeenDate", "last_seen_date"}
	statusKeys       = []string{"status"}
	historyKeys      = []string{"history", "priceHistory", "price_history"}
)

// Decode parses one vehicle object. A {"data": {...}} envelope is unwrapped.
func Decode(data []byte) (models.VehicleRecord, error) {
	if inner, typ, _, err := jsonparser.Get(data, "data"); err == nil && typ == jsonparser.Object {
		data = inner
	}

	rec := models.VehicleRecord{
		ID:           firstString(data, idKeys),
		Plate:        firstString(data, plateKeys),
		Maker:        firstString(data, makerKeys),
		ModelGroup:   firstString(data, modelGroupKeys),
		Model:        firstString(data, modelKeys),
		Trim:         firstString(data, trimKeys),
		Grade:        firstString(data, gradeKeys),
		Year:         firstInt(data, yearKeys),
		Mileage:      firstInt(data, mileageKeys),
		Color:        firstString(data, colorKeys),
		Fuel:         firstString(data, fuelKeys),
		Transmission: firstString(data, transmissionKeys),
		BodyType:     firstString(data, bodyTypeKeys),
		Region:       firstString(data, regionKeys),
		AdvertStatus: firstString(data, advertKeys),
	}
	if rec.ID == "" {
		rec.ID = rec.Plate
	}
	if rec.ID == "" {
		return models.VehicleRecord{}, ErrNoIdentity
	}

	listings, err := decodeListings(data)
	if err != nil {
		return models.VehicleRecord{}, fmt.Errorf("vehicle %s: %w", rec.ID, err)
	}
	rec.Listings = listings

	history, err := decodeHistory(data)
	if err != nil {
		return models.VehicleRecord{}, fmt.Errorf("vehicle %s: %w", rec.ID, err)
	}
	rec.History = history
	return rec, nil
}

// DecodeList parses a collection of vehicles. Accepted shapes are a bare
// array, {"content": [...]}, {"data": [...]}, {"data": {"content": [...]}}
// and {"items": [...]}.
func DecodeList(data []byte) ([]models.VehicleRecord, error) {
	arr, err := listArray(data)
	if err != nil {
		return nil, err
	}

	var (
		out     []models.VehicleRecord
		itemErr error
	)
	_, err = jsonparser.ArrayEach(arr, func(value []byte, typ jsonparser.ValueType, _ int, _ error) {
		if itemErr != nil || typ != jsonparser.Object {
			return
		}
		rec, err := Decode(value)
		if err != nil {
			itemErr = err
			return
		}
		out = append(out, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("decode vehicle list: %w", err)
	}
	if itemErr != nil {
		return nil, itemErr
	}
	return out, nil
}

func listArray(data []byte) ([]byte, error) {
	_, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("decode vehicle list: %w", err)
	}
	if typ == jsonparser.Array {
		return data, nil
	}
	for _, path := range [][]string{{"content"}, {"data"}, {"data", "content"}, {"items"}} {
		if v, t, _, err := jsonparser.Get(data, path...); err == nil && t == jsonparser.Array {
			return v, nil
		}
	}
	return nil, fmt.Errorf("decode vehicle list: no vehicle array found")
}

func decodeListings(data []byte) ([]models.ListingPoint, error) {
	var out []models.ListingPoint
	seen := make(map[string]struct{})

	arr, ok := firstArray(data, listingArrayKeys)
	if ok {
		_, err := jsonparser.ArrayEach(arr, func(value []byte, typ jsonparser.ValueType, _ int, _ error) {
			if typ != jsonparser.Object {
				return
			}
			l, ok := decodeListing(value)
			if !ok {
				return
			}
			key := strings.ToUpper(l.Source)
			if _, dup := seen[key]; dup {
				return
			}
			seen[key] = struct{}{}
			out = append(out, l)
		})
		if err != nil {
			return nil, fmt.Errorf("listings: %w", err)
		}
	}

	// The demo detail payload carries links and per-platform mileage in a
	// separate "sources" array keyed by source.
	if extra, t, _, err := jsonparser.Get(data, "sources"); err == nil && t == jsonparser.Array {
		_, _ = jsonparser.ArrayEach(extra, func(value []byte, typ jsonparser.ValueType, _ int, _ error) {
			if typ != jsonparser.Object {
				return
			}
			source := firstString(value, sourceKeys)
			for i := range out {
				if !strings.EqualFold(out[i].Source, source) {
					continue
				}
				if out[i].URL == "" {
					out[i].URL = firstString(value, urlKeys)
				}
				if out[i].Mileage == nil {
					out[i].Mileage = firstInt(value, mileageKeys)
				}
			}
		})
	}
	return out, nil
}

// decodeListing reports false for entries that name no source.
func decodeListing(value []byte) (models.ListingPoint, bool) {
	l := models.ListingPoint{
		Source:  firstString(value, sourceKeys),
		URL:     firstString(value, urlKeys),
		Mileage: firstInt(value, mileageKeys),
		Status:  firstString(value, statusKeys),
	}
	if l.Source == "" {
		return l, false
	}
	if p := firstInt64(value, []string{"price"}); p != nil && *p >= 0 {
		l.Price = p
	}
	if ts := firstTime(value, observedKeys); ts != nil {
		l.ObservedAt = ts
	}
	return l, true
}

// DecodeHistory parses a price-history payload: a bare array of points, or
// an object holding one under a history key or a list envelope.
func DecodeHistory(data []byte) ([]models.PricePoint, error) {
	_, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("decode price history: %w", err)
	}
	if typ == jsonparser.Array {
		return historyPoints(data)
	}
	if inner, t, _, err := jsonparser.Get(data, "data"); err == nil && t == jsonparser.Object {
		data = inner
	}
	if _, ok := firstArray(data, historyKeys); ok {
		return decodeHistory(data)
	}
	arr, err := listArray(data)
	if err != nil {
		return nil, fmt.Errorf("decode price history: no history array found")
	}
	return historyPoints(arr)
}

func decodeHistory(data []byte) ([]models.PricePoint, error) {
	arr, ok := firstArray(data, historyKeys)
	if !ok {
		return nil, nil
	}
	return historyPoints(arr)
}

func historyPoints(arr []byte) ([]models.PricePoint, error) {
	var out []models.PricePoint
	_, err := jsonparser.ArrayEach(arr, func(value []byte, typ jsonparser.ValueType, _ int, _ error) {
		if typ != jsonparser.Object {
			return
		}
		price := firstInt64(value, []string{"price"})
		ts := firstTime(value, observedKeys)
		if price == nil || *price < 0 || ts == nil {
			return
		}
		out = append(out, models.PricePoint{
			Source:     firstString(value, sourceKeys),
			Price:      *price,
			ObservedAt: *ts,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("price history: %w", err)
	}
	return out, nil
}

func firstArray(data []byte, keys []string) ([]byte, bool) {
	for _, k := range keys {
		if v, t, _, err := jsonparser.Get(data, k); err == nil && t == jsonparser.Array {
			return v, true
		}
	}
	return nil, false
}

// firstString returns the first key holding a string or number, as text.
func firstString(data []byte, keys []string) string {
	for _, k := range keys {
		v, t, _, err := jsonparser.Get(data, k)
		if err != nil {
			continue
		}
		switch t {
		case jsonparser.String:
			s, err := jsonparser.ParseString(v)
			if err == nil && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		case jsonparser.Number:
			return string(v)
		}
	}
	return ""
}

func firstInt64(data []byte, keys []string) *int64 {
	for _, k := range keys {
		v, t, _, err := jsonparser.Get(data, k)
		if err != nil {
			continue
		}
		var text string
		switch t {
		case jsonparser.Number:
			text = string(v)
		case jsonparser.String:
			text = strings.NewReplacer(",", "", " ", "").Replace(string(v))
		default:
			continue
		}
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return &n
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			// Out-of-range floats have no int64 value; treat them as absent.
			if r := math.Round(f); r >= math.MinInt64 && r < -math.MinInt64 {
				n := int64(r)
				return &n
			}
		}
	}
	return nil
}

func firstInt(data []byte, keys []string) *int {
	n := firstInt64(data, keys)
	if n == nil {
		return nil
	}
	v := int(*n)
	return &v
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func firstTime(data []byte, keys []string) *time.Time {
	s := firstString(data, keys)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return &ts
		}
	}
	return nil
}
