package ingest

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/buger/jsonparser"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/lukman83/carizon/internal/models"
)

var vehicleTypes = map[string]bool{
	"car":        true,
	"vehicle":    true,
	"motorcycle": true,
	"product":    true,
}

// FromJSONLD extracts vehicles from the schema.org JSON-LD blocks of a
// listing page. Each vehicle carries a single listing for source. Blocks
// that are not valid JSON are skipped.
func FromJSONLD(r io.Reader, source, pageURL string) ([]models.VehicleRecord, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}

	var out []models.VehicleRecord
	for _, block := range ldScripts(doc) {
		walkLD(block, func(node []byte) {
			if rec, ok := vehicleFromLD(node, source, pageURL); ok {
				out = append(out, rec)
			}
		})
	}
	return out, nil
}

func ldScripts(doc *html.Node) [][]byte {
	var blocks [][]byte
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Script && attr(n, "type") == "application/ld+json" {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			if text := strings.TrimSpace(sb.String()); text != "" {
				blocks = append(blocks, []byte(text))
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return blocks
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(strings.ToLower(a.Val))
		}
	}
	return ""
}

// walkLD calls fn for every object in a JSON-LD document, descending into
// top-level arrays and @graph containers.
func walkLD(data []byte, fn func(node []byte)) {
	_, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return
	}
	switch typ {
	case jsonparser.Array:
		_, _ = jsonparser.ArrayEach(data, func(value []byte, t jsonparser.ValueType, _ int, _ error) {
			if t == jsonparser.Object || t == jsonparser.Array {
				walkLD(value, fn)
			}
		})
	case jsonparser.Object:
		if graph, t, _, err := jsonparser.Get(data, "@graph"); err == nil && t == jsonparser.Array {
			walkLD(graph, fn)
			return
		}
		fn(data)
	}
}

func isVehicleType(node []byte) bool {
	v, t, _, err := jsonparser.Get(node, "@type")
	if err != nil {
		return false
	}
	switch t {
	case jsonparser.String:
		return vehicleTypes[strings.ToLower(string(v))]
	case jsonparser.Array:
		found := false
		_, _ = jsonparser.ArrayEach(v, func(value []byte, vt jsonparser.ValueType, _ int, _ error) {
			if vt == jsonparser.String && vehicleTypes[strings.ToLower(string(value))] {
				found = true
			}
		})
		return found
	}
	return false
}

func vehicleFromLD(node []byte, source, pageURL string) (models.VehicleRecord, bool) {
	if !isVehicleType(node) {
		return models.VehicleRecord{}, false
	}

	listing := models.ListingPoint{Source: source, URL: pageURL}
	offerLD(node, &listing)
	if listing.URL == "" {
		listing.URL = ldText(node, "url")
	}

	rec := models.VehicleRecord{
		ID:           firstNonEmpty(ldText(node, "sku"), ldText(node, "productID"), ldText(node, "vehicleIdentificationNumber"), ldText(node, "@id")),
		Maker:        ldText(node, "brand", "manufacturer"),
		Model:        ldText(node, "model"),
		Trim:         ldText(node, "vehicleConfiguration"),
		Color:        ldText(node, "color"),
		Fuel:         ldText(node, "fuelType"),
		Transmission: ldText(node, "vehicleTransmission"),
		BodyType:     ldText(node, "bodyType"),
		Year:         ldYear(node),
		Mileage:      ldMileage(node),
		AdvertStatus: listing.Status,
	}
	if rec.ID == "" {
		rec.ID = listing.URL
	}
	if rec.ID == "" {
		return models.VehicleRecord{}, false
	}
	if rec.Model == "" {
		rec.Model = ldText(node, "name")
	}
	listing.Mileage = rec.Mileage
	rec.Listings = []models.ListingPoint{listing}
	return rec, true
}

// offerLD fills price, URL and status from the first offer carrying a
// price. AggregateOffer contributes its lowPrice.
func offerLD(node []byte, l *models.ListingPoint) {
	offers, t, _, err := jsonparser.Get(node, "offers")
	if err != nil {
		return
	}
	apply := func(offer []byte) bool {
		price := firstInt64(offer, []string{"price", "lowPrice"})
		if price == nil || *price < 0 {
			return false
		}
		l.Price = price
		if u := ldText(offer, "url"); u != "" {
			l.URL = u
		}
		l.Status = availability(ldText(offer, "availability"))
		return true
	}
	switch t {
	case jsonparser.Object:
		apply(offers)
	case jsonparser.Array:
		done := false
		_, _ = jsonparser.ArrayEach(offers, func(value []byte, vt jsonparser.ValueType, _ int, _ error) {
			if !done && vt == jsonparser.Object {
				done = apply(value)
			}
		})
	}
}

func availability(v string) string {
	if v == "" {
		return ""
	}
	if i := strings.LastIndexAny(v, "/:"); i >= 0 {
		v = v[i+1:]
	}
	switch strings.ToLower(v) {
	case "instock", "limitedavailability", "onlineonly":
		return "active"
	case "soldout", "outofstock", "discontinued":
		return "sold"
	default:
		return strings.ToLower(v)
	}
}

// ldText returns the first key holding text, or an object with a name.
func ldText(node []byte, keys ...string) string {
	for _, k := range keys {
		v, t, _, err := jsonparser.Get(node, k)
		if err != nil {
			continue
		}
		switch t {
		case jsonparser.String, jsonparser.Number:
			if s := firstString(node, []string{k}); s != "" {
				return s
			}
		case jsonparser.Object:
			if s := firstString(v, []string{"name", "value"}); s != "" {
				return s
			}
		}
	}
	return ""
}

func ldYear(node []byte) *int {
	for _, k := range []string{"vehicleModelDate", "modelDate", "productionDate", "dateVehicleFirstRegistered"} {
		s := ldText(node, k)
		if len(s) < 4 {
			continue
		}
		if y, err := strconv.Atoi(s[:4]); err == nil {
			return &y
		}
	}
	return nil
}

func ldMileage(node []byte) *int {
	s := ldText(node, "mileageFromOdometer")
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		if r == '.' {
			return r
		}
		return -1
	}, s)
	if i := strings.IndexByte(digits, '.'); i >= 0 {
		digits = digits[:i]
	}
	if digits == "" {
		return nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &n
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
