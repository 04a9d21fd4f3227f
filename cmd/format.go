package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/lukman83/carizon/internal/market"
	"github.com/lukman83/carizon/internal/models"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printVehiclesTable prints a result page in a human-friendly card layout.
func printVehiclesTable(w io.Writer, page models.Page[market.VehicleView]) {
	if len(page.Content) == 0 {
		fmt.Fprintln(w, "No vehicles found.")
		return
	}
	for i, v := range page.Content {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, " %d. %s\n", page.PageIndex*page.PageSize+i+1, vehicleTitle(v.VehicleRecord))
		fmt.Fprintf(w, "    %s\n", priceLine(v.Summary))
		if facts := vehicleFacts(v.VehicleRecord); facts != "" {
			fmt.Fprintf(w, "    %s\n", facts)
		}
		fmt.Fprintf(w, "    ID: %s\n", v.ID)
	}
	fmt.Fprintf(w, "\nPage %d of %d (%d vehicles)\n", page.PageIndex+1, max(page.TotalPages, 1), page.TotalElements)
}

// printDetail prints one vehicle with a line per platform listing.
func printDetail(w io.Writer, d *market.VehicleDetail) {
	fmt.Fprintln(w, vehicleTitle(d.VehicleRecord))
	fmt.Fprintf(w, "  %s\n", priceLine(d.Summary))
	if facts := vehicleFacts(d.VehicleRecord); facts != "" {
		fmt.Fprintf(w, "  %s\n", facts)
	}
	if d.Summary.Representative != nil {
		fmt.Fprintf(w, "  Typical: %s\n", formatPrice(*d.Summary.Representative))
	}
	fmt.Fprintln(w)

	urls := make(map[string]string, len(d.Listings))
	for _, l := range d.Listings {
		urls[l.Source] = l.URL
	}
	for _, c := range d.Comparisons {
		line := fmt.Sprintf("  %-10s %14s", truncate(c.Source, 10), optPrice(c.Price))
		if c.Diff != nil {
			line += fmt.Sprintf("  %s", formatDiff(*c.Diff))
		}
		if c.Cheapest {
			line += "  [Cheapest]"
		}
		fmt.Fprintln(w, line)
		if u := urls[c.Source]; u != "" {
			fmt.Fprintf(w, "             %s\n", cleanURL(u))
		}
	}

	for _, s := range d.Series {
		fmt.Fprintf(w, "\n  History on %s:\n", s.Source)
		for _, p := range s.Points {
			fmt.Fprintf(w, "    %s  %s\n", p.ObservedAt.Format("2006-01-02"), formatPrice(p.Price))
		}
	}
}

func printHistoryTable(w io.Writer, points []models.PricePoint) {
	if len(points) == 0 {
		fmt.Fprintln(w, "No price history.")
		return
	}
	for _, p := range points {
		fmt.Fprintf(w, "  %s  %-10s %14s\n", p.ObservedAt.Format("2006-01-02 15:04"), truncate(p.Source, 10), formatPrice(p.Price))
	}
}

func printSourcesTable(w io.Writer, stats []market.SourceStats) {
	fmt.Fprintf(w, "  %-10s %8s %8s %14s %14s %14s %9s\n", "PLATFORM", "LISTINGS", "PRICED", "MIN", "AVG", "MAX", "CHEAPEST")
	for _, s := range stats {
		fmt.Fprintf(w, "  %-10s %8d %8d %14s %14s %14s %9d\n",
			truncate(s.Source, 10), s.Listings, s.Priced,
			optPrice(s.MinPrice), optPrice(s.AvgPrice), optPrice(s.MaxPrice), s.Cheapest)
	}
}

func printMakersTable(w io.Writer, makers []market.MakerStats) {
	for _, m := range makers {
		fmt.Fprintf(w, "  %-20s %6d vehicles  from %s\n", truncate(m.Maker, 20), m.Vehicles, optPrice(m.CheapestMin))
	}
}

func vehicleTitle(v models.VehicleRecord) string {
	name := v.Name()
	if name == "" {
		name = v.ID
	}
	if v.Year != nil {
		name = fmt.Sprintf("%s (%d)", name, *v.Year)
	}
	if v.Plate != "" {
		name += "  " + v.Plate
	}
	return name
}

func priceLine(s models.PriceSummary) string {
	if s.Min == nil {
		return fmt.Sprintf("Price: n/a  |  %d platforms", s.SourceCount)
	}
	line := "Price: " + formatPrice(*s.Min)
	if s.Max != nil && *s.Max != *s.Min {
		line += " - " + formatPrice(*s.Max)
	}
	if s.CheapestSource != nil {
		line += "  |  Cheapest: " + *s.CheapestSource
	}
	if s.Spread != nil && s.Band != models.BandNone {
		line += fmt.Sprintf("  |  Spread: %s [%s]", formatPrice(*s.Spread), s.Band)
	}
	return line + fmt.Sprintf("  |  %d/%d priced", s.PricedCount, s.SourceCount)
}

func vehicleFacts(v models.VehicleRecord) string {
	var parts []string
	if v.Mileage != nil {
		parts = append(parts, formatKm(*v.Mileage))
	}
	for _, s := range []string{v.Fuel, v.Transmission, v.Color, v.Region} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " · ")
}

// formatPrice formats a KRW amount as "₩35,900,000".
func formatPrice(n int64) string {
	if n < 0 {
		return "-" + formatPrice(-n)
	}
	return "₩" + groupThousands(n)
}

func optPrice(p *int64) string {
	if p == nil {
		return "-"
	}
	return formatPrice(*p)
}

// formatDiff formats a difference from the typical price with its sign.
func formatDiff(n int64) string {
	switch {
	case n > 0:
		return "+" + formatPrice(n)
	case n < 0:
		return formatPrice(n)
	default:
		return "±₩0"
	}
}

func formatKm(n int) string {
	return groupThousands(int64(n)) + " km"
}

func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	return strings.Join(parts, ",")
}

// cleanURL strips tracking query params and returns just the listing URL.
func cleanURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
