// Package httpapi reads vehicles from a remote carizon-compatible REST
// backend: GET /api/cars (paged), /api/cars/{id} and
// /api/cars/{id}/price-history.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
	"golang.org/x/sync/errgroup"

	"github.com/lukman83/carizon/internal/httputil"
	"github.com/lukman83/carizon/internal/ingest"
	"github.com/lukman83/carizon/internal/logger"
	"github.com/lukman83/carizon/internal/models"
	"github.com/lukman83/carizon/internal/platform"
)

const (
	defaultPageSize = 100
	maxPages        = 1000
)

// Source is a platform.Source and platform.Finder backed by the REST API.
type Source struct {
	BaseURL    string
	APIKey     string
	Client     *http.Client
	MaxRetries int
	PageSize   int
	// MaxConcurrent bounds detail lookups for list items without listings.
	MaxConcurrent int
	Log           logger.Logger
}

// New returns a source for baseURL using client.
func New(baseURL string, client *http.Client) *Source {
	return &Source{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

func (s *Source) Name() string {
	if u, err := url.Parse(s.BaseURL); err == nil && u.Host != "" {
		return "api:" + u.Host
	}
	return "api"
}

// Vehicles pages through /api/cars until the last page. Items returned
// without listings (summary-only list views) are completed from their
// detail endpoint.
func (s *Source) Vehicles(ctx context.Context) ([]models.VehicleRecord, error) {
	size := s.PageSize
	if size <= 0 {
		size = defaultPageSize
	}

	var out []models.VehicleRecord
	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("size", strconv.Itoa(size))
		body, err := s.get(ctx, "/api/cars?"+q.Encode())
		if err != nil {
			return nil, fmt.Errorf("list page %d: %w", page, err)
		}
		records, err := ingest.DecodeList(body)
		if err != nil {
			return nil, fmt.Errorf("list page %d: %w", page, err)
		}
		out = append(out, records...)
		platform.ReportProgress(ctx, "Fetched page %d (%d vehicles)", page+1, len(out))

		if len(records) == 0 || lastPage(body, page, len(records), size) {
			break
		}
	}

	if err := s.completeListings(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// lastPage reads the paging flags of a list response, falling back to a
// short page when the backend sends none.
func lastPage(body []byte, page, got, size int) bool {
	for _, key := range []string{"last", "is_last", "isLast"} {
		if v, err := jsonparser.GetBoolean(body, key); err == nil {
			return v
		}
		if v, err := jsonparser.GetBoolean(body, "data", key); err == nil {
			return v
		}
	}
	for _, key := range []string{"totalPages", "total_pages"} {
		if v, err := jsonparser.GetInt(body, key); err == nil {
			return int64(page+1) >= v
		}
	}
	return got < size
}

func (s *Source) completeListings(ctx context.Context, records []models.VehicleRecord) error {
	g, gctx := errgroup.WithContext(ctx)
	limit := s.MaxConcurrent
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)

	for i := range records {
		if len(records[i].Listings) > 0 || records[i].ID == "" {
			continue
		}
		g.Go(func() error {
			detail, err := s.Vehicle(gctx, records[i].ID)
			if errors.Is(err, platform.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			records[i].Listings = detail.Listings
			if len(records[i].History) == 0 {
				records[i].History = detail.History
			}
			return nil
		})
	}
	return g.Wait()
}

// Vehicle fetches one vehicle's detail. A 404 maps to platform.ErrNotFound.
// Price history is loaded from its own endpoint when the detail omits it.
func (s *Source) Vehicle(ctx context.Context, id string) (*models.VehicleRecord, error) {
	// An empty id would address the list endpoint.
	if strings.TrimSpace(id) == "" {
		return nil, platform.ErrNotFound
	}
	body, err := s.get(ctx, "/api/cars/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	rec, err := ingest.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("vehicle %s: %w", id, err)
	}

	if len(rec.History) == 0 {
		hist, err := s.History(ctx, id)
		switch {
		case err == nil:
			rec.History = hist
		case errors.Is(err, platform.ErrNotFound):
		default:
			s.log().Warn("price history unavailable", logger.String("vehicle", id), logger.Error(err))
		}
	}
	return &rec, nil
}

// History fetches /api/cars/{id}/price-history.
func (s *Source) History(ctx context.Context, id string) ([]models.PricePoint, error) {
	body, err := s.get(ctx, "/api/cars/"+url.PathEscape(id)+"/price-history")
	if err != nil {
		return nil, err
	}
	return ingest.DecodeHistory(body)
}

func (s *Source) get(ctx context.Context, path string) ([]byte, error) {
	client := s.Client
	if client == nil {
		client = httputil.NewHTTPClient(nil, 0)
	}
	body, err := httputil.GetBody(ctx, client, strings.TrimRight(s.BaseURL, "/")+path, httputil.JSONHeaders(s.APIKey), s.MaxRetries)
	var se *httputil.StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return nil, platform.ErrNotFound
	}
	return body, err
}

func (s *Source) log() logger.Logger {
	if s.Log == nil {
		return logger.Nop()
	}
	return s.Log
}
