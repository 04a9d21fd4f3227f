// Package api exposes the market service as a read-only JSON REST API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lukman83/carizon/internal/catalog"
	"github.com/lukman83/carizon/internal/logger"
	"github.com/lukman83/carizon/internal/market"
	"github.com/lukman83/carizon/internal/models"
	"github.com/lukman83/carizon/internal/platform"
)

// Handler serves the /api routes.
type Handler struct {
	svc *market.Service
	log logger.Logger
}

// New returns a handler over svc.
func New(svc *market.Service, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{svc: svc, log: log}
}

// Register mounts the routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/cars", h.listCars)
	mux.HandleFunc("GET /api/cars/{id}", h.getCar)
	mux.HandleFunc("GET /api/cars/{id}/price-history", h.priceHistory)
	mux.HandleFunc("GET /api/sources", h.sources)
	mux.HandleFunc("GET /api/makers", h.makers)
}

func (h *Handler) listCars(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria, err := ParseCriteria(q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := intParam(q, "page")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	size, err := intParam(q, "size")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.svc.Search(r.Context(), criteria, page, size)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) getCar(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.Detail(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) priceHistory(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		source = r.URL.Query().Get("platform")
	}
	points, err := h.svc.History(r.Context(), r.PathValue("id"), source)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (h *Handler) sources(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Sources(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) makers(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Makers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ParseCriteria reads filter criteria from query parameters. Both
// snake_case and camelCase names are accepted; sources may repeat or be
// comma-separated; sort accepts "price_asc" as well as "price,asc".
func ParseCriteria(q url.Values) (models.FilterCriteria, error) {
	c := models.FilterCriteria{
		Query:        first(q, "q", "query"),
		Maker:        first(q, "maker"),
		ModelGroup:   first(q, "model_group", "modelGroup"),
		Model:        first(q, "model"),
		Trim:         first(q, "trim"),
		Grade:        first(q, "grade"),
		Color:        first(q, "color"),
		Fuel:         first(q, "fuel"),
		Transmission: first(q, "transmission"),
		Region:       first(q, "region"),
		Sort:         NormalizeSort(first(q, "sort")),
	}

	var err error
	if c.PriceMin, err = int64Param(q, "price_min", "priceMin"); err != nil {
		return c, err
	}
	if c.PriceMax, err = int64Param(q, "price_max", "priceMax"); err != nil {
		return c, err
	}
	if c.MileageMin, err = optIntParam(q, "mileage_min", "mileageMin"); err != nil {
		return c, err
	}
	if c.MileageMax, err = optIntParam(q, "mileage_max", "mileageMax"); err != nil {
		return c, err
	}
	if c.YearMin, err = optIntParam(q, "year_min", "yearMin"); err != nil {
		return c, err
	}
	if c.YearMax, err = optIntParam(q, "year_max", "yearMax"); err != nil {
		return c, err
	}

	for _, key := range []string{"source", "sources", "platform"} {
		for _, v := range q[key] {
			c.Sources = append(c.Sources, SplitList(v)...)
		}
	}
	return c, nil
}

// NormalizeSort maps "field,dir" and "field_dir" spellings onto SortKey.
func NormalizeSort(s string) models.SortKey {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ",", "_")
	return models.SortKey(s)
}

// SplitList splits a comma-separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func first(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

func int64Param(q url.Values, keys ...string) (*int64, error) {
	v := first(q, keys...)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer, got %q", catalog.ErrInvalidArgument, keys[0], v)
	}
	return &n, nil
}

func optIntParam(q url.Values, keys ...string) (*int, error) {
	n, err := int64Param(q, keys...)
	if err != nil || n == nil {
		return nil, err
	}
	v := int(*n)
	return &v, nil
}

func intParam(q url.Values, key string) (int, error) {
	n, err := optIntParam(q, key)
	if err != nil || n == nil {
		return 0, err
	}
	return *n, nil
}

type errorBody struct {
	Error string `json:"error"`
}

// StatusFor maps service errors onto HTTP statuses: invalid arguments are
// the caller's fault, unknown vehicles are 404, and anything else is an
// upstream failure.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, platform.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
