package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/carizon/internal/market"
	"github.com/lukman83/carizon/internal/models"
	"github.com/lukman83/carizon/internal/platform"
)

func testService(t *testing.T) *market.Service {
	t.Helper()
	src := &platform.Static{Label: "fixture", Records: []models.VehicleRecord{
		{
			ID: "GRAN-1", Maker: "HYUNDAI", Year: models.Int(2023),
			Listings: []models.ListingPoint{
				{Source: "ENCAR", Price: models.Int64(35_900_000)},
				{Source: "KBCAR", Price: models.Int64(36_200_000)},
			},
		},
		{
			ID: "K5-2", Maker: "KIA", Year: models.Int(2022),
			Listings: []models.ListingPoint{
				{Source: "KCAR", Price: models.Int64(22_900_000)},
				{Source: "ENCAR", Price: models.Int64(22_600_000)},
			},
		},
	}}
	svc, err := market.New(src, market.Options{DefaultSort: models.SortPriceAsc})
	require.NoError(t, err)
	return svc
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestSearchVehicles(t *testing.T) {
	tl := &tools{svc: testService(t)}

	out, isErr := call(t, tl.handleSearchVehicles, map[string]any{
		"sources":   "kcar, kbcar",
		"price_max": float64(30_000_000),
		"size":      float64(5),
	})
	require.False(t, isErr, out)

	var page models.Page[market.VehicleView]
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Len(t, page.Content, 1)
	assert.Equal(t, "K5-2", page.Content[0].ID)
	assert.Equal(t, "ENCAR", *page.Content[0].Summary.CheapestSource)
	assert.Equal(t, 5, page.PageSize)
}

func TestSearchVehicles_InvalidArguments(t *testing.T) {
	tl := &tools{svc: testService(t)}

	for name, args := range map[string]map[string]any{
		"fractional price": {"price_min": 1.5},
		"string year":      {"year_min": "2020"},
		"inverted range":   {"price_min": float64(10), "price_max": float64(1)},
		"unknown sort":     {"sort": "cheapest"},
		"page too large":   {"size": float64(1000)},
	} {
		t.Run(name, func(t *testing.T) {
			_, isErr := call(t, tl.handleSearchVehicles, args)
			assert.True(t, isErr)
		})
	}
}

func TestVehicleDetailAndHistory(t *testing.T) {
	tl := &tools{svc: testService(t)}

	out, isErr := call(t, tl.handleVehicleDetail, map[string]any{"id": "GRAN-1"})
	require.False(t, isErr, out)
	var detail market.VehicleDetail
	require.NoError(t, json.Unmarshal([]byte(out), &detail))
	assert.Equal(t, "GRAN-1", detail.ID)
	assert.Len(t, detail.Comparisons, 2)

	out, isErr = call(t, tl.handleVehicleDetail, map[string]any{"id": "nope"})
	assert.True(t, isErr)
	assert.Contains(t, out, "not found")

	_, isErr = call(t, tl.handleVehicleDetail, map[string]any{})
	assert.True(t, isErr)

	out, isErr = call(t, tl.handlePriceHistory, map[string]any{"id": "K5-2"})
	require.False(t, isErr)
	assert.JSONEq(t, `[]`, out)
}

func TestListSourcesAndMakers(t *testing.T) {
	tl := &tools{svc: testService(t)}

	out, isErr := call(t, tl.handleListSources, nil)
	require.False(t, isErr)
	var sources []market.SourceStats
	require.NoError(t, json.Unmarshal([]byte(out), &sources))
	require.Len(t, sources, 3)
	assert.Equal(t, "ENCAR", sources[0].Source)

	out, isErr = call(t, tl.handleListMakers, map[string]any{"query": "kia"})
	require.False(t, isErr)
	assert.Contains(t, out, `"KIA"`)
}

func TestHTTPHandler_Auth(t *testing.T) {
	srv := httptest.NewServer(NewHTTPHandler(testService(t), "secret", nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	for _, path := range []string{"/api/cars", "/mcp"} {
		resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(`{}`))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/cars", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPHandler_NoAuthWhenKeyEmpty(t *testing.T) {
	srv := httptest.NewServer(NewHTTPHandler(testService(t), "", nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/cars/K5-2")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
