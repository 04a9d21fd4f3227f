package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lukman83/carizon/internal/api"
	"github.com/lukman83/carizon/internal/market"
	"github.com/lukman83/carizon/internal/models"
)

type tools struct {
	svc *market.Service
}

func registerTools(s *server.MCPServer, svc *market.Service) {
	t := &tools{svc: svc}

	// search_vehicles
	searchTool := mcp.NewTool("search_vehicles",
		mcp.WithDescription("Search used-car listings aggregated across Korean platforms, with min/max price, cheapest platform and spread band per vehicle"),
		mcp.WithString("query", mcp.Description("Free-text terms matched against maker, model, trim, grade, plate and id")),
		mcp.WithString("maker", mcp.Description("Maker name, substring match (e.g. HYUNDAI)")),
		mcp.WithString("model_group", mcp.Description("Model group, substring match")),
		mcp.WithString("model", mcp.Description("Model, substring match")),
		mcp.WithString("trim", mcp.Description("Trim, substring match")),
		mcp.WithString("grade", mcp.Description("Grade, substring match")),
		mcp.WithString("color", mcp.Description("Color, substring match")),
		mcp.WithString("fuel", mcp.Description("Fuel type, substring match")),
		mcp.WithString("transmission", mcp.Description("Transmission, substring match")),
		mcp.WithString("region", mcp.Description("Region, substring match")),
		mcp.WithNumber("price_min", mcp.Description("Minimum of the vehicle's lowest price, KRW")),
		mcp.WithNumber("price_max", mcp.Description("Maximum of the vehicle's lowest price, KRW")),
		mcp.WithNumber("mileage_min", mcp.Description("Minimum mileage, km")),
		mcp.WithNumber("mileage_max", mcp.Description("Maximum mileage, km")),
		mcp.WithNumber("year_min", mcp.Description("Minimum model year")),
		mcp.WithNumber("year_max", mcp.Description("Maximum model year")),
		mcp.WithString("sources", mcp.Description("Comma-separated platforms; a vehicle matches if listed on any (e.g. ENCAR,KCAR)")),
		mcp.WithString("sort", mcp.Description("price_asc, price_desc, mileage_asc or year_desc")),
		mcp.WithNumber("page", mcp.Description("Zero-based page index (default: 0)")),
		mcp.WithNumber("size", mcp.Description("Vehicles per page (default from server config)")),
	)
	s.AddTool(searchTool, t.handleSearchVehicles)

	// vehicle_detail
	detailTool := mcp.NewTool("vehicle_detail",
		mcp.WithDescription("Get one vehicle with every platform listing compared against the representative (median) price"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Vehicle id or number plate"),
		),
	)
	s.AddTool(detailTool, t.handleVehicleDetail)

	// price_history
	historyTool := mcp.NewTool("price_history",
		mcp.WithDescription("Get a vehicle's recorded price checks, oldest first"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Vehicle id or number plate"),
		),
		mcp.WithString("source", mcp.Description("Restrict to one platform")),
	)
	s.AddTool(historyTool, t.handlePriceHistory)

	// list_sources
	sourcesTool := mcp.NewTool("list_sources",
		mcp.WithDescription("List platforms with listing counts, price range and how often each is cheapest"),
	)
	s.AddTool(sourcesTool, t.handleListSources)

	// list_makers
	makersTool := mcp.NewTool("list_makers",
		mcp.WithDescription("Count vehicles per maker with the cheapest price seen"),
		mcp.WithString("query", mcp.Description("Maker name filter, substring match")),
	)
	s.AddTool(makersTool, t.handleListMakers)
}

func (t *tools) handleSearchVehicles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c := models.FilterCriteria{
		Query:        request.GetString("query", ""),
		Maker:        request.GetString("maker", ""),
		ModelGroup:   request.GetString("model_group", ""),
		Model:        request.GetString("model", ""),
		Trim:         request.GetString("trim", ""),
		Grade:        request.GetString("grade", ""),
		Color:        request.GetString("color", ""),
		Fuel:         request.GetString("fuel", ""),
		Transmission: request.GetString("transmission", ""),
		Region:       request.GetString("region", ""),
		Sources:      api.SplitList(request.GetString("sources", "")),
		Sort:         api.NormalizeSort(request.GetString("sort", "")),
	}

	args := request.GetArguments()
	var err error
	if c.PriceMin, err = optInt64(args, "price_min"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if c.PriceMax, err = optInt64(args, "price_max"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if c.MileageMin, err = optInt(args, "mileage_min"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if c.MileageMax, err = optInt(args, "mileage_max"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if c.YearMin, err = optInt(args, "year_min"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if c.YearMax, err = optInt(args, "year_max"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	page, err := t.svc.Search(ctx, c, request.GetInt("page", 0), request.GetInt("size", 0))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search error: %v", err)), nil
	}
	return jsonResult(page)
}

func (t *tools) handleVehicleDetail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	detail, err := t.svc.Detail(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("detail error: %v", err)), nil
	}
	return jsonResult(detail)
}

func (t *tools) handlePriceHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}

	points, err := t.svc.History(ctx, id, request.GetString("source", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history error: %v", err)), nil
	}
	return jsonResult(points)
}

func (t *tools) handleListSources(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.svc.Sources(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("sources error: %v", err)), nil
	}
	return jsonResult(stats)
}

func (t *tools) handleListMakers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.svc.Makers(ctx, request.GetString("query", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("makers error: %v", err)), nil
	}
	return jsonResult(stats)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// optInt64 reads an optional whole-number argument. Absent and null both
// mean no constraint.
func optInt64(args map[string]any, key string) (*int64, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	f, ok := raw.(float64)
	if !ok {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%s must be a whole number", key)
	}
	n := int64(f)
	return &n, nil
}

func optInt(args map[string]any, key string) (*int, error) {
	n, err := optInt64(args, key)
	if err != nil || n == nil {
		return nil, err
	}
	v := int(*n)
	return &v, nil
}
