package catalog

import "github.com/lukman83/carizon/internal/models"

// Paginate returns the zero-based page pageIndex of items. A negative index
// is clamped to zero. An index past the end yields empty content with
// IsLast set. An empty input still reports one page.
func Paginate[T any](items []T, pageIndex, pageSize int) (models.Page[T], error) {
	if pageSize <= 0 {
		return models.Page[T]{}, invalidf("page size must be positive, got %d", pageSize)
	}
	if pageIndex < 0 {
		pageIndex = 0
	}

	total := len(items)
	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}
	if totalPages == 0 {
		totalPages = 1
	}

	content := make([]T, 0)
	if pageIndex < totalPages {
		// pageIndex < totalPages bounds start by total, so nothing overflows.
		start := pageIndex * pageSize
		end := start + min(pageSize, total-start)
		content = append(content, items[start:end]...)
	}

	return models.Page[T]{
		Content:       content,
		PageIndex:     pageIndex,
		PageSize:      pageSize,
		TotalElements: total,
		TotalPages:    totalPages,
		IsFirst:       pageIndex == 0,
		IsLast:        pageIndex >= totalPages-1,
	}, nil
}

// Query filters, sorts and paginates in one call.
func Query(records []models.VehicleRecord, c models.FilterCriteria, pageIndex, pageSize int) (models.Page[models.VehicleRecord], error) {
	if pageSize <= 0 {
		return models.Page[models.VehicleRecord]{}, invalidf("page size must be positive, got %d", pageSize)
	}
	filtered, err := Filter(records, c)
	if err != nil {
		return models.Page[models.VehicleRecord]{}, err
	}
	return Paginate(filtered, pageIndex, pageSize)
}
