package types

import "github.com/labstack/echo/v4"

// PageMeta is the pagination block of a list response's meta.
type PageMeta struct {
	Page        int  `json:"page"`
	PageSize    int  `json:"pageSize"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	HasNextPage bool `json:"hasNextPage"`
}

func NewPageMeta(page int, pageSize int, totalCount int) PageMeta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (totalCount + pageSize - 1) / pageSize
	}
	return PageMeta{
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  totalPages,
		TotalCount:  totalCount,
		HasNextPage: page < totalPages,
	}
}

// Data renders the success envelope {"data": ...}.
func Data(c echo.Context, status int, data any) error {
	return c.JSON(status, map[string]any{"data": data})
}

// DataWithMeta renders the success envelope {"data": ..., "meta": ...}.
func DataWithMeta(c echo.Context, status int, data any, meta any) error {
	return c.JSON(status, map[string]any{"data": data, "meta": meta})
}
