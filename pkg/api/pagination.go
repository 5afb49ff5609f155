package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PageRequest represents pagination request parameters
type PageRequest struct {
	Page     int64 `json:"page"`
	PageSize int64 `json:"pageSize"`
}

// Normalize clamps page and size into the accepted range
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

// Offset calculates the offset for store queries
func (p PageRequest) Offset() int64 {
	return (p.Page - 1) * p.PageSize
}

// PageResponse represents a paginated response
type PageResponse[T any] struct {
	Data       []T   `json:"data"`
	Page       int64 `json:"page"`
	PageSize   int64 `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int64 `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPageResponse creates a new paginated response
func NewPageResponse[T any](data []T, page PageRequest, totalItems int64) PageResponse[T] {
	totalPages := (totalItems + page.PageSize - 1) / page.PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if data == nil {
		data = []T{}
	}

	return PageResponse[T]{
		Data:       data,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
		HasNext:    page.Page < totalPages,
		HasPrev:    page.Page > 1,
	}
}

// ParsePagination parses pagination parameters from Gin context
func ParsePagination(c *gin.Context) PageRequest {
	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	pageSize, _ := strconv.ParseInt(c.DefaultQuery("pageSize", strconv.Itoa(defaultPageSize)), 10, 64)
	return PageRequest{Page: page, PageSize: pageSize}.Normalize()
}
