// internal/utils/pagination.go
package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PaginationParams struct {
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Sort   string `json:"sort"`
	Order  string `json:"order"`
	Search string `json:"search"`
}

type PaginationResult struct {
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
	Data       interface{} `json:"data"`
}

func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	return NormalizePagination(PaginationParams{
		Page:   page,
		Limit:  limit,
		Sort:   c.Query("sort"),
		Order:  strings.ToLower(c.DefaultQuery("order", "desc")),
		Search: strings.TrimSpace(c.Query("search")),
	})
}

// NormalizePagination clamps page and limit and defaults the order.
func NormalizePagination(params PaginationParams) PaginationParams {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 || params.Limit > 100 {
		params.Limit = 20
	}
	if params.Order != "asc" && params.Order != "desc" {
		params.Order = "desc"
	}
	return params
}

func ApplyPagination(db *gorm.DB, params PaginationParams) *gorm.DB {
	offset := (params.Page - 1) * params.Limit
	return db.Offset(offset).Limit(params.Limit)
}

// ApplySort orders by params.Sort when it is one of allowedSortFields and by
// defaultField otherwise. Fields are passed through verbatim, so callers may
// qualify them with a table name.
func ApplySort(db *gorm.DB, params PaginationParams, allowedSortFields []string, defaultField string) *gorm.DB {
	sortField := defaultField
	for _, field := range allowedSortFields {
		if field == params.Sort {
			sortField = field
			break
		}
	}

	return db.Order(sortField + " " + params.Order)
}

func CreatePaginationResult(data interface{}, total int64, params PaginationParams) PaginationResult {
	totalPages := int(math.Ceil(float64(total) / float64(params.Limit)))

	return PaginationResult{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
		Data:       data,
	}
}

func SetPaginationHeaders(c *gin.Context, result PaginationResult) {
	c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
	c.Header("X-Page", strconv.Itoa(result.Page))
	c.Header("X-Per-Page", strconv.Itoa(result.Limit))
	c.Header("X-Total-Pages", strconv.Itoa(result.TotalPages))
}

// LikePattern wraps a search term for a case-insensitive LIKE match.
func LikePattern(term string) string {
	term = strings.NewReplacer("%", "", "_", "").Replace(strings.ToLower(term))
	return "%" + term + "%"
}
