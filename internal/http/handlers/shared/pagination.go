package shared

import (
	"strconv"
	"strings"
	"time"

	"github.com/tms-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// NormalizePagination 归一化分页参数。
func NormalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// QueryPagination 读取 page / page_size 查询参数
func QueryPagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return NormalizePagination(page, pageSize)
}

// BuildPagination 组装分页信息
func BuildPagination(page, pageSize int, total int64) response.Pagination {
	return response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
}

// ParseUintParam 解析路径中的正整数 ID
func ParseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return 0, false
	}
	return uint(value), true
}

// ParseDate 解析 YYYY-MM-DD 或 RFC3339 日期，空值返回 nil
func ParseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if parsed, err := time.ParseInLocation(dateLayout, raw, time.Local); err == nil {
		return &parsed, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// ParseEndDate 解析结束日期，纯日期扩展到当天最后一刻
func ParseEndDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := ParseDate(raw)
	if err != nil || parsed == nil {
		return parsed, err
	}
	if len(raw) == len(dateLayout) {
		end := parsed.Add(24*time.Hour - time.Nanosecond)
		return &end, nil
	}
	return parsed, nil
}
