package admin

import (
	"strings"

	handlershared "github.com/tms-next/internal/http/handlers/shared"
	"github.com/tms-next/internal/http/response"
	"github.com/tms-next/internal/repository"

	"github.com/gin-gonic/gin"
)

const defaultImportMaxSize int64 = 10 << 20

// GetDeliveries 配送单列表
func (h *Handler) GetDeliveries(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)
	createdFrom, err := handlershared.ParseDate(c.Query("created_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	createdTo, err := handlershared.ParseEndDate(c.Query("created_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	items, total, err := h.DeliveryService.List(repository.DeliveryListFilter{
		Page:        page,
		PageSize:    pageSize,
		Status:      strings.TrimSpace(c.Query("status")),
		City:        strings.TrimSpace(c.Query("city")),
		Keyword:     strings.TrimSpace(c.Query("keyword")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.delivery_failed", err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// GetDelivery 配送单详情
func (h *Handler) GetDelivery(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	delivery, err := h.DeliveryService.Get(id)
	if err != nil {
		respondServiceError(c, err, "error.delivery_failed")
		return
	}
	response.Success(c, delivery)
}

// ImportDeliveries 上传表格导入配送单
func (h *Handler) ImportDeliveries(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.import_file_missing", nil)
		return
	}
	maxSize := h.Config.Import.MaxSize
	if maxSize <= 0 {
		maxSize = defaultImportMaxSize
	}
	if fileHeader.Size > maxSize {
		respondError(c, response.CodeBadRequest, "error.import_file_too_large", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.import_file_invalid", err)
		return
	}
	defer file.Close()

	result, err := h.ImportService.Import(requestContext(c), file, userID)
	if err != nil {
		respondServiceError(c, err, "error.import_failed")
		return
	}
	response.Success(c, result)
}

// CancelDelivery 取消配送单
func (h *Handler) CancelDelivery(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	delivery, err := h.DeliveryService.Cancel(requestContext(c), id)
	if err != nil {
		respondServiceError(c, err, "error.delivery_failed")
		return
	}
	response.Success(c, delivery)
}

// GeocodeDelivery 重新地理编码，队列启用时异步执行
func (h *Handler) GeocodeDelivery(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.DeliveryService.EnqueueGeocode(requestContext(c), id); err != nil {
		respondServiceError(c, err, "error.delivery_failed")
		return
	}
	delivery, err := h.DeliveryService.Get(id)
	if err != nil {
		respondServiceError(c, err, "error.delivery_failed")
		return
	}
	response.Success(c, delivery)
}
