package admin

import (
	"strings"

	handlershared "github.com/tms-next/internal/http/handlers/shared"
	"github.com/tms-next/internal/http/response"
	"github.com/tms-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// CompositionStatusRequest 编排状态变更请求
type CompositionStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AddLoadPlansRequest 手动添加装载计划请求
type AddLoadPlansRequest struct {
	VehicleIDs []uint `json:"vehicle_ids" binding:"required,min=1"`
}

// DeliveryAssignRequest 配送单分配请求，取消分配时 load_plan_id 可省略
type DeliveryAssignRequest struct {
	LoadPlanID  uint   `json:"load_plan_id"`
	DeliveryIDs []uint `json:"delivery_ids" binding:"required,min=1"`
}

// GetCompositions 编排列表
func (h *Handler) GetCompositions(c *gin.Context) {
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

	items, total, err := h.CompositionService.List(repository.CompositionListFilter{
		Page:        page,
		PageSize:    pageSize,
		Status:      strings.TrimSpace(c.Query("status")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.composition_failed", err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// GetComposition 编排详情及汇总
func (h *Handler) GetComposition(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	stats, err := h.CompositionService.Stats(id)
	if err != nil {
		respondServiceError(c, err, "error.composition_failed")
		return
	}
	response.Success(c, stats)
}

// UpdateCompositionStatus 变更编排状态
func (h *Handler) UpdateCompositionStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req CompositionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	composition, err := h.CompositionService.Transition(requestContext(c), id, strings.TrimSpace(req.Status))
	if err != nil {
		respondServiceError(c, err, "error.composition_failed")
		return
	}
	response.Success(c, composition)
}

// AddCompositionLoadPlans 为所选车辆添加空装载计划
func (h *Handler) AddCompositionLoadPlans(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req AddLoadPlansRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.CompositionService.AddLoadPlans(requestContext(c), id, req.VehicleIDs, &userID)
	if err != nil {
		respondServiceError(c, err, "error.composition_failed")
		return
	}
	response.Success(c, result)
}

// AssignCompositionDeliveries 将配送单分配到装载计划
func (h *Handler) AssignCompositionDeliveries(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req DeliveryAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if req.LoadPlanID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if err := h.LoadPlanService.AssignDeliveries(requestContext(c), id, req.LoadPlanID, req.DeliveryIDs); err != nil {
		respondServiceError(c, err, "error.load_plan_failed")
		return
	}
	response.Success(c, gin.H{"assigned": len(req.DeliveryIDs)})
}

// UnassignCompositionDeliveries 将配送单移出装载计划
func (h *Handler) UnassignCompositionDeliveries(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req DeliveryAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.LoadPlanService.UnassignDeliveries(requestContext(c), id, req.DeliveryIDs); err != nil {
		respondServiceError(c, err, "error.load_plan_failed")
		return
	}
	response.Success(c, gin.H{"unassigned": len(req.DeliveryIDs)})
}
