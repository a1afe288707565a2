package admin

import (
	"github.com/tms-next/internal/http/response"
	"github.com/tms-next/internal/models"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// LoadPlanDetail 装载计划详情
type LoadPlanDetail struct {
	*models.LoadPlan
	Deliveries []models.RouteCompositionDelivery `json:"deliveries"`
}

// GetLoadPlan 装载计划详情
func (h *Handler) GetLoadPlan(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	plan, err := h.LoadPlanService.Get(id)
	if err != nil {
		respondServiceError(c, err, "error.load_plan_failed")
		return
	}
	links, err := h.LoadPlanService.Deliveries(id)
	if err != nil {
		respondError(c, response.CodeInternal, "error.load_plan_failed", err)
		return
	}
	response.Success(c, LoadPlanDetail{LoadPlan: plan, Deliveries: links})
}

// DeleteLoadPlan 删除装载计划，配送单退回编排未分配
func (h *Handler) DeleteLoadPlan(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.LoadPlanService.Delete(requestContext(c), id); err != nil {
		respondServiceError(c, err, "error.load_plan_failed")
		return
	}
	response.Success(c, gin.H{"id": id, "deleted": true})
}

// OptimizeLoadPlan 同步重算装载计划路线
func (h *Handler) OptimizeLoadPlan(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.LoadPlanService.ReoptimizeLoadPlan(requestContext(c), id); err != nil {
		respondServiceError(c, err, "error.load_plan_optimize")
		return
	}
	plan, err := h.LoadPlanService.Get(id)
	if err != nil {
		respondServiceError(c, err, "error.load_plan_failed")
		return
	}
	response.Success(c, plan)
}

// ExportLoadPlan 导出装载计划表格
func (h *Handler) ExportLoadPlan(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	buf, filename, err := h.ExportService.ExportLoadPlan(id)
	if err != nil {
		respondServiceError(c, err, "error.export_failed")
		return
	}
	response.Attachment(c, filename, xlsxContentType, buf.Bytes())
}
