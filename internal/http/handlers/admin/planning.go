package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/tms-next/internal/http/handlers/shared"
	"github.com/tms-next/internal/http/response"
	"github.com/tms-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// PlanningRunRequest 发起规划请求，日期格式 YYYY-MM-DD
type PlanningRunRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// CreatePlanningRun 发起一次异步路线规划
func (h *Handler) CreatePlanningRun(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req PlanningRunRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
	}
	start, err := handlershared.ParseDate(req.StartDate)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.planning_range_invalid", nil)
		return
	}
	end, err := handlershared.ParseEndDate(req.EndDate)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.planning_range_invalid", nil)
		return
	}

	record, err := h.PlanningService.Enqueue(requestContext(c), userID, start, end)
	if err != nil {
		respondServiceError(c, err, "error.planning_enqueue_failed")
		return
	}
	response.Success(c, gin.H{
		"task_id": record.TaskID,
		"status":  record.Status,
	})
}

// GetTask 查询后台任务进度
func (h *Handler) GetTask(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	taskID := strings.TrimSpace(c.Param("task_id"))
	if taskID == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	record, err := h.Notifier.GetTask(userID, taskID)
	if err != nil {
		respondServiceError(c, err, "error.task_fetch_failed")
		return
	}
	response.Success(c, record)
}

// GetNotifications 当前用户通知列表
func (h *Handler) GetNotifications(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.QueryPagination(c)
	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))

	items, total, err := h.Notifier.ListNotifications(repository.NotificationListFilter{
		Page:       page,
		PageSize:   pageSize,
		UserID:     userID,
		UnreadOnly: unreadOnly,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.notification_failed", err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// MarkNotificationRead 标记通知已读
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.Notifier.MarkRead(userID, id); err != nil {
		respondServiceError(c, err, "error.notification_failed")
		return
	}
	response.Success(c, gin.H{"id": id, "read": true})
}
