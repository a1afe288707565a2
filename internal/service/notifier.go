package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tms-next/internal/cache"
	"github.com/tms-next/internal/constants"
	"github.com/tms-next/internal/logger"
	"github.com/tms-next/internal/models"
	"github.com/tms-next/internal/repository"
)

// TaskRef 进度推送目标
type TaskRef struct {
	TaskID string
	UserID uint
}

// ProgressEvent 任务进度推送内容
type ProgressEvent struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
	Percent int    `json:"percent"`
	Status  string `json:"status"`
}

// AlertEvent 站内提醒推送内容
type AlertEvent struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Level   string `json:"level"`
	Link    string `json:"link,omitempty"`
}

// Notifier 持久化任务进度与通知，并通过 Redis 频道推送
type Notifier struct {
	taskRepo         repository.TaskRecordRepository
	notificationRepo repository.NotificationRepository
}

// NewNotifier 创建通知器
func NewNotifier(taskRepo repository.TaskRecordRepository, notificationRepo repository.NotificationRepository) *Notifier {
	return &Notifier{
		taskRepo:         taskRepo,
		notificationRepo: notificationRepo,
	}
}

// TaskChannel 用户任务进度频道
func TaskChannel(userID uint) string {
	return fmt.Sprintf("tasks:%d", userID)
}

// AlertChannel 用户提醒频道
func AlertChannel(userID uint) string {
	return fmt.Sprintf("alerts:%d", userID)
}

// CreateTask 入队前登记任务
func (n *Notifier) CreateTask(ref TaskRef, name string) (*models.TaskRecord, error) {
	record := &models.TaskRecord{
		TaskID:  ref.TaskID,
		UserID:  ref.UserID,
		Name:    strings.TrimSpace(name),
		Status:  constants.TaskStatusPending,
		Message: "",
	}
	if err := n.taskRepo.Create(record); err != nil {
		return nil, err
	}
	return record, nil
}

// GetTask 读取任务记录，限定发起人
func (n *Notifier) GetTask(userID uint, taskID string) (*models.TaskRecord, error) {
	record, err := n.taskRepo.GetByTaskID(strings.TrimSpace(taskID))
	if err != nil {
		return nil, err
	}
	if record == nil || record.UserID != userID {
		return nil, ErrTaskNotFound
	}
	return record, nil
}

// Progress 更新运行中进度
func (n *Notifier) Progress(ctx context.Context, ref TaskRef, percent int, message string) {
	columns := map[string]interface{}{
		"percent": clampPercent(percent),
		"status":  constants.TaskStatusRunning,
		"message": message,
	}
	if percent <= 1 {
		columns["started_at"] = time.Now()
	}
	if err := n.taskRepo.UpdateColumns(ref.TaskID, columns); err != nil {
		logger.FromContext(ctx).Warnw("task_progress_persist_failed", "task_id", ref.TaskID, "error", err)
	}
	n.publishProgress(ctx, ref, ProgressEvent{
		TaskID:  ref.TaskID,
		Message: message,
		Percent: clampPercent(percent),
		Status:  constants.TaskStatusRunning,
	})
}

// Finish 任务结束，status 为 success 或 failure
func (n *Notifier) Finish(ctx context.Context, ref TaskRef, status, message string, result models.JSON, errText string) {
	columns := map[string]interface{}{
		"percent":     100,
		"status":      status,
		"message":     message,
		"error":       errText,
		"finished_at": time.Now(),
	}
	if result != nil {
		columns["result"] = result
	}
	if err := n.taskRepo.UpdateColumns(ref.TaskID, columns); err != nil {
		logger.FromContext(ctx).Warnw("task_finish_persist_failed", "task_id", ref.TaskID, "error", err)
	}
	n.publishProgress(ctx, ref, ProgressEvent{
		TaskID:  ref.TaskID,
		Message: message,
		Percent: 100,
		Status:  status,
	})
}

// Notify 创建站内通知并推送
func (n *Notifier) Notify(ctx context.Context, userID uint, title, message, level, link string) {
	if userID == 0 {
		return
	}
	notification := &models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Level:   level,
		Link:    link,
	}
	if err := n.notificationRepo.Create(notification); err != nil {
		logger.FromContext(ctx).Warnw("notification_persist_failed", "user_id", userID, "title", title, "error", err)
	}
	event := AlertEvent{Title: title, Message: message, Level: level, Link: link}
	if err := cache.Publish(ctx, AlertChannel(userID), event); err != nil {
		logger.FromContext(ctx).Warnw("notification_publish_failed", "user_id", userID, "error", err)
	}
}

// ListNotifications 用户通知列表
func (n *Notifier) ListNotifications(filter repository.NotificationListFilter) ([]models.Notification, int64, error) {
	return n.notificationRepo.List(filter)
}

// MarkRead 标记通知已读
func (n *Notifier) MarkRead(userID, id uint) error {
	ok, err := n.notificationRepo.MarkRead(userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}

func (n *Notifier) publishProgress(ctx context.Context, ref TaskRef, event ProgressEvent) {
	if ref.UserID == 0 {
		return
	}
	if err := cache.Publish(ctx, TaskChannel(ref.UserID), event); err != nil {
		logger.FromContext(ctx).Warnw("task_progress_publish_failed", "task_id", ref.TaskID, "error", err)
	}
}

func clampPercent(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
