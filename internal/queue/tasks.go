package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tms-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPlanningRun 路线规划运行任务
	TaskPlanningRun = constants.TaskPlanningRun
	// TaskLoadPlanReoptimize 装载计划路线重算任务
	TaskLoadPlanReoptimize = constants.TaskLoadPlanReoptimize
	// TaskDeliveryGeocode 配送单地理编码任务
	TaskDeliveryGeocode = constants.TaskDeliveryGeocode
)

// PlanningRunPayload 路线规划任务载荷
type PlanningRunPayload struct {
	TaskID    string     `json:"task_id"`
	UserID    uint       `json:"user_id"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// LoadPlanReoptimizePayload 路线重算任务载荷
type LoadPlanReoptimizePayload struct {
	LoadPlanID uint `json:"load_plan_id"`
}

// DeliveryGeocodePayload 地理编码任务载荷
type DeliveryGeocodePayload struct {
	DeliveryID uint `json:"delivery_id"`
}

// NewPlanningRunTask 创建路线规划任务
func NewPlanningRunTask(payload PlanningRunPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPlanningRun, body), nil
}

// NewLoadPlanReoptimizeTask 创建路线重算任务
func NewLoadPlanReoptimizeTask(payload LoadPlanReoptimizePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLoadPlanReoptimize, body), nil
}

// NewDeliveryGeocodeTask 创建地理编码任务
func NewDeliveryGeocodeTask(payload DeliveryGeocodePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDeliveryGeocode, body), nil
}

// ReoptimizeTaskID 同一装载计划的重算任务共用一个 ID，防抖窗口内重复入队会被合并
func ReoptimizeTaskID(loadPlanID uint) string {
	return fmt.Sprintf("%s:%d", TaskLoadPlanReoptimize, loadPlanID)
}

// GeocodeTaskID 同一配送单同时只排一个地理编码任务
func GeocodeTaskID(deliveryID uint) string {
	return fmt.Sprintf("%s:%d", TaskDeliveryGeocode, deliveryID)
}

// ParsePlanningRunPayload 解析路线规划任务载荷
func ParsePlanningRunPayload(data []byte) (PlanningRunPayload, error) {
	var payload PlanningRunPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

// ParseLoadPlanReoptimizePayload 解析路线重算任务载荷
func ParseLoadPlanReoptimizePayload(data []byte) (LoadPlanReoptimizePayload, error) {
	var payload LoadPlanReoptimizePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

// ParseDeliveryGeocodePayload 解析地理编码任务载荷
func ParseDeliveryGeocodePayload(data []byte) (DeliveryGeocodePayload, error) {
	var payload DeliveryGeocodePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, err
	}
	return payload, nil
}
