package worker

import (
	"context"
	"errors"

	"github.com/tms-next/internal/geocoder"
	"github.com/tms-next/internal/logger"
	"github.com/tms-next/internal/provider"
	"github.com/tms-next/internal/queue"
	"github.com/tms-next/internal/service"

	"github.com/hibiken/asynq"
)

// PlanningRunner 路线规划执行接口
type PlanningRunner interface {
	Run(ctx context.Context, input service.PlanningRunInput) (*service.PlanningSummary, error)
}

// LoadPlanReoptimizer 装载计划路线重算接口
type LoadPlanReoptimizer interface {
	ReoptimizeLoadPlan(ctx context.Context, loadPlanID uint) error
}

// DeliveryGeocoder 配送单地理编码接口
type DeliveryGeocoder interface {
	Geocode(ctx context.Context, id uint) error
	SweepMissingCoordinates(ctx context.Context, limit int) (int, error)
}

// Consumer 异步任务消费者
type Consumer struct {
	planning   PlanningRunner
	reoptimize LoadPlanReoptimizer
	geocode    DeliveryGeocoder
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	if c == nil {
		return &Consumer{}
	}
	return &Consumer{
		planning:   c.PlanningService,
		reoptimize: c.LoadPlanService,
		geocode:    deliveryGeocodeAdapter{svc: c.DeliveryService},
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskPlanningRun, c.handlePlanningRun)
	mux.HandleFunc(queue.TaskLoadPlanReoptimize, c.handleLoadPlanReoptimize)
	mux.HandleFunc(queue.TaskDeliveryGeocode, c.handleDeliveryGeocode)
}

func (c *Consumer) handlePlanningRun(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.planning == nil {
		logger.Debugw("worker_planning_run_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParsePlanningRunPayload(task.Payload())
	if err != nil {
		logger.Warnw("worker_planning_run_unmarshal_failed", "error", err)
		return err
	}
	if payload.TaskID == "" {
		logger.Debugw("worker_planning_run_skip_invalid_payload", "user_id", payload.UserID)
		return nil
	}
	ctx = logger.WithContext(ctx, "task_id", payload.TaskID, "user_id", payload.UserID)
	summary, err := c.planning.Run(ctx, service.PlanningRunInput{
		TaskID:    payload.TaskID,
		UserID:    payload.UserID,
		StartDate: payload.StartDate,
		EndDate:   payload.EndDate,
	})
	if err != nil {
		if errors.Is(err, service.ErrNoValidAreas) {
			logger.FromContext(ctx).Debugw("worker_planning_run_no_areas")
			return nil
		}
		logger.FromContext(ctx).Warnw("worker_planning_run_failed", "error", err)
		return err
	}
	if summary != nil {
		logger.FromContext(ctx).Infow("worker_planning_run_finished",
			"outcome", summary.Outcome,
			"composition_id", summary.CompositionID,
			"load_plans", summary.LoadPlans,
			"unassigned", summary.Unassigned,
		)
	}
	return nil
}

func (c *Consumer) handleLoadPlanReoptimize(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.reoptimize == nil {
		logger.Debugw("worker_load_plan_reoptimize_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseLoadPlanReoptimizePayload(task.Payload())
	if err != nil {
		logger.Warnw("worker_load_plan_reoptimize_unmarshal_failed", "error", err)
		return err
	}
	if payload.LoadPlanID == 0 {
		logger.Debugw("worker_load_plan_reoptimize_skip_invalid_payload", "load_plan_id", payload.LoadPlanID)
		return nil
	}
	if err := c.reoptimize.ReoptimizeLoadPlan(ctx, payload.LoadPlanID); err != nil {
		switch {
		case errors.Is(err, service.ErrLoadPlanNotFound):
			logger.Debugw("worker_load_plan_reoptimize_skip_not_found", "load_plan_id", payload.LoadPlanID)
			return nil
		case errors.Is(err, service.ErrDeliveryNoCoordinates):
			logger.Debugw("worker_load_plan_reoptimize_skip_no_coordinates", "load_plan_id", payload.LoadPlanID)
			return nil
		default:
			// 优化失败已记录在装载计划上，交给队列重试
			logger.Warnw("worker_load_plan_reoptimize_failed", "load_plan_id", payload.LoadPlanID, "error", err)
			return err
		}
	}
	return nil
}

func (c *Consumer) handleDeliveryGeocode(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.geocode == nil {
		logger.Debugw("worker_delivery_geocode_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseDeliveryGeocodePayload(task.Payload())
	if err != nil {
		logger.Warnw("worker_delivery_geocode_unmarshal_failed", "error", err)
		return err
	}
	if payload.DeliveryID == 0 {
		logger.Debugw("worker_delivery_geocode_skip_invalid_payload", "delivery_id", payload.DeliveryID)
		return nil
	}
	if err := c.geocode.Geocode(ctx, payload.DeliveryID); err != nil {
		switch {
		case errors.Is(err, service.ErrDeliveryNotFound):
			logger.Debugw("worker_delivery_geocode_skip_not_found", "delivery_id", payload.DeliveryID)
			return nil
		case errors.Is(err, service.ErrGeocodeFailed), errors.Is(err, geocoder.ErrDisabled):
			logger.Debugw("worker_delivery_geocode_skip", "delivery_id", payload.DeliveryID, "error", err)
			return nil
		default:
			logger.Warnw("worker_delivery_geocode_failed", "delivery_id", payload.DeliveryID, "error", err)
			return err
		}
	}
	return nil
}

// deliveryGeocodeAdapter 丢弃返回的配送单，只保留错误
type deliveryGeocodeAdapter struct {
	svc *service.DeliveryService
}

func (a deliveryGeocodeAdapter) Geocode(ctx context.Context, id uint) error {
	if a.svc == nil {
		return nil
	}
	_, err := a.svc.Geocode(ctx, id)
	return err
}

func (a deliveryGeocodeAdapter) SweepMissingCoordinates(ctx context.Context, limit int) (int, error) {
	if a.svc == nil {
		return 0, nil
	}
	return a.svc.SweepMissingCoordinates(ctx, limit)
}
