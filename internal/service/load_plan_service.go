package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tms-next/internal/constants"
	"github.com/tms-next/internal/idgen"
	"github.com/tms-next/internal/logger"
	"github.com/tms-next/internal/models"
	"github.com/tms-next/internal/optimizer"
	"github.com/tms-next/internal/repository"

	"gorm.io/gorm"
)

// ReoptimizeScheduler 延迟重算路线的调度接口，同一装载计划在防抖窗口内只执行一次
type ReoptimizeScheduler interface {
	ScheduleLoadPlanReoptimize(loadPlanID uint) error
}

// LoadPlanService 装载计划服务
type LoadPlanService struct {
	loadPlanRepo    repository.LoadPlanRepository
	compositionRepo repository.CompositionRepository
	linkRepo        repository.CompositionDeliveryRepository
	routeRepo       repository.RouteRepository
	deliveryRepo    repository.DeliveryRepository
	vehicleRepo     repository.VehicleRepository
	areaRepo        repository.RouteAreaRepository
	locationRepo    repository.CompanyLocationRepository
	optimizer       optimizer.Optimizer
	scheduler       ReoptimizeScheduler
}

// CreateLoadPlanInput 创建装载计划输入
type CreateLoadPlanInput struct {
	Vehicle       *models.Vehicle
	CompositionID *uint
	RouteID       *uint
	PlannedDate   time.Time
	Name          string
	CreatedBy     *uint
}

// NewLoadPlanService 创建装载计划服务
func NewLoadPlanService(
	loadPlanRepo repository.LoadPlanRepository,
	compositionRepo repository.CompositionRepository,
	linkRepo repository.CompositionDeliveryRepository,
	routeRepo repository.RouteRepository,
	deliveryRepo repository.DeliveryRepository,
	vehicleRepo repository.VehicleRepository,
	areaRepo repository.RouteAreaRepository,
	locationRepo repository.CompanyLocationRepository,
	routeOptimizer optimizer.Optimizer,
) *LoadPlanService {
	return &LoadPlanService{
		loadPlanRepo:    loadPlanRepo,
		compositionRepo: compositionRepo,
		linkRepo:        linkRepo,
		routeRepo:       routeRepo,
		deliveryRepo:    deliveryRepo,
		vehicleRepo:     vehicleRepo,
		areaRepo:        areaRepo,
		locationRepo:    locationRepo,
		optimizer:       routeOptimizer,
	}
}

// SetScheduler 注入延迟重算调度器
func (s *LoadPlanService) SetScheduler(scheduler ReoptimizeScheduler) {
	s.scheduler = scheduler
}

// Get 获取装载计划
func (s *LoadPlanService) Get(id uint) (*models.LoadPlan, error) {
	plan, err := s.loadPlanRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrLoadPlanNotFound
	}
	return plan, nil
}

// Deliveries 装载计划内的配送单，按顺序
func (s *LoadPlanService) Deliveries(id uint) ([]models.RouteCompositionDelivery, error) {
	return s.linkRepo.ListByLoadPlan(id)
}

// Create 创建装载计划并快照车辆容量
func (s *LoadPlanService) Create(tx *gorm.DB, input CreateLoadPlanInput) (*models.LoadPlan, error) {
	if input.Vehicle == nil || input.Vehicle.ID == 0 {
		return nil, ErrVehicleNotFound
	}
	plannedDate := input.PlannedDate
	if plannedDate.IsZero() {
		plannedDate = time.Now()
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = fmt.Sprintf("Carga %s", input.Vehicle.LicensePlate)
	}
	plan := &models.LoadPlan{
		Code:               idgen.LoadPlanCode(),
		Name:               name,
		CompositionID:      input.CompositionID,
		VehicleID:          input.Vehicle.ID,
		RouteID:            input.RouteID,
		PlannedDate:        plannedDate,
		Status:             constants.LoadPlanStatusDraft,
		MaxWeightKG:        input.Vehicle.MaxWeightKG,
		MaxVolumeM3:        input.Vehicle.MaxVolumeM3,
		OptimizationStatus: constants.OptimizationStatusPending,
		CreatedBy:          input.CreatedBy,
	}
	if err := s.loadPlanRepo.WithTx(tx).Create(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// RecalculateTotals 按关联配送单重算总量、利用率与超载标记，幂等
func (s *LoadPlanService) RecalculateTotals(tx *gorm.DB, loadPlanID uint) (*models.LoadPlan, error) {
	planRepo := s.loadPlanRepo.WithTx(tx)
	plan, err := planRepo.GetByID(loadPlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrLoadPlanNotFound
	}
	sums, err := s.linkRepo.WithTx(tx).SumByLoadPlan(loadPlanID)
	if err != nil {
		return nil, err
	}
	plan.ApplyTotals(models.LoadTotals{
		WeightKG:   sums.WeightKG,
		VolumeM3:   sums.VolumeM3,
		Value:      sums.Value,
		Deliveries: sums.Deliveries,
	})
	if err := planRepo.UpdateColumns(plan.ID, map[string]interface{}{
		"total_weight_kg":    plan.TotalWeightKG,
		"total_volume_m3":    plan.TotalVolumeM3,
		"total_value":        plan.TotalValue,
		"total_deliveries":   plan.TotalDeliveries,
		"weight_utilization": plan.WeightUtilization,
		"volume_utilization": plan.VolumeUtilization,
		"is_overloaded":      plan.IsOverloaded,
	}); err != nil {
		return nil, err
	}
	return plan, nil
}

// Delete 删除装载计划：关联置空后删除计划及其路线
func (s *LoadPlanService) Delete(ctx context.Context, id uint) error {
	return models.DB.Transaction(func(tx *gorm.DB) error {
		plan, err := s.loadPlanRepo.WithTx(tx).GetByID(id)
		if err != nil {
			return err
		}
		if plan == nil {
			return ErrLoadPlanNotFound
		}
		if err := s.linkRepo.WithTx(tx).ClearLoadPlan(plan.ID); err != nil {
			return err
		}
		if err := s.loadPlanRepo.WithTx(tx).Delete(plan.ID); err != nil {
			return err
		}
		if plan.RouteID != nil {
			if err := s.routeRepo.WithTx(tx).DeleteByIDs([]uint{*plan.RouteID}); err != nil {
				return err
			}
		}
		logger.FromContext(ctx).Infow("load_plan_deleted", "load_plan_id", plan.ID, "composition_id", plan.CompositionID)
		return nil
	})
}

// AssignDeliveries 将配送单放入编排内的装载计划，来源计划与目标计划都重算汇总
func (s *LoadPlanService) AssignDeliveries(ctx context.Context, compositionID, loadPlanID uint, deliveryIDs []uint) error {
	deliveryIDs = uniqueIDs(deliveryIDs)
	if len(deliveryIDs) == 0 {
		return nil
	}
	affected := map[uint]bool{loadPlanID: true}
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		composition, err := s.editableComposition(tx, compositionID)
		if err != nil {
			return err
		}
		plan, err := s.loadPlanRepo.WithTx(tx).GetByID(loadPlanID)
		if err != nil {
			return err
		}
		if plan == nil {
			return ErrLoadPlanNotFound
		}
		if plan.CompositionID == nil || *plan.CompositionID != composition.ID {
			return ErrLoadPlanCompositionMismatch
		}

		linkRepo := s.linkRepo.WithTx(tx)
		var newLinks []models.RouteCompositionDelivery
		var newDeliveryIDs []uint
		for _, deliveryID := range deliveryIDs {
			link, err := linkRepo.GetByDelivery(deliveryID)
			if err != nil {
				return err
			}
			if link == nil {
				delivery, err := s.deliveryRepo.WithTx(tx).GetByID(deliveryID)
				if err != nil {
					return err
				}
				if delivery == nil {
					return ErrDeliveryNotFound
				}
				if delivery.Status != constants.DeliveryStatusPending {
					return fmt.Errorf("%w: delivery %d", ErrDeliveryAlreadyPlanned, deliveryID)
				}
				newLinks = append(newLinks, models.RouteCompositionDelivery{
					CompositionID: composition.ID,
					DeliveryID:    deliveryID,
				})
				newDeliveryIDs = append(newDeliveryIDs, deliveryID)
				continue
			}
			if link.CompositionID != composition.ID {
				return fmt.Errorf("%w: delivery %d", ErrDeliveryAlreadyPlanned, deliveryID)
			}
			if link.LoadPlanID != nil {
				affected[*link.LoadPlanID] = true
			}
		}
		if err := linkRepo.CreateBatch(newLinks); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return ErrDeliveryAlreadyPlanned
			}
			return err
		}
		if rule, ok := compositionCascade[composition.Status]; ok && len(newDeliveryIDs) > 0 {
			if err := s.deliveryRepo.WithTx(tx).UpdateStatus(newDeliveryIDs, rule.DeliveryStatus); err != nil {
				return err
			}
		}

		start, err := linkRepo.MaxSequence(plan.ID)
		if err != nil {
			return err
		}
		if err := linkRepo.AssignToLoadPlan(composition.ID, deliveryIDs, &plan.ID, start+1); err != nil {
			return err
		}
		return s.recalculateAll(tx, affected)
	})
	if err != nil {
		return err
	}
	s.scheduleReoptimize(ctx, affected)
	return nil
}

// UnassignDeliveries 将配送单移出装载计划（保留在编排内）
func (s *LoadPlanService) UnassignDeliveries(ctx context.Context, compositionID uint, deliveryIDs []uint) error {
	deliveryIDs = uniqueIDs(deliveryIDs)
	if len(deliveryIDs) == 0 {
		return nil
	}
	affected := map[uint]bool{}
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		composition, err := s.editableComposition(tx, compositionID)
		if err != nil {
			return err
		}
		linkRepo := s.linkRepo.WithTx(tx)
		for _, deliveryID := range deliveryIDs {
			link, err := linkRepo.GetByDelivery(deliveryID)
			if err != nil {
				return err
			}
			if link == nil || link.CompositionID != composition.ID {
				return fmt.Errorf("%w: delivery %d", ErrDeliveryNotInComposition, deliveryID)
			}
			if link.LoadPlanID != nil {
				affected[*link.LoadPlanID] = true
			}
		}
		if err := linkRepo.AssignToLoadPlan(composition.ID, deliveryIDs, nil, 0); err != nil {
			return err
		}
		return s.recalculateAll(tx, affected)
	})
	if err != nil {
		return err
	}
	s.scheduleReoptimize(ctx, affected)
	return nil
}

// ReoptimizeLoadPlan 按当前关联顺序重新优化装载计划路线；无配送单时清空路线
func (s *LoadPlanService) ReoptimizeLoadPlan(ctx context.Context, loadPlanID uint) error {
	plan, err := s.Get(loadPlanID)
	if err != nil {
		return err
	}
	links, err := s.linkRepo.ListByLoadPlan(plan.ID)
	if err != nil {
		return err
	}
	if len(links) == 0 {
		return s.clearRoute(ctx, plan)
	}

	deliveries := make([]models.Delivery, 0, len(links))
	for _, link := range links {
		if link.Delivery != nil {
			deliveries = append(deliveries, *link.Delivery)
		}
	}
	if plan.Vehicle == nil {
		plan.Vehicle, err = s.vehicleRepo.GetByID(plan.VehicleID)
		if err != nil {
			return err
		}
	}
	var area *models.RouteArea
	if plan.Vehicle != nil && plan.Vehicle.RouteAreaID != nil {
		area, err = s.areaRepo.GetByID(*plan.Vehicle.RouteAreaID)
		if err != nil {
			return err
		}
	}
	departure, err := resolveDeparture(area, s.locationRepo)
	if err != nil {
		return err
	}
	stops := deliveryStops(deliveries)
	if len(stops) == 0 {
		return s.MarkOptimizationFailed(ctx, plan.ID, ErrDeliveryNoCoordinates)
	}
	result, err := s.optimizer.Optimize(ctx, stops, departure, vehicleProfile(plan.Vehicle, ""))
	if err != nil {
		if markErr := s.MarkOptimizationFailed(ctx, plan.ID, err); markErr != nil {
			return markErr
		}
		return err
	}

	routeName := plan.Name
	if plan.Route != nil {
		routeName = plan.Route.Name
	}
	return models.DB.Transaction(func(tx *gorm.DB) error {
		return s.ApplyOptimization(tx, plan, routeName, areaID(area), areaColor(area), result)
	})
}

// ApplyOptimization 写入优化结果：路线站点、里程、时长、几何，并按访问顺序重排关联
func (s *LoadPlanService) ApplyOptimization(tx *gorm.DB, plan *models.LoadPlan, routeName string, routeAreaID *uint, color string, result *optimizer.Result) error {
	if plan == nil || result == nil {
		return nil
	}
	routeRepo := s.routeRepo.WithTx(tx)
	route := &models.Route{Name: routeName, Color: color, RouteAreaID: routeAreaID}
	if plan.RouteID != nil {
		route.ID = *plan.RouteID
	} else if err := routeRepo.Create(route); err != nil {
		return err
	}
	route.Stops = len(result.Ordered)
	route.SetMetrics(result.DistanceMeters, result.DurationSeconds)
	route.Geometry = models.JSON(result.Geometry)
	if err := routeRepo.UpdateMetrics(route); err != nil {
		return err
	}

	stops := make([]models.RouteStop, 0, len(result.Ordered))
	ordered := make([]uint, 0, len(result.Ordered))
	for i, stop := range result.Ordered {
		lat, lng := stop.Coordinate.Latitude, stop.Coordinate.Longitude
		stops = append(stops, models.RouteStop{
			DeliveryID: stop.DeliveryID,
			Position:   i + 1,
			Latitude:   &lat,
			Longitude:  &lng,
		})
		ordered = append(ordered, stop.DeliveryID)
	}
	if err := routeRepo.ReplaceStops(route.ID, stops); err != nil {
		return err
	}
	if plan.CompositionID != nil {
		if err := s.linkRepo.WithTx(tx).AssignToLoadPlan(*plan.CompositionID, ordered, &plan.ID, 1); err != nil {
			return err
		}
	}
	plan.RouteID = &route.ID
	plan.OptimizationStatus = constants.OptimizationStatusOptimized
	plan.OptimizationError = ""
	return s.loadPlanRepo.WithTx(tx).UpdateColumns(plan.ID, map[string]interface{}{
		"route_id":            route.ID,
		"optimization_status": constants.OptimizationStatusOptimized,
		"optimization_error":  "",
	})
}

// MarkOptimizationFailed 记录优化失败，已有路线的站点、里程、时长与几何一并清空
func (s *LoadPlanService) MarkOptimizationFailed(ctx context.Context, loadPlanID uint, cause error) error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	logger.FromContext(ctx).Warnw("load_plan_optimize_failed", "load_plan_id", loadPlanID, "error", message)
	return models.DB.Transaction(func(tx *gorm.DB) error {
		plan, err := s.loadPlanRepo.WithTx(tx).GetByID(loadPlanID)
		if err != nil {
			return err
		}
		if plan == nil {
			return ErrLoadPlanNotFound
		}
		if plan.RouteID != nil {
			if err := s.resetRoute(tx, *plan.RouteID); err != nil {
				return err
			}
		}
		return s.loadPlanRepo.WithTx(tx).UpdateColumns(loadPlanID, map[string]interface{}{
			"optimization_status": constants.OptimizationStatusFailed,
			"optimization_error":  message,
		})
	})
}

func (s *LoadPlanService) clearRoute(ctx context.Context, plan *models.LoadPlan) error {
	return models.DB.Transaction(func(tx *gorm.DB) error {
		if plan.RouteID != nil {
			if err := s.resetRoute(tx, *plan.RouteID); err != nil {
				return err
			}
			logger.FromContext(ctx).Infow("load_plan_route_cleared", "load_plan_id", plan.ID, "route_id", *plan.RouteID)
		}
		return s.loadPlanRepo.WithTx(tx).UpdateColumns(plan.ID, map[string]interface{}{
			"optimization_status": constants.OptimizationStatusPending,
			"optimization_error":  "",
		})
	})
}

// resetRoute 删除站点并把里程、时长、几何归零，路线本身保留给装载计划
func (s *LoadPlanService) resetRoute(tx *gorm.DB, routeID uint) error {
	routeRepo := s.routeRepo.WithTx(tx)
	if err := routeRepo.ReplaceStops(routeID, nil); err != nil {
		return err
	}
	return routeRepo.UpdateMetrics(&models.Route{ID: routeID, Geometry: models.JSON{}})
}

func (s *LoadPlanService) editableComposition(tx *gorm.DB, compositionID uint) (*models.RouteComposition, error) {
	composition, err := s.compositionRepo.WithTx(tx).GetByIDForUpdate(compositionID)
	if err != nil {
		return nil, err
	}
	if composition == nil {
		return nil, ErrCompositionNotFound
	}
	if isTerminalComposition(composition.Status) {
		return nil, ErrCompositionTerminal
	}
	return composition, nil
}

func (s *LoadPlanService) recalculateAll(tx *gorm.DB, planIDs map[uint]bool) error {
	for _, id := range sortedIDs(planIDs) {
		if _, err := s.RecalculateTotals(tx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *LoadPlanService) scheduleReoptimize(ctx context.Context, planIDs map[uint]bool) {
	if s.scheduler == nil {
		return
	}
	for _, id := range sortedIDs(planIDs) {
		if err := s.scheduler.ScheduleLoadPlanReoptimize(id); err != nil {
			logger.FromContext(ctx).Warnw("load_plan_reoptimize_schedule_failed", "load_plan_id", id, "error", err)
		}
	}
}

func areaID(area *models.RouteArea) *uint {
	if area == nil {
		return nil
	}
	id := area.ID
	return &id
}

func areaColor(area *models.RouteArea) string {
	if area == nil {
		return ""
	}
	return area.HexColor
}
