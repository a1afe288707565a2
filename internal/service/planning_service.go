package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/tms-next/internal/constants"
	"github.com/tms-next/internal/geo"
	"github.com/tms-next/internal/logger"
	"github.com/tms-next/internal/models"
	"github.com/tms-next/internal/optimizer"
	"github.com/tms-next/internal/packing"
	"github.com/tms-next/internal/queue"
	"github.com/tms-next/internal/repository"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"gorm.io/gorm"
)

// 规划运行结果类型
const (
	PlanningOutcomeCompleted    = "completed"
	PlanningOutcomeNoDeliveries = "no_deliveries"
	PlanningOutcomeNoAreas      = "no_areas"
	PlanningOutcomeFailed       = "failed"
)

var errLoadEmpty = errors.New("load has no linked deliveries")

// PlanningOptions 分配策略开关
type PlanningOptions struct {
	CrossAreaBackfill     bool
	OrderAreasByProximity bool
}

// PlanningRunInput 一次规划运行的参数
type PlanningRunInput struct {
	TaskID    string
	UserID    uint
	StartDate *time.Time
	EndDate   *time.Time
}

// PlanningSummary 规划运行汇总
type PlanningSummary struct {
	Outcome            string `json:"outcome"`
	CompositionID      uint   `json:"composition_id,omitempty"`
	LoadPlans          int    `json:"load_plans"`
	Deliveries         int    `json:"deliveries"`
	Unassigned         int    `json:"unassigned"`
	OptimizationFailed int    `json:"optimization_failed"`
	Conflicts          int    `json:"conflicts"`
}

// Message 汇总文案
func (s *PlanningSummary) Message() string {
	message := fmt.Sprintf("• %d planos criados • %d entregas processadas • %d não alocadas", s.LoadPlans, s.Deliveries, s.Unassigned)
	if s.OptimizationFailed > 0 {
		message += fmt.Sprintf(" • %d rotas sem otimização", s.OptimizationFailed)
	}
	return message
}

func (s *PlanningSummary) result() models.JSON {
	return models.JSON{
		"outcome":             s.Outcome,
		"composition_id":      s.CompositionID,
		"load_plans":          s.LoadPlans,
		"deliveries":          s.Deliveries,
		"unassigned":          s.Unassigned,
		"optimization_failed": s.OptimizationFailed,
		"conflicts":           s.Conflicts,
	}
}

// PlanningService 路线规划编排服务
type PlanningService struct {
	deliveryRepo   repository.DeliveryRepository
	vehicleRepo    repository.VehicleRepository
	areaRepo       repository.RouteAreaRepository
	locationRepo   repository.CompanyLocationRepository
	linkRepo       repository.CompositionDeliveryRepository
	routeRepo      repository.RouteRepository
	compositionSvc *CompositionService
	loadPlanSvc    *LoadPlanService
	notifier       *Notifier
	optimizer      optimizer.Optimizer
	queueClient    *queue.Client
	options        PlanningOptions
}

// NewPlanningService 创建规划服务
func NewPlanningService(
	deliveryRepo repository.DeliveryRepository,
	vehicleRepo repository.VehicleRepository,
	areaRepo repository.RouteAreaRepository,
	locationRepo repository.CompanyLocationRepository,
	linkRepo repository.CompositionDeliveryRepository,
	routeRepo repository.RouteRepository,
	compositionSvc *CompositionService,
	loadPlanSvc *LoadPlanService,
	notifier *Notifier,
	routeOptimizer optimizer.Optimizer,
	queueClient *queue.Client,
	options PlanningOptions,
) *PlanningService {
	return &PlanningService{
		deliveryRepo:   deliveryRepo,
		vehicleRepo:    vehicleRepo,
		areaRepo:       areaRepo,
		locationRepo:   locationRepo,
		linkRepo:       linkRepo,
		routeRepo:      routeRepo,
		compositionSvc: compositionSvc,
		loadPlanSvc:    loadPlanSvc,
		notifier:       notifier,
		optimizer:      routeOptimizer,
		queueClient:    queueClient,
		options:        options,
	}
}

// Enqueue 登记任务并推送到队列
func (s *PlanningService) Enqueue(ctx context.Context, userID uint, start, end *time.Time) (*models.TaskRecord, error) {
	if start != nil && end != nil && start.After(*end) {
		return nil, ErrPlanningRangeInvalid
	}
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return nil, ErrQueueUnavailable
	}
	ref := TaskRef{TaskID: uuid.NewString(), UserID: userID}
	record, err := s.notifier.CreateTask(ref, "Roteirização")
	if err != nil {
		return nil, err
	}
	if err := s.queueClient.EnqueuePlanningRun(queue.PlanningRunPayload{
		TaskID:    ref.TaskID,
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
	}); err != nil {
		logger.FromContext(ctx).Errorw("planning_enqueue_failed", "task_id", ref.TaskID, "error", err)
		s.notifier.Finish(ctx, ref, constants.TaskStatusFailure, "Falha ao enfileirar", nil, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	logger.FromContext(ctx).Infow("planning_enqueued", "task_id", ref.TaskID, "user_id", userID)
	return record, nil
}

// vehicleLoad 一辆车的装载结果
type vehicleLoad struct {
	vehicle *models.Vehicle
	area    *models.RouteArea
	items   []packing.Item
}

// planningRun 单次运行的上下文
type planningRun struct {
	ref          TaskRef
	input        PlanningRunInput
	deliveries   map[uint]*models.Delivery
	areaModels   map[uint]*models.RouteArea
	vehicles     map[uint]*models.Vehicle
	deliveryArea map[uint]uint
	composition  *models.RouteComposition
	summary      *PlanningSummary
}

// Run 执行一次完整的规划运行：区域分配、装箱、路线优化、持久化与级联
func (s *PlanningService) Run(ctx context.Context, input PlanningRunInput) (summary *PlanningSummary, err error) {
	log := logger.FromContext(ctx).With("task_id", input.TaskID, "user_id", input.UserID)
	run := &planningRun{
		ref:          TaskRef{TaskID: input.TaskID, UserID: input.UserID},
		input:        input,
		deliveries:   map[uint]*models.Delivery{},
		areaModels:   map[uint]*models.RouteArea{},
		vehicles:     map[uint]*models.Vehicle{},
		deliveryArea: map[uint]uint{},
		summary:      &PlanningSummary{Outcome: PlanningOutcomeFailed},
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			log.Errorw("planning_run_panic", "panic", recovered, "stack", string(debug.Stack()))
			summary, err = s.fail(ctx, run, fmt.Errorf("panic: %v", recovered))
		}
	}()
	log.Infow("planning_run_started", "start_date", input.StartDate, "end_date", input.EndDate)

	s.notifier.Progress(ctx, run.ref, 1, "Carregando entregas pendentes")
	deliveries, err := s.deliveryRepo.ListPendingForPlanning(repository.PlanningDeliveryFilter{
		CreatedFrom: input.StartDate,
		CreatedTo:   input.EndDate,
	})
	if err != nil {
		return s.fail(ctx, run, err)
	}
	if len(deliveries) == 0 {
		run.summary.Outcome = PlanningOutcomeNoDeliveries
		s.notifier.Notify(ctx, input.UserID, "Roteirização", "Nenhuma entrega pendente com coordenadas no período", constants.NotificationLevelWarning, "")
		s.notifier.Finish(ctx, run.ref, constants.TaskStatusSuccess, "Nenhuma entrega para roteirizar", run.summary.result(), "")
		log.Infow("planning_run_no_deliveries")
		return run.summary, nil
	}
	points := make([]geo.Point, 0, len(deliveries))
	for i := range deliveries {
		delivery := &deliveries[i]
		if !delivery.HasCoordinates() {
			continue
		}
		run.deliveries[delivery.ID] = delivery
		points = append(points, geo.Point{DeliveryID: delivery.ID, Latitude: *delivery.Latitude, Longitude: *delivery.Longitude})
	}
	run.summary.Deliveries = len(points)

	s.notifier.Progress(ctx, run.ref, 10, "Carregando áreas de entrega")
	areas, err := s.loadAreas(ctx, run)
	if err != nil {
		return s.fail(ctx, run, err)
	}
	if len(areas) == 0 {
		run.summary.Outcome = PlanningOutcomeNoAreas
		s.notifier.Notify(ctx, input.UserID, "Erro na Roteirização", "Nenhuma área de entrega válida", constants.NotificationLevelDanger, "")
		s.notifier.Finish(ctx, run.ref, constants.TaskStatusFailure, "Nenhuma área válida", run.summary.result(), ErrNoValidAreas.Error())
		log.Warnw("planning_run_no_areas")
		return run.summary, ErrNoValidAreas
	}

	s.notifier.Progress(ctx, run.ref, 15, "Atribuindo entregas às áreas")
	departure, err := resolveDeparture(nil, s.locationRepo)
	if err != nil {
		return s.fail(ctx, run, err)
	}
	if s.options.OrderAreasByProximity && departure != nil {
		areas = geo.OrderByProximity(areas, orb.Point{departure.Longitude, departure.Latitude})
	}
	assigned, err := geo.Assign(points, areas)
	if err != nil {
		return s.fail(ctx, run, err)
	}
	for _, assignment := range assigned.Assignments {
		run.deliveryArea[assignment.DeliveryID] = assignment.AreaID
	}
	if fallback := assigned.FallbackCount(); fallback > 0 {
		log.Infow("planning_area_fallback", "count", fallback)
	}

	s.notifier.Progress(ctx, run.ref, 20, "Criando roteirização")
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		composition, err := s.compositionSvc.Create(tx, constants.CompositionTypeCustom, input.StartDate, input.EndDate, userIDPtr(input.UserID))
		if err != nil {
			return err
		}
		run.composition = composition
		return nil
	})
	if err != nil {
		return s.fail(ctx, run, err)
	}
	run.summary.CompositionID = run.composition.ID

	combined, leftovers, err := s.packAreas(ctx, run, assigned)
	if err != nil {
		return s.fail(ctx, run, err)
	}

	s.notifier.Progress(ctx, run.ref, 72, "Completando cargas entre áreas")
	if s.options.CrossAreaBackfill && len(leftovers) > 0 {
		combined, leftovers, err = s.backfill(run, combined, leftovers)
		if err != nil {
			return s.fail(ctx, run, err)
		}
	}

	loads := s.collectLoads(run, combined)
	for i, load := range loads {
		percent := 75 + 20*i/len(loads)
		s.notifier.Progress(ctx, run.ref, percent, fmt.Sprintf("Otimizando rota %d de %d", i+1, len(loads)))
		if err := s.persistAndOptimize(ctx, run, load); err != nil {
			return s.fail(ctx, run, err)
		}
	}

	s.notifier.Progress(ctx, run.ref, 96, "Registrando entregas não alocadas")
	if err := s.persistUnassigned(ctx, run, leftovers); err != nil {
		return s.fail(ctx, run, err)
	}

	s.notifier.Progress(ctx, run.ref, 98, "Finalizando roteirização")
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		return s.compositionSvc.ApplyCascade(tx, run.composition, constants.CompositionStatusDraft)
	})
	if err != nil {
		return s.fail(ctx, run, err)
	}

	run.summary.Outcome = PlanningOutcomeCompleted
	message := run.summary.Message()
	level := constants.NotificationLevelSuccess
	if run.summary.OptimizationFailed > 0 {
		level = constants.NotificationLevelWarning
	}
	s.notifier.Finish(ctx, run.ref, constants.TaskStatusSuccess, message, run.summary.result(), "")
	s.notifier.Notify(ctx, input.UserID, "Roteirização Concluída", message, level, compositionLink(run.composition.ID))
	log.Infow("planning_run_finished",
		"composition_id", run.composition.ID,
		"load_plans", run.summary.LoadPlans,
		"deliveries", run.summary.Deliveries,
		"unassigned", run.summary.Unassigned,
		"optimization_failed", run.summary.OptimizationFailed,
	)
	return run.summary, nil
}

func (s *PlanningService) loadAreas(ctx context.Context, run *planningRun) ([]geo.Area, error) {
	rows, err := s.areaRepo.ListActive()
	if err != nil {
		return nil, err
	}
	areas := make([]geo.Area, 0, len(rows))
	for i := range rows {
		model := &rows[i]
		area, err := geo.ParseArea(model.ID, model.Name, model.GeoJSON)
		if err != nil {
			logger.FromContext(ctx).Warnw("planning_area_invalid", "area_id", model.ID, "error", err)
			s.notifier.Notify(ctx, run.input.UserID, "Área inválida", fmt.Sprintf("Área %s ignorada: polígono inválido", model.Name), constants.NotificationLevelWarning, "")
			continue
		}
		run.areaModels[model.ID] = model
		areas = append(areas, area)
	}
	return areas, nil
}

// packAreas 逐区域装箱，返回合并后的结果与所有区域剩余的配送单
func (s *PlanningService) packAreas(ctx context.Context, run *planningRun, assigned geo.Result) (packing.Result, []packing.Item, error) {
	combined := packing.Result{}
	var leftovers []packing.Item
	total := len(assigned.Buckets)
	for i, bucket := range assigned.Buckets {
		percent := 20 + 50*(i+1)/total
		s.notifier.Progress(ctx, run.ref, percent, fmt.Sprintf("Processando área %s", bucket.Area.Name))
		if len(bucket.Points) == 0 {
			continue
		}
		items := make([]packing.Item, 0, len(bucket.Points))
		for _, point := range bucket.Points {
			items = append(items, deliveryItem(run.deliveries[point.DeliveryID]))
		}
		vehicles, err := s.vehicleRepo.ListActiveByArea(bucket.Area.ID)
		if err != nil {
			return combined, nil, err
		}
		if len(vehicles) == 0 {
			logger.FromContext(ctx).Warnw("planning_area_no_vehicles", "area_id", bucket.Area.ID, "deliveries", len(items))
			s.notifier.Notify(ctx, run.input.UserID, "Área sem veículos", fmt.Sprintf("Área %s não possui veículos ativos", bucket.Area.Name), constants.NotificationLevelWarning, "")
			leftovers = append(leftovers, items...)
			continue
		}
		result := packing.Pack(items, vehicleBins(run, vehicles))
		combined = packing.Merge(combined, result)
		leftovers = append(leftovers, result.Unassigned...)
	}
	return combined, leftovers, nil
}

// backfill 把剩余配送单放入所有启用车辆的剩余容量
func (s *PlanningService) backfill(run *planningRun, combined packing.Result, leftovers []packing.Item) (packing.Result, []packing.Item, error) {
	vehicles, err := s.vehicleRepo.ListActive()
	if err != nil {
		return combined, leftovers, err
	}
	if len(vehicles) == 0 {
		return combined, leftovers, nil
	}
	second := packing.Backfill(combined, leftovers, vehicleBins(run, vehicles))
	return packing.Merge(combined, second), second.Unassigned, nil
}

func (s *PlanningService) collectLoads(run *planningRun, combined packing.Result) []vehicleLoad {
	bins := combined.LoadedBins()
	loads := make([]vehicleLoad, 0, len(bins))
	for _, bin := range bins {
		vehicle := run.vehicles[bin.ID]
		if vehicle == nil {
			continue
		}
		load := vehicleLoad{vehicle: vehicle, items: combined.Loads[bin.ID]}
		if vehicle.RouteAreaID != nil {
			load.area = run.areaModels[*vehicle.RouteAreaID]
		}
		if load.area == nil && len(load.items) > 0 {
			load.area = run.areaModels[run.deliveryArea[load.items[0].ID]]
		}
		loads = append(loads, load)
	}
	return loads
}

// persistAndOptimize 单辆车：占位路线 + 装载计划 + 关联 + 汇总，然后调用优化服务
func (s *PlanningService) persistAndOptimize(ctx context.Context, run *planningRun, load vehicleLoad) error {
	areaName := ""
	if load.area != nil {
		areaName = load.area.Name
	}
	vehicleName := vehicleDisplayName(load.vehicle)
	var plan *models.LoadPlan
	var linked []models.Delivery
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		route := &models.Route{
			Name:        fmt.Sprintf("Temp %s-%s", areaName, vehicleName),
			Color:       areaColor(load.area),
			RouteAreaID: areaID(load.area),
		}
		if err := s.routeRepo.WithTx(tx).Create(route); err != nil {
			return err
		}
		created, err := s.loadPlanSvc.Create(tx, CreateLoadPlanInput{
			Vehicle:       load.vehicle,
			CompositionID: &run.composition.ID,
			RouteID:       &route.ID,
			Name:          loadPlanName(areaName, load.vehicle),
			CreatedBy:     userIDPtr(run.input.UserID),
		})
		if err != nil {
			return err
		}
		linked, err = s.claimDeliveries(ctx, tx, run, load.items, &created.ID)
		if err != nil {
			return err
		}
		if len(linked) == 0 {
			return errLoadEmpty
		}
		plan, err = s.loadPlanSvc.RecalculateTotals(tx, created.ID)
		return err
	})
	if errors.Is(err, errLoadEmpty) {
		logger.FromContext(ctx).Warnw("planning_load_empty", "vehicle_id", load.vehicle.ID)
		return nil
	}
	if err != nil {
		return err
	}
	run.summary.LoadPlans++

	stops := deliveryStops(linked)
	departure, err := resolveDeparture(load.area, s.locationRepo)
	if err != nil {
		return err
	}
	result, optimizeErr := s.optimizer.Optimize(ctx, stops, departure, vehicleProfile(load.vehicle, ""))
	if optimizeErr != nil {
		run.summary.OptimizationFailed++
		logger.FromContext(ctx).Warnw("planning_optimize_failed", "load_plan_id", plan.ID, "vehicle_id", load.vehicle.ID, "error", optimizeErr)
		if err := s.loadPlanSvc.MarkOptimizationFailed(ctx, plan.ID, optimizeErr); err != nil {
			return err
		}
		s.notifier.Notify(ctx, run.input.UserID,
			fmt.Sprintf("Erro otimização %s", strings.TrimSpace(areaName)),
			fmt.Sprintf("Veículo %s: %s", vehicleName, optimizeErr.Error()),
			constants.NotificationLevelDanger, compositionLink(run.composition.ID))
		return nil
	}
	routeName := fmt.Sprintf("Rota %s-%s-%s", areaName, vehicleName, time.Now().Format("02/01/2006"))
	return models.DB.Transaction(func(tx *gorm.DB) error {
		return s.loadPlanSvc.ApplyOptimization(tx, plan, routeName, areaID(load.area), areaColor(load.area), result)
	})
}

// claimDeliveries 逐条写入关联；唯一键冲突说明配送单已被其他编排占用，计入冲突并跳过
func (s *PlanningService) claimDeliveries(ctx context.Context, tx *gorm.DB, run *planningRun, items []packing.Item, loadPlanID *uint) ([]models.Delivery, error) {
	linked := make([]models.Delivery, 0, len(items))
	sequence := 0
	for _, item := range items {
		delivery := run.deliveries[item.ID]
		if delivery == nil {
			continue
		}
		link := models.RouteCompositionDelivery{
			CompositionID: run.composition.ID,
			DeliveryID:    delivery.ID,
			LoadPlanID:    loadPlanID,
			RouteAreaID:   uintPtrOrNil(run.deliveryArea[delivery.ID]),
		}
		if loadPlanID != nil {
			link.Sequence = sequence + 1
		}
		err := tx.Transaction(func(sp *gorm.DB) error {
			return s.linkRepo.WithTx(sp).Create(&link)
		})
		if errors.Is(err, repository.ErrDuplicateKey) {
			run.summary.Conflicts++
			run.summary.Unassigned++
			logger.FromContext(ctx).Warnw("planning_delivery_conflict", "delivery_id", delivery.ID, "error", ErrDeliveryAlreadyPlanned)
			continue
		}
		if err != nil {
			return nil, err
		}
		if loadPlanID != nil {
			sequence++
		}
		linked = append(linked, *delivery)
	}
	return linked, nil
}

func (s *PlanningService) persistUnassigned(ctx context.Context, run *planningRun, leftovers []packing.Item) error {
	if len(leftovers) == 0 {
		return nil
	}
	return models.DB.Transaction(func(tx *gorm.DB) error {
		linked, err := s.claimDeliveries(ctx, tx, run, leftovers, nil)
		if err != nil {
			return err
		}
		run.summary.Unassigned += len(linked)
		return nil
	})
}

// fail 运行中止：进度 100% failure，并通知发起人；已创建的编排保留为 draft
func (s *PlanningService) fail(ctx context.Context, run *planningRun, cause error) (*PlanningSummary, error) {
	logger.FromContext(ctx).Errorw("planning_run_failed", "task_id", run.ref.TaskID, "composition_id", run.summary.CompositionID, "error", cause)
	run.summary.Outcome = PlanningOutcomeFailed
	link := ""
	if run.composition != nil {
		link = compositionLink(run.composition.ID)
	}
	s.notifier.Finish(ctx, run.ref, constants.TaskStatusFailure, "Erro na roteirização", run.summary.result(), cause.Error())
	s.notifier.Notify(ctx, run.input.UserID, "Erro na Roteirização", cause.Error(), constants.NotificationLevelDanger, link)
	return run.summary, cause
}

func vehicleBins(run *planningRun, vehicles []models.Vehicle) []packing.Bin {
	bins := make([]packing.Bin, 0, len(vehicles))
	for i := range vehicles {
		vehicle := &vehicles[i]
		if _, ok := run.vehicles[vehicle.ID]; !ok {
			run.vehicles[vehicle.ID] = vehicle
		}
		bins = append(bins, packing.Bin{
			ID:          vehicle.ID,
			MaxWeightKG: vehicle.MaxWeightKG.Decimal,
			MaxVolumeM3: vehicle.MaxVolumeM3.Decimal,
		})
	}
	return bins
}

func deliveryItem(delivery *models.Delivery) packing.Item {
	return packing.Item{
		ID:       delivery.ID,
		WeightKG: delivery.WeightKG.Decimal,
		VolumeM3: delivery.VolumeM3.Decimal,
	}
}

func compositionLink(compositionID uint) string {
	return fmt.Sprintf("/compositions/%d", compositionID)
}

func userIDPtr(userID uint) *uint {
	if userID == 0 {
		return nil
	}
	return &userID
}

func uintPtrOrNil(value uint) *uint {
	if value == 0 {
		return nil
	}
	return &value
}
