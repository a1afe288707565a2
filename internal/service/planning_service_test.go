package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tms-next/internal/constants"
	"github.com/tms-next/internal/models"
	"github.com/tms-next/internal/optimizer"
	"github.com/tms-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	testAreaAPolygon = `{"type":"Polygon","coordinates":[[[-47,-24],[-46,-24],[-46,-23],[-47,-23],[-47,-24]]]}`
	testAreaBPolygon = `{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[-45,-24],[-44,-24],[-44,-23],[-45,-23],[-45,-24]]]}}`
)

type stubOptimizer struct {
	failDeliveries map[uint]bool
	calls          int
}

func (o *stubOptimizer) Optimize(_ context.Context, stops []optimizer.Stop, _ *optimizer.Coordinate, _ string) (*optimizer.Result, error) {
	o.calls++
	for _, stop := range stops {
		if o.failDeliveries[stop.DeliveryID] {
			return nil, fmt.Errorf("%w: status 502", optimizer.ErrRequestFailed)
		}
	}
	ordered := make([]optimizer.Stop, 0, len(stops))
	for i := len(stops) - 1; i >= 0; i-- {
		ordered = append(ordered, stops[i])
	}
	return &optimizer.Result{
		Ordered:         ordered,
		DistanceMeters:  12345,
		DurationSeconds: 1800,
		Geometry:        map[string]interface{}{"type": "FeatureCollection"},
	}, nil
}

type planningFixture struct {
	db             *gorm.DB
	optimizer      *stubOptimizer
	notifier       *Notifier
	loadPlanSvc    *LoadPlanService
	compositionSvc *CompositionService
	planningSvc    *PlanningService
	driver         *models.Driver
}

func setupPlanningFixture(t *testing.T, options PlanningOptions) *planningFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:planning_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	deliveryRepo := repository.NewDeliveryRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)
	areaRepo := repository.NewRouteAreaRepository(db)
	locationRepo := repository.NewCompanyLocationRepository(db)
	linkRepo := repository.NewCompositionDeliveryRepository(db)
	routeRepo := repository.NewRouteRepository(db)
	loadPlanRepo := repository.NewLoadPlanRepository(db)
	compositionRepo := repository.NewCompositionRepository(db)

	stub := &stubOptimizer{failDeliveries: map[uint]bool{}}
	notifier := NewNotifier(repository.NewTaskRecordRepository(db), repository.NewNotificationRepository(db))
	loadPlanSvc := NewLoadPlanService(loadPlanRepo, compositionRepo, linkRepo, routeRepo, deliveryRepo, vehicleRepo, areaRepo, locationRepo, stub)
	compositionSvc := NewCompositionService(compositionRepo, loadPlanRepo, linkRepo, deliveryRepo, routeRepo, vehicleRepo, areaRepo, loadPlanSvc)
	planningSvc := NewPlanningService(deliveryRepo, vehicleRepo, areaRepo, locationRepo, linkRepo, routeRepo, compositionSvc, loadPlanSvc, notifier, stub, nil, options)

	driver := &models.Driver{Name: "Motorista", IsActive: true}
	if err := db.Create(driver).Error; err != nil {
		t.Fatalf("create driver failed: %v", err)
	}
	return &planningFixture{
		db:             db,
		optimizer:      stub,
		notifier:       notifier,
		loadPlanSvc:    loadPlanSvc,
		compositionSvc: compositionSvc,
		planningSvc:    planningSvc,
		driver:         driver,
	}
}

func (f *planningFixture) createArea(t *testing.T, name, geojson string) *models.RouteArea {
	t.Helper()
	area := &models.RouteArea{Name: name, GeoJSON: geojson, HexColor: "#112233", Status: constants.RouteAreaStatusActive}
	if err := f.db.Create(area).Error; err != nil {
		t.Fatalf("create area failed: %v", err)
	}
	return area
}

func (f *planningFixture) createVehicle(t *testing.T, plate string, areaID *uint, weight, volume string) *models.Vehicle {
	t.Helper()
	vehicle := &models.Vehicle{
		LicensePlate: plate,
		Name:         plate,
		Profile:      constants.VehicleProfileCar,
		RouteAreaID:  areaID,
		DriverID:     &f.driver.ID,
		IsActive:     true,
		MaxWeightKG:  models.NewMeasure(decimal.RequireFromString(weight)),
		MaxVolumeM3:  models.NewMeasure(decimal.RequireFromString(volume)),
	}
	if err := f.db.Create(vehicle).Error; err != nil {
		t.Fatalf("create vehicle failed: %v", err)
	}
	return vehicle
}

func (f *planningFixture) createDelivery(t *testing.T, orderNumber string, lng, lat float64, weight, volume string) *models.Delivery {
	t.Helper()
	delivery := &models.Delivery{
		OrderNumber:  orderNumber,
		CustomerName: "Cliente " + orderNumber,
		City:         "São Paulo",
		Latitude:     &lat,
		Longitude:    &lng,
		WeightKG:     models.NewMeasure(decimal.RequireFromString(weight)),
		VolumeM3:     models.NewMeasure(decimal.RequireFromString(volume)),
		Value:        models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		Status:       constants.DeliveryStatusPending,
	}
	if err := f.db.Create(delivery).Error; err != nil {
		t.Fatalf("create delivery failed: %v", err)
	}
	return delivery
}

func (f *planningFixture) createTask(t *testing.T, taskID string) PlanningRunInput {
	t.Helper()
	if _, err := f.notifier.CreateTask(TaskRef{TaskID: taskID, UserID: 1}, "Roteirização"); err != nil {
		t.Fatalf("create task failed: %v", err)
	}
	return PlanningRunInput{TaskID: taskID, UserID: 1}
}

func (f *planningFixture) linkOf(t *testing.T, deliveryID uint) *models.RouteCompositionDelivery {
	t.Helper()
	var link models.RouteCompositionDelivery
	if err := f.db.Where("delivery_id = ?", deliveryID).First(&link).Error; err != nil {
		t.Fatalf("load link for delivery %d failed: %v", deliveryID, err)
	}
	return &link
}

func (f *planningFixture) planOf(t *testing.T, vehicleID uint) *models.LoadPlan {
	t.Helper()
	var plan models.LoadPlan
	if err := f.db.Preload("Route").Where("vehicle_id = ?", vehicleID).First(&plan).Error; err != nil {
		t.Fatalf("load plan for vehicle %d failed: %v", vehicleID, err)
	}
	return &plan
}

func (f *planningFixture) deliveryStatus(t *testing.T, id uint) string {
	t.Helper()
	var delivery models.Delivery
	if err := f.db.First(&delivery, id).Error; err != nil {
		t.Fatalf("load delivery failed: %v", err)
	}
	return delivery.Status
}

// 三个配送单：两个在 A 区内，一个不在任何区内但离 B 最近；A 车只装得下一个
func setupTwoAreaScenario(t *testing.T, options PlanningOptions) (*planningFixture, []*models.Delivery, *models.Vehicle, *models.Vehicle) {
	f := setupPlanningFixture(t, options)
	areaA := f.createArea(t, "Zona A", testAreaAPolygon)
	areaB := f.createArea(t, "Zona B", testAreaBPolygon)
	vehicleA := f.createVehicle(t, "AAA1A11", &areaA.ID, "70", "5")
	vehicleB := f.createVehicle(t, "BBB2B22", &areaB.ID, "1000", "10")
	deliveries := []*models.Delivery{
		f.createDelivery(t, "PED-1", -46.5, -23.5, "60", "0.5"),
		f.createDelivery(t, "PED-2", -46.4, -23.4, "50", "0.5"),
		f.createDelivery(t, "PED-3", -43.5, -23.5, "10", "0.1"),
	}
	return f, deliveries, vehicleA, vehicleB
}

func TestPlanningRunWithoutBackfillLeavesAreaOverflowUnassigned(t *testing.T) {
	f, deliveries, vehicleA, vehicleB := setupTwoAreaScenario(t, PlanningOptions{})

	summary, err := f.planningSvc.Run(context.Background(), f.createTask(t, "run-no-backfill"))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.Outcome != PlanningOutcomeCompleted || summary.LoadPlans != 2 || summary.Deliveries != 3 || summary.Unassigned != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	planA := f.planOf(t, vehicleA.ID)
	planB := f.planOf(t, vehicleB.ID)
	if link := f.linkOf(t, deliveries[0].ID); link.LoadPlanID == nil || *link.LoadPlanID != planA.ID {
		t.Fatalf("largest A delivery should be on A vehicle, got %+v", link)
	}
	if link := f.linkOf(t, deliveries[1].ID); link.LoadPlanID != nil || link.Sequence != 0 {
		t.Fatalf("overflow delivery should be linked without load plan, got %+v", link)
	}
	if link := f.linkOf(t, deliveries[2].ID); link.LoadPlanID == nil || *link.LoadPlanID != planB.ID {
		t.Fatalf("fallback delivery should be on B vehicle, got %+v", link)
	}
	if planA.TotalDeliveries != 1 || !planA.TotalWeightKG.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("unexpected plan A totals: %+v", planA)
	}
	if !planA.WeightUtilization.Equal(decimal.RequireFromString("85.71")) {
		t.Fatalf("unexpected plan A utilization: %s", planA.WeightUtilization)
	}
	if planA.IsOverloaded || planB.IsOverloaded {
		t.Fatalf("packer must not overload plans")
	}
	for _, delivery := range deliveries {
		if status := f.deliveryStatus(t, delivery.ID); status != constants.DeliveryStatusInScript {
			t.Fatalf("delivery %d expected in_script, got %s", delivery.ID, status)
		}
	}
	var composition models.RouteComposition
	if err := f.db.First(&composition, summary.CompositionID).Error; err != nil {
		t.Fatalf("load composition failed: %v", err)
	}
	if composition.Status != constants.CompositionStatusDraft || composition.Name != fmt.Sprintf("Roteirização RTR-%d", composition.ID) {
		t.Fatalf("unexpected composition: %+v", composition)
	}
}

func TestPlanningRunBackfillMovesOverflowToOtherAreaVehicle(t *testing.T) {
	f, deliveries, vehicleA, vehicleB := setupTwoAreaScenario(t, PlanningOptions{CrossAreaBackfill: true})

	summary, err := f.planningSvc.Run(context.Background(), f.createTask(t, "run-backfill"))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.LoadPlans != 2 || summary.Unassigned != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	planA := f.planOf(t, vehicleA.ID)
	planB := f.planOf(t, vehicleB.ID)
	if link := f.linkOf(t, deliveries[1].ID); link.LoadPlanID == nil || *link.LoadPlanID != planB.ID {
		t.Fatalf("overflow delivery should be backfilled into B vehicle, got %+v", link)
	}
	if planA.TotalDeliveries != 1 || planB.TotalDeliveries != 2 {
		t.Fatalf("unexpected totals: A=%d B=%d", planA.TotalDeliveries, planB.TotalDeliveries)
	}
	if planB.OptimizationStatus != constants.OptimizationStatusOptimized || planB.Route == nil {
		t.Fatalf("plan B should be optimized: %+v", planB)
	}
	if planB.Route.Stops != 2 || !planB.Route.DistanceKM.Equal(decimal.RequireFromString("12.345")) || !planB.Route.TimeMin.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("unexpected route metrics: %+v", planB.Route)
	}

	// 桩优化器倒序返回站点，关联顺序应随之改写
	links, err := repository.NewCompositionDeliveryRepository(f.db).ListByLoadPlan(planB.ID)
	if err != nil {
		t.Fatalf("list links failed: %v", err)
	}
	if len(links) != 2 || links[0].Sequence != 1 || links[1].Sequence != 2 {
		t.Fatalf("unexpected sequences: %+v", links)
	}
	var stops []models.RouteStop
	if err := f.db.Where("route_id = ?", planB.Route.ID).Order("position ASC").Find(&stops).Error; err != nil {
		t.Fatalf("load stops failed: %v", err)
	}
	if len(stops) != 2 || stops[0].DeliveryID != links[0].DeliveryID {
		t.Fatalf("route stops and link order diverge: %+v vs %+v", stops, links)
	}
}

func TestPlanningRunOptimizerFailureIsPerVehicle(t *testing.T) {
	f, deliveries, vehicleA, vehicleB := setupTwoAreaScenario(t, PlanningOptions{CrossAreaBackfill: true})
	f.optimizer.failDeliveries[deliveries[0].ID] = true

	input := f.createTask(t, "run-optimizer-failure")
	summary, err := f.planningSvc.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("run should succeed with partial failure, got %v", err)
	}
	if summary.OptimizationFailed != 1 || summary.LoadPlans != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	planA := f.planOf(t, vehicleA.ID)
	if planA.OptimizationStatus != constants.OptimizationStatusFailed || planA.OptimizationError == "" {
		t.Fatalf("plan A should record optimization failure: %+v", planA)
	}
	if planA.Route == nil || !planA.Route.DistanceKM.IsZero() || !planA.Route.TimeMin.IsZero() {
		t.Fatalf("failed route should keep zero metrics: %+v", planA.Route)
	}
	if link := f.linkOf(t, deliveries[0].ID); link.LoadPlanID == nil || *link.LoadPlanID != planA.ID {
		t.Fatalf("delivery must stay assigned after optimizer failure")
	}
	planB := f.planOf(t, vehicleB.ID)
	if planB.OptimizationStatus != constants.OptimizationStatusOptimized {
		t.Fatalf("plan B should complete normally: %+v", planB)
	}

	record, err := f.notifier.GetTask(input.UserID, input.TaskID)
	if err != nil {
		t.Fatalf("get task failed: %v", err)
	}
	if record.Status != constants.TaskStatusSuccess || record.Percent != 100 || record.FinishedAt == nil {
		t.Fatalf("unexpected task record: %+v", record)
	}
	var count int64
	f.db.Model(&models.Notification{}).Where("title = ?", "Erro otimização Zona A").Count(&count)
	if count != 1 {
		t.Fatalf("expected one optimization error notification, got %d", count)
	}
}

func TestPlanningRunNoDeliveries(t *testing.T) {
	f := setupPlanningFixture(t, PlanningOptions{})
	f.createArea(t, "Zona A", testAreaAPolygon)

	input := f.createTask(t, "run-empty")
	summary, err := f.planningSvc.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.Outcome != PlanningOutcomeNoDeliveries {
		t.Fatalf("unexpected outcome: %s", summary.Outcome)
	}
	record, _ := f.notifier.GetTask(input.UserID, input.TaskID)
	if record == nil || record.Status != constants.TaskStatusSuccess {
		t.Fatalf("empty run should finish with success: %+v", record)
	}
	var count int64
	f.db.Model(&models.RouteComposition{}).Count(&count)
	if count != 0 {
		t.Fatalf("empty run must not create a composition")
	}
}

func TestPlanningRunWithoutValidAreasFails(t *testing.T) {
	f := setupPlanningFixture(t, PlanningOptions{})
	f.createArea(t, "Quebrada", `{"type":"Point","coordinates":[-46,-23]}`)
	f.createDelivery(t, "PED-9", -46.5, -23.5, "1", "0.1")

	input := f.createTask(t, "run-no-areas")
	summary, err := f.planningSvc.Run(context.Background(), input)
	if !errors.Is(err, ErrNoValidAreas) {
		t.Fatalf("expected ErrNoValidAreas, got %v", err)
	}
	if summary.Outcome != PlanningOutcomeNoAreas {
		t.Fatalf("unexpected outcome: %s", summary.Outcome)
	}
	record, _ := f.notifier.GetTask(input.UserID, input.TaskID)
	if record == nil || record.Status != constants.TaskStatusFailure || record.Percent != 100 {
		t.Fatalf("run without areas should fail at 100%%: %+v", record)
	}
}

func TestPlanningRunAreaWithoutVehicles(t *testing.T) {
	f := setupPlanningFixture(t, PlanningOptions{})
	f.createArea(t, "Zona A", testAreaAPolygon)
	delivery := f.createDelivery(t, "PED-1", -46.5, -23.5, "1", "0.1")

	summary, err := f.planningSvc.Run(context.Background(), f.createTask(t, "run-no-vehicles"))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.LoadPlans != 0 || summary.Unassigned != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if link := f.linkOf(t, delivery.ID); link.LoadPlanID != nil {
		t.Fatalf("delivery should be linked outside any load")
	}
}

func TestPlanningRunSkipsDeliveriesClaimedElsewhere(t *testing.T) {
	f, deliveries, _, _ := setupTwoAreaScenario(t, PlanningOptions{CrossAreaBackfill: true})
	other := &models.RouteComposition{Name: "Outra", Type: constants.CompositionTypeManual, Status: constants.CompositionStatusDraft}
	if err := f.db.Create(other).Error; err != nil {
		t.Fatalf("create composition failed: %v", err)
	}
	// 配送单仍为 pending，但已被另一编排占用
	if err := f.db.Create(&models.RouteCompositionDelivery{CompositionID: other.ID, DeliveryID: deliveries[2].ID}).Error; err != nil {
		t.Fatalf("create link failed: %v", err)
	}

	summary, err := f.planningSvc.Run(context.Background(), f.createTask(t, "run-conflict"))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.Conflicts != 1 || summary.Unassigned != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if link := f.linkOf(t, deliveries[2].ID); link.CompositionID != other.ID {
		t.Fatalf("claimed delivery must keep its original link")
	}
	var count int64
	f.db.Model(&models.RouteCompositionDelivery{}).Where("delivery_id = ?", deliveries[2].ID).Count(&count)
	if count != 1 {
		t.Fatalf("delivery must have exactly one link, got %d", count)
	}
}

func TestPlanningSummaryMessage(t *testing.T) {
	summary := &PlanningSummary{LoadPlans: 2, Deliveries: 10, Unassigned: 1}
	if got := summary.Message(); got != "• 2 planos criados • 10 entregas processadas • 1 não alocadas" {
		t.Fatalf("unexpected message: %s", got)
	}
	summary.OptimizationFailed = 1
	if got := summary.Message(); got != "• 2 planos criados • 10 entregas processadas • 1 não alocadas • 1 rotas sem otimização" {
		t.Fatalf("unexpected message: %s", got)
	}
}

func TestPlanningEnqueueRequiresQueue(t *testing.T) {
	f := setupPlanningFixture(t, PlanningOptions{})
	start := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	if _, err := f.planningSvc.Enqueue(context.Background(), 1, &start, &end); !errors.Is(err, ErrPlanningRangeInvalid) {
		t.Fatalf("expected ErrPlanningRangeInvalid, got %v", err)
	}
	if _, err := f.planningSvc.Enqueue(context.Background(), 1, nil, nil); !errors.Is(err, ErrQueueUnavailable) {
		t.Fatalf("expected ErrQueueUnavailable, got %v", err)
	}
}
