package service

import (
	"context"
	"errors"
	"testing"

	"github.com/tms-next/internal/constants"
	"github.com/tms-next/internal/models"

	"github.com/shopspring/decimal"
)

func runTwoAreaScenario(t *testing.T, options PlanningOptions) (*planningFixture, []*models.Delivery, uint) {
	t.Helper()
	f, deliveries, _, _ := setupTwoAreaScenario(t, options)
	summary, err := f.planningSvc.Run(context.Background(), f.createTask(t, "run-"+t.Name()))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return f, deliveries, summary.CompositionID
}

func (f *planningFixture) planStatuses(t *testing.T, compositionID uint) []models.LoadPlan {
	t.Helper()
	var plans []models.LoadPlan
	if err := f.db.Where("composition_id = ?", compositionID).Find(&plans).Error; err != nil {
		t.Fatalf("load plans failed: %v", err)
	}
	return plans
}

func TestCompositionTransitionToPlannedDropsUnassignedLinks(t *testing.T) {
	f, deliveries, compositionID := runTwoAreaScenario(t, PlanningOptions{})

	composition, err := f.compositionSvc.Transition(context.Background(), compositionID, constants.CompositionStatusPlanned)
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if composition.Status != constants.CompositionStatusPlanned {
		t.Fatalf("unexpected status: %s", composition.Status)
	}

	var count int64
	f.db.Model(&models.RouteCompositionDelivery{}).Where("delivery_id = ?", deliveries[1].ID).Count(&count)
	if count != 0 {
		t.Fatalf("unassigned link should be deleted")
	}
	if status := f.deliveryStatus(t, deliveries[1].ID); status != constants.DeliveryStatusPending {
		t.Fatalf("unassigned delivery should be pending, got %s", status)
	}
	for _, delivery := range []*models.Delivery{deliveries[0], deliveries[2]} {
		if status := f.deliveryStatus(t, delivery.ID); status != constants.DeliveryStatusInLoad {
			t.Fatalf("delivery %d expected in_load, got %s", delivery.ID, status)
		}
	}
	for _, plan := range f.planStatuses(t, compositionID) {
		if plan.Status != constants.LoadPlanStatusRouteStarted {
			t.Fatalf("plan %d expected route_started, got %s", plan.ID, plan.Status)
		}
	}
}

func TestCompositionTransitionRules(t *testing.T) {
	f, _, compositionID := runTwoAreaScenario(t, PlanningOptions{})
	ctx := context.Background()

	if _, err := f.compositionSvc.Transition(ctx, compositionID, constants.CompositionStatusLoading); err != nil {
		t.Fatalf("forward skip should be allowed: %v", err)
	}
	if _, err := f.compositionSvc.Transition(ctx, compositionID, constants.CompositionStatusPlanned); !errors.Is(err, ErrCompositionTransitionInvalid) {
		t.Fatalf("backward move should be rejected, got %v", err)
	}
	if _, err := f.compositionSvc.Transition(ctx, compositionID, "shipped"); !errors.Is(err, ErrCompositionTransitionInvalid) {
		t.Fatalf("unknown status should be rejected, got %v", err)
	}
	composition, err := f.compositionSvc.Transition(ctx, compositionID, constants.CompositionStatusLoading)
	if err != nil || composition.Status != constants.CompositionStatusLoading {
		t.Fatalf("same status should be a no-op, got %v", err)
	}
	if _, err := f.compositionSvc.Transition(ctx, compositionID, constants.CompositionStatusCompleted); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if _, err := f.compositionSvc.Transition(ctx, compositionID, constants.CompositionStatusCancelled); !errors.Is(err, ErrCompositionTerminal) {
		t.Fatalf("terminal composition must not change, got %v", err)
	}
	if _, err := f.compositionSvc.Transition(ctx, 9999, constants.CompositionStatusPlanned); !errors.Is(err, ErrCompositionNotFound) {
		t.Fatalf("expected ErrCompositionNotFound, got %v", err)
	}
}

func TestCompositionCascadeCompleteness(t *testing.T) {
	f, deliveries, compositionID := runTwoAreaScenario(t, PlanningOptions{CrossAreaBackfill: true})
	ctx := context.Background()

	steps := []string{
		constants.CompositionStatusPlanned,
		constants.CompositionStatusAwaitingLoading,
		constants.CompositionStatusLoading,
		constants.CompositionStatusInTransit,
		constants.CompositionStatusCompleted,
	}
	for _, status := range steps {
		if _, err := f.compositionSvc.Transition(ctx, compositionID, status); err != nil {
			t.Fatalf("transition to %s failed: %v", status, err)
		}
		rule := compositionCascade[status]
		for _, delivery := range deliveries {
			if got := f.deliveryStatus(t, delivery.ID); got != rule.DeliveryStatus {
				t.Fatalf("after %s delivery %d expected %s, got %s", status, delivery.ID, rule.DeliveryStatus, got)
			}
		}
		for _, plan := range f.planStatuses(t, compositionID) {
			if plan.Status != rule.LoadPlanStatus {
				t.Fatalf("after %s plan %d expected %s, got %s", status, plan.ID, rule.LoadPlanStatus, plan.Status)
			}
		}
	}
}

func TestCompositionCancelCleansUp(t *testing.T) {
	f, deliveries, compositionID := runTwoAreaScenario(t, PlanningOptions{})
	ctx := context.Background()
	if _, err := f.compositionSvc.Transition(ctx, compositionID, constants.CompositionStatusAwaitingLoading); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	if _, err := f.compositionSvc.Transition(ctx, compositionID, constants.CompositionStatusCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	var links int64
	f.db.Model(&models.RouteCompositionDelivery{}).Where("composition_id = ?", compositionID).Count(&links)
	if links != 0 {
		t.Fatalf("cancelled composition must have no links, got %d", links)
	}
	for _, delivery := range deliveries {
		if status := f.deliveryStatus(t, delivery.ID); status != constants.DeliveryStatusPending {
			t.Fatalf("delivery %d expected pending, got %s", delivery.ID, status)
		}
	}
	for _, plan := range f.planStatuses(t, compositionID) {
		if plan.Status != constants.LoadPlanStatusCancelled || plan.RouteID != nil {
			t.Fatalf("plan %d should be cancelled without route: %+v", plan.ID, plan)
		}
		if plan.TotalDeliveries != 0 || !plan.TotalWeightKG.IsZero() || !plan.TotalVolumeM3.IsZero() || !plan.WeightUtilization.IsZero() {
			t.Fatalf("plan %d totals should be reset after cancel: %+v", plan.ID, plan)
		}
	}
	var routes, stops int64
	f.db.Model(&models.Route{}).Count(&routes)
	f.db.Model(&models.RouteStop{}).Count(&stops)
	if routes != 0 || stops != 0 {
		t.Fatalf("detached routes should be deleted, routes=%d stops=%d", routes, stops)
	}

	// 取消后的配送单可被下一次运行重新规划
	summary, err := f.planningSvc.Run(ctx, f.createTask(t, "run-after-cancel"))
	if err != nil {
		t.Fatalf("rerun failed: %v", err)
	}
	if summary.Deliveries != 3 || summary.Conflicts != 0 {
		t.Fatalf("unexpected rerun summary: %+v", summary)
	}
}

func TestCompositionStats(t *testing.T) {
	f, _, compositionID := runTwoAreaScenario(t, PlanningOptions{})

	stats, err := f.compositionSvc.Stats(compositionID)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalDeliveries != 3 || stats.WithLoadPlan != 2 || stats.WithoutLoadPlan != 1 {
		t.Fatalf("unexpected link stats: %+v", stats)
	}
	if !stats.TotalDistanceKM.Equal(decimal.RequireFromString("24.69")) {
		t.Fatalf("unexpected total distance: %s", stats.TotalDistanceKM)
	}
	if stats.LongestTime != "30m" || len(stats.LoadPlans) != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if _, err := f.compositionSvc.Stats(9999); !errors.Is(err, ErrCompositionNotFound) {
		t.Fatalf("expected ErrCompositionNotFound, got %v", err)
	}
}

func TestCompositionAddLoadPlansSkipsExistingVehicles(t *testing.T) {
	f, _, compositionID := runTwoAreaScenario(t, PlanningOptions{})
	var vehicleA models.Vehicle
	if err := f.db.Where("license_plate = ?", "AAA1A11").First(&vehicleA).Error; err != nil {
		t.Fatalf("load vehicle failed: %v", err)
	}
	vehicleC := f.createVehicle(t, "CCC3C33", nil, "500", "5")

	result, err := f.compositionSvc.AddLoadPlans(context.Background(), compositionID, []uint{vehicleA.ID, vehicleC.ID, vehicleC.ID}, nil)
	if err != nil {
		t.Fatalf("add load plans failed: %v", err)
	}
	if len(result.Created) != 1 || len(result.Skipped) != 1 || result.Skipped[0] != "AAA1A11" {
		t.Fatalf("unexpected result: %+v", result)
	}
	created := result.Created[0]
	if created.VehicleID != vehicleC.ID || created.TotalDeliveries != 0 || !created.MaxWeightKG.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("unexpected created plan: %+v", created)
	}
	var route models.Route
	if err := f.db.First(&route, *created.RouteID).Error; err != nil {
		t.Fatalf("load route failed: %v", err)
	}
	if route.Name != "Rota CCC3C33" {
		t.Fatalf("unexpected route name: %s", route.Name)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[string]string{
		"0":       "Sem dados",
		"30":      "30m",
		"62.05":   "1h 2m 3s",
		"120":     "2h",
		"0.5":     "30s",
		"-1":      "Sem dados",
		"0.00001": "Sem dados",
	}
	for input, want := range cases {
		if got := FormatDuration(decimal.RequireFromString(input)); got != want {
			t.Fatalf("FormatDuration(%s) = %s, want %s", input, got, want)
		}
	}
}

func TestCheckCompositionTransition(t *testing.T) {
	noop, err := checkCompositionTransition(constants.CompositionStatusCancelled, constants.CompositionStatusCancelled)
	if err != nil || !noop {
		t.Fatalf("same terminal status should be a no-op")
	}
	if _, err := checkCompositionTransition(constants.CompositionStatusInTransit, constants.CompositionStatusCancelled); err != nil {
		t.Fatalf("cancel from non-terminal should be allowed: %v", err)
	}
	if _, err := checkCompositionTransition(constants.CompositionStatusDraft, constants.CompositionStatusCompleted); err != nil {
		t.Fatalf("forward skip should be allowed: %v", err)
	}
}
