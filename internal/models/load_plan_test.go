package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestLoadPlanApplyTotalsUtilization(t *testing.T) {
	plan := &LoadPlan{
		MaxWeightKG: NewMeasure(decimal.NewFromInt(300)),
		MaxVolumeM3: NewMeasure(decimal.NewFromInt(3)),
	}
	plan.ApplyTotals(LoadTotals{
		WeightKG:   decimal.NewFromInt(100),
		VolumeM3:   decimal.RequireFromString("1.5"),
		Value:      decimal.RequireFromString("99.999"),
		Deliveries: 2,
	})
	if plan.WeightUtilization.String() != "33.33" {
		t.Fatalf("weight utilization want 33.33 got %s", plan.WeightUtilization.String())
	}
	if plan.VolumeUtilization.String() != "50.00" {
		t.Fatalf("volume utilization want 50.00 got %s", plan.VolumeUtilization.String())
	}
	if plan.TotalValue.String() != "100.00" {
		t.Fatalf("total value want 100.00 got %s", plan.TotalValue.String())
	}
	if plan.TotalDeliveries != 2 {
		t.Fatalf("total deliveries want 2 got %d", plan.TotalDeliveries)
	}
	if plan.IsOverloaded {
		t.Fatalf("plan should not be overloaded")
	}
}

func TestLoadPlanApplyTotalsZeroCapacity(t *testing.T) {
	plan := &LoadPlan{}
	plan.ApplyTotals(LoadTotals{WeightKG: decimal.NewFromInt(10), VolumeM3: decimal.Zero})
	if !plan.WeightUtilization.IsZero() || !plan.VolumeUtilization.IsZero() {
		t.Fatalf("zero capacity must yield zero utilization, got %s/%s", plan.WeightUtilization, plan.VolumeUtilization)
	}
	if !plan.IsOverloaded {
		t.Fatalf("any weight above zero capacity is overloaded")
	}
}

func TestLoadPlanApplyTotalsIdempotent(t *testing.T) {
	plan := &LoadPlan{
		MaxWeightKG: NewMeasure(decimal.NewFromInt(10)),
		MaxVolumeM3: NewMeasure(decimal.NewFromInt(1)),
	}
	totals := LoadTotals{WeightKG: decimal.NewFromInt(12), VolumeM3: decimal.RequireFromString("0.4"), Deliveries: 3}
	plan.ApplyTotals(totals)
	first := *plan
	plan.ApplyTotals(totals)
	if !first.WeightUtilization.Equal(plan.WeightUtilization.Decimal) || first.IsOverloaded != plan.IsOverloaded {
		t.Fatalf("apply totals must be idempotent: first=%+v second=%+v", first, *plan)
	}
	if !plan.IsOverloaded {
		t.Fatalf("weight above capacity must be overloaded")
	}
}

func TestLoadPlanRemainingCapacityClamped(t *testing.T) {
	plan := &LoadPlan{
		MaxWeightKG:   NewMeasure(decimal.NewFromInt(10)),
		MaxVolumeM3:   NewMeasure(decimal.NewFromInt(2)),
		TotalWeightKG: NewMeasure(decimal.NewFromInt(15)),
		TotalVolumeM3: NewMeasure(decimal.RequireFromString("0.5")),
	}
	weight, volume := plan.RemainingCapacity()
	if !weight.IsZero() {
		t.Fatalf("remaining weight must clamp at zero, got %s", weight)
	}
	if !volume.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("remaining volume want 1.5 got %s", volume)
	}
}

func TestLoadPlanUtilizationIsClampedToColumnRange(t *testing.T) {
	plan := &LoadPlan{
		MaxWeightKG: NewMeasure(decimal.RequireFromString("0.001")),
		MaxVolumeM3: NewMeasure(decimal.NewFromInt(1)),
	}
	plan.ApplyTotals(LoadTotals{
		WeightKG: decimal.RequireFromString("999999999.999"),
		VolumeM3: decimal.NewFromInt(2),
	})
	if plan.WeightUtilization.String() != "9999999999.99" {
		t.Fatalf("weight utilization should be clamped, got %s", plan.WeightUtilization.String())
	}
	if plan.VolumeUtilization.String() != "200.00" || !plan.IsOverloaded {
		t.Fatalf("unexpected volume utilization %s overloaded=%v", plan.VolumeUtilization.String(), plan.IsOverloaded)
	}
}
