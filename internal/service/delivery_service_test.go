package service

import (
	"context"
	"errors"
	"testing"

	"github.com/tms-next/internal/constants"
	"github.com/tms-next/internal/geocoder"
	"github.com/tms-next/internal/models"
	"github.com/tms-next/internal/repository"
)

type stubGeocoder struct {
	coord *geocoder.Coordinate
	calls int
}

func (g *stubGeocoder) Geocode(_ context.Context, _ geocoder.Address) (*geocoder.Coordinate, error) {
	g.calls++
	return g.coord, nil
}

func (f *planningFixture) deliveryService(addressGeocoder geocoder.Geocoder) *DeliveryService {
	return NewDeliveryService(
		repository.NewDeliveryRepository(f.db),
		repository.NewCompositionDeliveryRepository(f.db),
		f.loadPlanSvc,
		addressGeocoder,
		nil,
	)
}

func TestDeliveryCancelRemovesLinkAndRecalculates(t *testing.T) {
	f, deliveries, _ := runTwoAreaScenario(t, PlanningOptions{})
	scheduler := &recordingScheduler{}
	f.loadPlanSvc.SetScheduler(scheduler)
	svc := f.deliveryService(nil)
	var vehicleA models.Vehicle
	f.db.Where("license_plate = ?", "AAA1A11").First(&vehicleA)
	planA := f.planOf(t, vehicleA.ID)

	cancelled, err := svc.Cancel(context.Background(), deliveries[0].ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != constants.DeliveryStatusCancelled || f.deliveryStatus(t, deliveries[0].ID) != constants.DeliveryStatusCancelled {
		t.Fatalf("delivery should be cancelled")
	}
	var links int64
	f.db.Model(&models.RouteCompositionDelivery{}).Where("delivery_id = ?", deliveries[0].ID).Count(&links)
	if links != 0 {
		t.Fatalf("link should be removed")
	}
	if updated := f.planOf(t, vehicleA.ID); updated.TotalDeliveries != 0 || !updated.TotalWeightKG.IsZero() {
		t.Fatalf("plan totals should be recalculated: %+v", updated)
	}
	if len(scheduler.scheduled) != 1 || scheduler.scheduled[0] != planA.ID {
		t.Fatalf("expected reoptimize for plan A, got %v", scheduler.scheduled)
	}

	if _, err := svc.Cancel(context.Background(), deliveries[0].ID); !errors.Is(err, ErrDeliveryCancelNotAllowed) {
		t.Fatalf("expected ErrDeliveryCancelNotAllowed, got %v", err)
	}
	if _, err := svc.Cancel(context.Background(), 9999); !errors.Is(err, ErrDeliveryNotFound) {
		t.Fatalf("expected ErrDeliveryNotFound, got %v", err)
	}
}

func TestDeliveryCancelRejectsLoadedDeliveries(t *testing.T) {
	f, deliveries, compositionID := runTwoAreaScenario(t, PlanningOptions{})
	if _, err := f.compositionSvc.Transition(context.Background(), compositionID, constants.CompositionStatusLoading); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	svc := f.deliveryService(nil)
	if _, err := svc.Cancel(context.Background(), deliveries[0].ID); !errors.Is(err, ErrDeliveryCancelNotAllowed) {
		t.Fatalf("loaded delivery must not be cancelled, got %v", err)
	}
}

func TestDeliveryGeocode(t *testing.T) {
	f := setupPlanningFixture(t, PlanningOptions{})
	delivery := &models.Delivery{
		OrderNumber:  "PED-GEO",
		CustomerName: "Cliente",
		Street:       "Rua A",
		City:         "Niterói",
		State:        "RJ",
		Status:       constants.DeliveryStatusPending,
	}
	if err := f.db.Create(delivery).Error; err != nil {
		t.Fatalf("create delivery failed: %v", err)
	}

	missing := &stubGeocoder{}
	if _, err := f.deliveryService(missing).Geocode(context.Background(), delivery.ID); !errors.Is(err, ErrGeocodeFailed) {
		t.Fatalf("expected ErrGeocodeFailed, got %v", err)
	}
	var stored models.Delivery
	f.db.First(&stored, delivery.ID)
	if !stored.GeocodeFailed || stored.HasCoordinates() {
		t.Fatalf("delivery should be marked as failed: %+v", stored)
	}

	found := &stubGeocoder{coord: &geocoder.Coordinate{Latitude: -22.9, Longitude: -43.1, Source: "structured"}}
	if err := f.deliveryService(found).EnqueueGeocode(context.Background(), delivery.ID); err != nil {
		t.Fatalf("geocode without queue should run inline: %v", err)
	}
	f.db.First(&stored, delivery.ID)
	if stored.GeocodeFailed || !stored.HasCoordinates() || *stored.Latitude != -22.9 || *stored.Longitude != -43.1 {
		t.Fatalf("coordinates should be stored: %+v", stored)
	}
	if found.calls != 1 {
		t.Fatalf("expected one geocoder call, got %d", found.calls)
	}
	if _, err := f.deliveryService(nil).Geocode(context.Background(), delivery.ID); !errors.Is(err, geocoder.ErrDisabled) {
		t.Fatalf("expected geocoder.ErrDisabled, got %v", err)
	}
}

func TestDeliverySweepWithoutQueue(t *testing.T) {
	f := setupPlanningFixture(t, PlanningOptions{})
	count, err := f.deliveryService(&stubGeocoder{}).SweepMissingCoordinates(context.Background(), 10)
	if err != nil || count != 0 {
		t.Fatalf("sweep without queue should be a no-op, count=%d err=%v", count, err)
	}
}
