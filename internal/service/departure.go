package service

import (
	"github.com/tms-next/internal/models"
	"github.com/tms-next/internal/optimizer"
	"github.com/tms-next/internal/repository"
)

// resolveDeparture 发车点：区域发车地点，其次主站点，都没有坐标时返回 nil（由首个站点出发）
func resolveDeparture(area *models.RouteArea, locationRepo repository.CompanyLocationRepository) (*optimizer.Coordinate, error) {
	if area != nil && area.DepartureLocation.HasCoordinates() {
		return locationCoordinate(area.DepartureLocation), nil
	}
	if locationRepo == nil {
		return nil, nil
	}
	principal, err := locationRepo.GetPrincipal()
	if err != nil {
		return nil, err
	}
	if principal.HasCoordinates() {
		return locationCoordinate(principal), nil
	}
	return nil, nil
}

func locationCoordinate(location *models.CompanyLocation) *optimizer.Coordinate {
	return &optimizer.Coordinate{Latitude: *location.Latitude, Longitude: *location.Longitude}
}

// deliveryStops 将有坐标的配送单转换为路线站点，保持输入顺序
func deliveryStops(deliveries []models.Delivery) []optimizer.Stop {
	stops := make([]optimizer.Stop, 0, len(deliveries))
	for i := range deliveries {
		delivery := &deliveries[i]
		if !delivery.HasCoordinates() {
			continue
		}
		stops = append(stops, optimizer.Stop{
			DeliveryID:  delivery.ID,
			Description: delivery.OrderNumber,
			Coordinate: optimizer.Coordinate{
				Latitude:  *delivery.Latitude,
				Longitude: *delivery.Longitude,
			},
		})
	}
	return stops
}

func vehicleProfile(vehicle *models.Vehicle, fallback string) string {
	if vehicle != nil && vehicle.Profile != "" {
		return vehicle.Profile
	}
	return fallback
}
