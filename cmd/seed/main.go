package main

import (
	"fmt"

	"github.com/tms-next/internal/config"
	"github.com/tms-next/internal/constants"
	"github.com/tms-next/internal/logger"
	"github.com/tms-next/internal/models"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const seedAreaGeoJSON = `{"type":"Polygon","coordinates":[[[-46.70,-23.60],[-46.60,-23.60],[-46.60,-23.50],[-46.70,-23.50],[-46.70,-23.60]]]}`

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, cfg.Server.Mode, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 发车站点
	depotLat, depotLng := -23.55, -46.65
	depot := models.CompanyLocation{
		Name:        "CD Centro",
		Type:        "warehouse",
		Street:      "Rua Augusta",
		Number:      "100",
		City:        "São Paulo",
		State:       "SP",
		Latitude:    &depotLat,
		Longitude:   &depotLng,
		IsActive:    true,
		IsPrincipal: true,
	}
	if err := models.DB.Where("name = ?", depot.Name).FirstOrCreate(&depot).Error; err != nil {
		stdLog.Fatalf("Failed to seed location: %v", err)
	}

	// 配送区域
	area := models.RouteArea{
		Name:                "Centro",
		GeoJSON:             seedAreaGeoJSON,
		HexColor:            "#3388FF",
		Status:              constants.RouteAreaStatusActive,
		DepartureLocationID: &depot.ID,
	}
	if err := models.DB.Where("name = ?", area.Name).FirstOrCreate(&area).Error; err != nil {
		stdLog.Fatalf("Failed to seed route area: %v", err)
	}

	// 司机与车辆
	driver := models.Driver{Name: "Motorista Padrão", IsActive: true}
	if err := models.DB.Where("name = ?", driver.Name).FirstOrCreate(&driver).Error; err != nil {
		stdLog.Fatalf("Failed to seed driver: %v", err)
	}
	vehicles := []models.Vehicle{
		{LicensePlate: "ABC1D23", Name: "VUC 01", Profile: constants.VehicleProfileCar, MaxWeightKG: models.NewMeasure(decimal.NewFromInt(1500)), MaxVolumeM3: models.NewMeasure(decimal.NewFromInt(12))},
		{LicensePlate: "DEF4G56", Name: "Truck 01", Profile: constants.VehicleProfileHGV, MaxWeightKG: models.NewMeasure(decimal.NewFromInt(8000)), MaxVolumeM3: models.NewMeasure(decimal.NewFromInt(40))},
	}
	for i := range vehicles {
		vehicle := vehicles[i]
		vehicle.RouteAreaID = &area.ID
		vehicle.DriverID = &driver.ID
		vehicle.IsActive = true
		if err := vehicle.Validate(); err != nil {
			stdLog.Fatalf("Invalid seed vehicle %s: %v", vehicle.LicensePlate, err)
		}
		if err := models.DB.Where("license_plate = ?", vehicle.LicensePlate).FirstOrCreate(&vehicle).Error; err != nil {
			stdLog.Fatalf("Failed to seed vehicle: %v", err)
		}
	}

	// 待规划配送单
	for i := 1; i <= 10; i++ {
		lat := -23.59 + float64(i)*0.008
		lng := -46.69 + float64(i)*0.008
		delivery := models.Delivery{
			OrderNumber:  fmt.Sprintf("SEED-%04d", i),
			CustomerName: fmt.Sprintf("Cliente %02d", i),
			Street:       "Avenida Paulista",
			Number:       fmt.Sprintf("%d", 1000+i*10),
			City:         "São Paulo",
			State:        "SP",
			Latitude:     &lat,
			Longitude:    &lng,
			WeightKG:     models.NewMeasure(decimal.NewFromInt(int64(50 + i*10))),
			VolumeM3:     models.NewMeasure(decimal.NewFromFloat(0.5)),
			Value:        models.NewMoneyFromDecimal(decimal.NewFromInt(int64(200 + i*25))),
			Status:       constants.DeliveryStatusPending,
		}
		if err := models.DB.Where("order_number = ?", delivery.OrderNumber).FirstOrCreate(&delivery).Error; err != nil {
			stdLog.Fatalf("Failed to seed delivery: %v", err)
		}
	}

	stdLog.Println("Seed data created successfully")
}
