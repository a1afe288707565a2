package models

import (
	"errors"
	"testing"

	"github.com/tms-next/internal/constants"
)

func TestVehicleValidate(t *testing.T) {
	driverID := uint(1)
	carrierID := uint(2)
	cases := []struct {
		name    string
		vehicle Vehicle
		want    error
	}{
		{"internal with driver", Vehicle{LicensePlate: "abc-1234", Profile: constants.VehicleProfileCar, DriverID: &driverID}, nil},
		{"mercosul plate", Vehicle{LicensePlate: "BRA2E19", Profile: constants.VehicleProfileHGV, DriverID: &driverID}, nil},
		{"internal without driver", Vehicle{LicensePlate: "ABC1234", Profile: constants.VehicleProfileCar}, ErrVehicleDriverRequired},
		{"outsourced without carrier", Vehicle{LicensePlate: "ABC1234", Profile: constants.VehicleProfileCar, IsOutsourced: true, DriverID: &driverID}, ErrVehicleCarrierRequired},
		{"outsourced with carrier", Vehicle{LicensePlate: "ABC1234", Profile: constants.VehicleProfileCar, IsOutsourced: true, CarrierID: &carrierID}, nil},
		{"bad plate", Vehicle{LicensePlate: "12-AB", Profile: constants.VehicleProfileCar, DriverID: &driverID}, ErrVehiclePlateInvalid},
		{"bad profile", Vehicle{LicensePlate: "ABC1234", Profile: "cycling", DriverID: &driverID}, ErrVehicleProfileInvalid},
	}
	for _, tc := range cases {
		vehicle := tc.vehicle
		err := vehicle.Validate()
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: want %v got %v", tc.name, tc.want, err)
		}
	}
}

func TestVehicleValidateNormalizesPlate(t *testing.T) {
	driverID := uint(1)
	vehicle := Vehicle{LicensePlate: " abc-1234 ", Profile: constants.VehicleProfileCar, DriverID: &driverID}
	if err := vehicle.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if vehicle.LicensePlate != "ABC1234" {
		t.Fatalf("plate want ABC1234 got %s", vehicle.LicensePlate)
	}
}

func TestRouteAreaValidateColor(t *testing.T) {
	if err := (&RouteArea{HexColor: "#00ff00"}).Validate(); err != nil {
		t.Fatalf("valid color rejected: %v", err)
	}
	if err := (&RouteArea{HexColor: "green"}).Validate(); !errors.Is(err, ErrRouteAreaColorInvalid) {
		t.Fatalf("invalid color accepted: %v", err)
	}
}
