package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tms-next/internal/config"
	"github.com/tms-next/internal/constants"
	"github.com/tms-next/internal/models"
	"github.com/tms-next/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func buildSheet(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	file := excelize.NewFile()
	defer file.Close()
	sheet := file.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name failed: %v", err)
		}
		if err := file.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row failed: %v", err)
		}
	}
	buf, err := file.WriteToBuffer()
	if err != nil {
		t.Fatalf("write sheet failed: %v", err)
	}
	return buf
}

func (f *planningFixture) importService(maxRows int) *ImportService {
	return NewImportService(repository.NewDeliveryRepository(f.db), f.notifier, nil, config.ImportConfig{MaxRows: maxRows})
}

func TestImportCreatesAndUpdatesDeliveries(t *testing.T) {
	f := setupPlanningFixture(t, PlanningOptions{})
	existing := f.createDelivery(t, "SAI-2", -46.5, -23.5, "1", "0.1")
	planned := f.createDelivery(t, "SAI-3", -46.5, -23.5, "1", "0.1")
	f.db.Model(planned).Update("status", constants.DeliveryStatusInScript)

	header := []interface{}{"NumeroSaida", "NomeCliente", "EnderecoEntrega", "NumeroEntrega", "BairroEntrega", "CidadeEntrega", "EstadoEntrega", "CEPEntrega", "Peso", "CubagemM3", "ValTotNota"}
	buf := buildSheet(t, [][]interface{}{
		header,
		{"SAI-1", "Maria", "Rua das Flores", "10", "Centro", "Niterói - RJ", "", "24.020-000", "1.234,5", "0,75", "430,00"},
		{"SAI-2", "João", "Rua Nova", "20", "Icaraí", "Niterói", "RJ", "24220000", "12.5", "1", "100"},
		{"SAI-3", "Ana", "Rua B", "1", "Centro", "Niterói", "RJ", "", "1", "1", "1"},
		{"", "sem pedido"},
		{"SAI-4", "Pedro", "Rua C", "5", "Centro", "Niterói", "RJ", "", "abc", "1", "1"},
		{"SAI-1", "Maria", "Rua das Flores", "10", "Centro", "Niterói", "RJ", "", "1", "1", "1"},
	})

	result, err := f.importService(0).Import(context.Background(), buf, 1)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.TotalRows != 6 || result.Created != 1 || result.Updated != 1 || result.Skipped != 4 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Errors) != 3 {
		t.Fatalf("expected 3 row errors, got %v", result.Errors)
	}

	var created models.Delivery
	if err := f.db.Where("order_number = ?", "SAI-1").First(&created).Error; err != nil {
		t.Fatalf("load created delivery failed: %v", err)
	}
	if created.City != "Niterói" || created.State != "RJ" || created.PostalCode != "24020000" {
		t.Fatalf("unexpected address: %+v", created)
	}
	if !created.WeightKG.Equal(decimal.RequireFromString("1234.5")) || !created.VolumeM3.Equal(decimal.RequireFromString("0.75")) || !created.Value.Equal(decimal.NewFromInt(430)) {
		t.Fatalf("unexpected measures: %s %s %s", created.WeightKG, created.VolumeM3, created.Value)
	}
	if created.Status != constants.DeliveryStatusPending || created.CreatedBy == nil || *created.CreatedBy != 1 {
		t.Fatalf("unexpected created delivery: %+v", created)
	}

	var updated models.Delivery
	f.db.First(&updated, existing.ID)
	if updated.Street != "Rua Nova" || !updated.WeightKG.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("existing delivery should be updated: %+v", updated)
	}
	if updated.HasCoordinates() {
		t.Fatalf("address change should clear coordinates")
	}

	var untouched models.Delivery
	f.db.First(&untouched, planned.ID)
	if untouched.Street == "Rua B" {
		t.Fatalf("planned delivery must not be overwritten")
	}

	var notifications []models.Notification
	f.db.Where("user_id = ?", 1).Find(&notifications)
	if len(notifications) != 1 || notifications[0].Title != "Importação de entregas concluída" {
		t.Fatalf("unexpected notifications: %+v", notifications)
	}
}

func TestImportRejectsInvalidFiles(t *testing.T) {
	f := setupPlanningFixture(t, PlanningOptions{})
	ctx := context.Background()

	if _, err := f.importService(0).Import(ctx, strings.NewReader("not a spreadsheet"), 1); !errors.Is(err, ErrImportFileInvalid) {
		t.Fatalf("expected ErrImportFileInvalid, got %v", err)
	}
	headerOnly := buildSheet(t, [][]interface{}{{"NumeroSaida"}})
	if _, err := f.importService(0).Import(ctx, headerOnly, 1); !errors.Is(err, ErrImportFileInvalid) {
		t.Fatalf("expected ErrImportFileInvalid for header only, got %v", err)
	}
	noOrder := buildSheet(t, [][]interface{}{{"Cliente"}, {"Maria"}})
	if _, err := f.importService(0).Import(ctx, noOrder, 1); !errors.Is(err, ErrImportFileInvalid) {
		t.Fatalf("expected ErrImportFileInvalid without order column, got %v", err)
	}
	tooMany := buildSheet(t, [][]interface{}{{"NumeroSaida"}, {"A"}, {"B"}, {"C"}})
	if _, err := f.importService(2).Import(ctx, tooMany, 1); !errors.Is(err, ErrImportTooManyRows) {
		t.Fatalf("expected ErrImportTooManyRows, got %v", err)
	}
}

func TestParseLocaleDecimal(t *testing.T) {
	cases := map[string]string{
		"":         "0",
		"430,00":   "430",
		"1.234,56": "1234.56",
		"1.234":    "1234",
		"12.5":     "12.5",
		"7":        "7",
	}
	for input, want := range cases {
		got, err := parseLocaleDecimal(input)
		if err != nil {
			t.Fatalf("parse %q failed: %v", input, err)
		}
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("parse %q = %s, want %s", input, got, want)
		}
	}
	if _, err := parseLocaleDecimal("1,2,3x"); err == nil {
		t.Fatalf("expected error for invalid decimal")
	}
}
