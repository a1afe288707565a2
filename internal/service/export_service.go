package service

import (
	"bytes"
	"fmt"

	"github.com/tms-next/internal/models"
	"github.com/tms-next/internal/repository"

	"github.com/xuri/excelize/v2"
)

const loadPlanSheet = "Carga"

var loadPlanExportHeader = []interface{}{
	"Sequência", "Pedido", "Cliente", "Telefone", "Endereço", "Bairro", "Cidade", "UF", "CEP",
	"Peso (kg)", "Volume (m³)", "Valor", "Referência", "Observação",
}

// ExportService 装载计划表格导出
type ExportService struct {
	loadPlanRepo repository.LoadPlanRepository
	linkRepo     repository.CompositionDeliveryRepository
}

// NewExportService 创建导出服务
func NewExportService(loadPlanRepo repository.LoadPlanRepository, linkRepo repository.CompositionDeliveryRepository) *ExportService {
	return &ExportService{loadPlanRepo: loadPlanRepo, linkRepo: linkRepo}
}

// ExportLoadPlan 生成装载计划 xlsx，返回内容与文件名
func (s *ExportService) ExportLoadPlan(loadPlanID uint) (*bytes.Buffer, string, error) {
	plan, err := s.loadPlanRepo.GetByID(loadPlanID)
	if err != nil {
		return nil, "", err
	}
	if plan == nil {
		return nil, "", ErrLoadPlanNotFound
	}
	links, err := s.linkRepo.ListByLoadPlan(plan.ID)
	if err != nil {
		return nil, "", err
	}

	file := excelize.NewFile()
	defer file.Close()
	if err := file.SetSheetName(file.GetSheetName(0), loadPlanSheet); err != nil {
		return nil, "", err
	}

	vehicle := ""
	if plan.Vehicle != nil {
		vehicle = vehicleDisplayName(plan.Vehicle)
	}
	summary := [][]interface{}{
		{"Carga", plan.Name},
		{"Código", plan.Code},
		{"Veículo", vehicle},
		{"Data", plan.PlannedDate.Format("02/01/2006")},
		{"Entregas", plan.TotalDeliveries},
		{"Peso total (kg)", plan.TotalWeightKG.InexactFloat64()},
		{"Volume total (m³)", plan.TotalVolumeM3.InexactFloat64()},
		{"Utilização peso (%)", plan.WeightUtilization.InexactFloat64()},
		{"Utilização volume (%)", plan.VolumeUtilization.InexactFloat64()},
	}
	if plan.Route != nil {
		summary = append(summary,
			[]interface{}{"Distância (km)", plan.Route.DistanceKM.InexactFloat64()},
			[]interface{}{"Tempo", FormatDuration(plan.Route.TimeMin.Decimal)},
		)
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := file.SetSheetRow(loadPlanSheet, cell, &row); err != nil {
			return nil, "", err
		}
	}

	headerRow := len(summary) + 2
	headerCell, _ := excelize.CoordinatesToCellName(1, headerRow)
	if err := file.SetSheetRow(loadPlanSheet, headerCell, &loadPlanExportHeader); err != nil {
		return nil, "", err
	}
	if style, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		lastCell, _ := excelize.CoordinatesToCellName(len(loadPlanExportHeader), headerRow)
		_ = file.SetCellStyle(loadPlanSheet, headerCell, lastCell, style)
	}

	for i, link := range links {
		if link.Delivery == nil {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, headerRow+1+i)
		row := loadPlanExportRow(link.Sequence, link.Delivery)
		if err := file.SetSheetRow(loadPlanSheet, cell, &row); err != nil {
			return nil, "", err
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}
	return buf, fmt.Sprintf("carga-%s.xlsx", plan.Code), nil
}

func loadPlanExportRow(sequence int, delivery *models.Delivery) []interface{} {
	street := delivery.Street
	if delivery.Number != "" {
		street = fmt.Sprintf("%s, %s", delivery.Street, delivery.Number)
	}
	return []interface{}{
		sequence,
		delivery.OrderNumber,
		delivery.CustomerName,
		delivery.Phone,
		street,
		delivery.Neighborhood,
		delivery.City,
		delivery.State,
		delivery.PostalCode,
		delivery.WeightKG.InexactFloat64(),
		delivery.VolumeM3.InexactFloat64(),
		delivery.Value.InexactFloat64(),
		delivery.Reference,
		delivery.Observation,
	}
}
