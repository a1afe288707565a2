package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tms-next/internal/constants"
	"github.com/tms-next/internal/logger"
	"github.com/tms-next/internal/models"
	"github.com/tms-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CompositionService 路线编排服务
type CompositionService struct {
	compositionRepo repository.CompositionRepository
	loadPlanRepo    repository.LoadPlanRepository
	linkRepo        repository.CompositionDeliveryRepository
	deliveryRepo    repository.DeliveryRepository
	routeRepo       repository.RouteRepository
	vehicleRepo     repository.VehicleRepository
	areaRepo        repository.RouteAreaRepository
	loadPlanSvc     *LoadPlanService
}

// CompositionStats 编排汇总
type CompositionStats struct {
	Composition     *models.RouteComposition `json:"composition"`
	LoadPlans       []models.LoadPlan        `json:"load_plans"`
	TotalDeliveries int64                    `json:"total_deliveries"`
	WithLoadPlan    int64                    `json:"with_load_plan"`
	WithoutLoadPlan int64                    `json:"without_load_plan"`
	TotalDistanceKM models.Money             `json:"total_distance_km"`
	LongestTime     string                   `json:"longest_time"`
	OverloadedPlans int                      `json:"overloaded_plans"`
}

// AddLoadPlansResult 手动添加装载计划结果
type AddLoadPlansResult struct {
	Created []models.LoadPlan `json:"created"`
	Skipped []string          `json:"skipped"`
}

// NewCompositionService 创建编排服务
func NewCompositionService(
	compositionRepo repository.CompositionRepository,
	loadPlanRepo repository.LoadPlanRepository,
	linkRepo repository.CompositionDeliveryRepository,
	deliveryRepo repository.DeliveryRepository,
	routeRepo repository.RouteRepository,
	vehicleRepo repository.VehicleRepository,
	areaRepo repository.RouteAreaRepository,
	loadPlanSvc *LoadPlanService,
) *CompositionService {
	return &CompositionService{
		compositionRepo: compositionRepo,
		loadPlanRepo:    loadPlanRepo,
		linkRepo:        linkRepo,
		deliveryRepo:    deliveryRepo,
		routeRepo:       routeRepo,
		vehicleRepo:     vehicleRepo,
		areaRepo:        areaRepo,
		loadPlanSvc:     loadPlanSvc,
	}
}

// Get 获取编排
func (s *CompositionService) Get(id uint) (*models.RouteComposition, error) {
	composition, err := s.compositionRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if composition == nil {
		return nil, ErrCompositionNotFound
	}
	return composition, nil
}

// List 编排列表
func (s *CompositionService) List(filter repository.CompositionListFilter) ([]models.RouteComposition, int64, error) {
	return s.compositionRepo.List(filter)
}

// Create 在事务内创建规划编排（draft）
func (s *CompositionService) Create(tx *gorm.DB, compositionType string, start, end *time.Time, createdBy *uint) (*models.RouteComposition, error) {
	repo := s.compositionRepo.WithTx(tx)
	composition := &models.RouteComposition{
		Name:      "Roteirização",
		Type:      compositionType,
		Status:    constants.CompositionStatusDraft,
		StartDate: start,
		EndDate:   end,
		CreatedBy: createdBy,
	}
	if err := repo.Create(composition); err != nil {
		return nil, err
	}
	composition.Name = fmt.Sprintf("Roteirização RTR-%d", composition.ID)
	if err := tx.Model(&models.RouteComposition{}).Where("id = ?", composition.ID).Update("name", composition.Name).Error; err != nil {
		return nil, err
	}
	return composition, nil
}

// Transition 显式状态变更：相同状态不处理，终态不可变更，不可回退，任意非终态可取消
func (s *CompositionService) Transition(ctx context.Context, id uint, newStatus string) (*models.RouteComposition, error) {
	newStatus = strings.ToLower(strings.TrimSpace(newStatus))
	var updated *models.RouteComposition
	var previous string
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		composition, err := s.compositionRepo.WithTx(tx).GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if composition == nil {
			return ErrCompositionNotFound
		}
		previous = composition.Status
		noop, err := checkCompositionTransition(composition.Status, newStatus)
		if err != nil {
			return err
		}
		if !noop {
			if err := s.ApplyCascade(tx, composition, newStatus); err != nil {
				return err
			}
		}
		updated = composition
		return nil
	})
	if err != nil {
		return nil, err
	}
	if previous != newStatus {
		logger.FromContext(ctx).Infow("composition_status_changed",
			"composition_id", id,
			"from", previous,
			"to", newStatus,
		)
	}
	return updated, nil
}

// ApplyCascade 在事务内执行状态级联：配送单、装载计划、编排本身
func (s *CompositionService) ApplyCascade(tx *gorm.DB, composition *models.RouteComposition, status string) error {
	rule, ok := compositionCascade[status]
	if !ok {
		return fmt.Errorf("%w: unknown status %q", ErrCompositionTransitionInvalid, status)
	}
	linkRepo := s.linkRepo.WithTx(tx)
	deliveryRepo := s.deliveryRepo.WithTx(tx)
	planRepo := s.loadPlanRepo.WithTx(tx)

	switch status {
	case constants.CompositionStatusCancelled:
		links, err := linkRepo.ListByComposition(composition.ID)
		if err != nil {
			return err
		}
		if err := deliveryRepo.UpdateStatus(linkDeliveryIDs(links), constants.DeliveryStatusPending); err != nil {
			return err
		}
		planIDs := make(map[uint]bool)
		for _, link := range links {
			if link.LoadPlanID != nil {
				planIDs[*link.LoadPlanID] = true
			}
		}
		if err := linkRepo.DeleteByComposition(composition.ID); err != nil {
			return err
		}
		if s.loadPlanSvc != nil {
			if err := s.loadPlanSvc.recalculateAll(tx, planIDs); err != nil {
				return err
			}
		}
		routeIDs, err := planRepo.DetachRoutes(composition.ID)
		if err != nil {
			return err
		}
		if err := s.routeRepo.WithTx(tx).DeleteByIDs(routeIDs); err != nil {
			return err
		}
	case constants.CompositionStatusPlanned:
		unassigned, err := linkRepo.ListUnassigned(composition.ID)
		if err != nil {
			return err
		}
		if err := deliveryRepo.UpdateStatus(linkDeliveryIDs(unassigned), constants.DeliveryStatusPending); err != nil {
			return err
		}
		if err := linkRepo.DeleteByIDs(linkIDs(unassigned)); err != nil {
			return err
		}
	}

	if status != constants.CompositionStatusCancelled {
		links, err := linkRepo.ListByComposition(composition.ID)
		if err != nil {
			return err
		}
		if err := deliveryRepo.UpdateStatus(linkDeliveryIDs(links), rule.DeliveryStatus); err != nil {
			return err
		}
	}
	if err := planRepo.UpdateStatusByComposition(composition.ID, rule.LoadPlanStatus); err != nil {
		return err
	}
	if err := s.compositionRepo.WithTx(tx).UpdateStatus(composition.ID, status); err != nil {
		return err
	}
	composition.Status = status
	return nil
}

// Stats 编排统计：有无装载计划的配送单数、总里程、最长路线时长
func (s *CompositionService) Stats(id uint) (*CompositionStats, error) {
	composition, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	plans, err := s.loadPlanRepo.ListByComposition(id)
	if err != nil {
		return nil, err
	}
	linkStats, err := s.linkRepo.Stats(id)
	if err != nil {
		return nil, err
	}
	distance := decimal.Zero
	longest := decimal.Zero
	overloaded := 0
	for _, plan := range plans {
		if plan.IsOverloaded {
			overloaded++
		}
		if plan.Route == nil {
			continue
		}
		distance = distance.Add(plan.Route.DistanceKM.Decimal)
		if plan.Route.TimeMin.GreaterThan(longest) {
			longest = plan.Route.TimeMin.Decimal
		}
	}
	return &CompositionStats{
		Composition:     composition,
		LoadPlans:       plans,
		TotalDeliveries: linkStats.Total,
		WithLoadPlan:    linkStats.WithPlan,
		WithoutLoadPlan: linkStats.WithoutPlan,
		TotalDistanceKM: models.NewMoneyFromDecimal(distance),
		LongestTime:     FormatDuration(longest),
		OverloadedPlans: overloaded,
	}, nil
}

// AddLoadPlans 为选定车辆创建空装载计划，已有计划的车辆跳过
func (s *CompositionService) AddLoadPlans(ctx context.Context, compositionID uint, vehicleIDs []uint, createdBy *uint) (*AddLoadPlansResult, error) {
	result := &AddLoadPlansResult{Created: []models.LoadPlan{}, Skipped: []string{}}
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		composition, err := s.compositionRepo.WithTx(tx).GetByIDForUpdate(compositionID)
		if err != nil {
			return err
		}
		if composition == nil {
			return ErrCompositionNotFound
		}
		if isTerminalComposition(composition.Status) {
			return ErrCompositionTerminal
		}
		existing, err := s.loadPlanRepo.WithTx(tx).VehicleIDsInComposition(composition.ID)
		if err != nil {
			return err
		}
		vehicles, err := s.vehicleRepo.WithTx(tx).ListByIDs(uniqueIDs(vehicleIDs))
		if err != nil {
			return err
		}
		if len(vehicles) == 0 {
			return ErrVehicleNotFound
		}
		status := compositionCascade[composition.Status].LoadPlanStatus
		for i := range vehicles {
			vehicle := &vehicles[i]
			if existing[vehicle.ID] || !vehicle.IsActive {
				result.Skipped = append(result.Skipped, vehicle.LicensePlate)
				continue
			}
			areaName := ""
			var area *models.RouteArea
			if vehicle.RouteAreaID != nil {
				area, err = s.areaRepo.WithTx(tx).GetByID(*vehicle.RouteAreaID)
				if err != nil {
					return err
				}
			}
			if area != nil {
				areaName = area.Name
			}
			routeName := fmt.Sprintf("Rota %s - %s", areaName, vehicleDisplayName(vehicle))
			if areaName == "" {
				routeName = fmt.Sprintf("Rota %s", vehicleDisplayName(vehicle))
			}
			route := &models.Route{
				Name:        routeName,
				Color:       areaColor(area),
				RouteAreaID: areaID(area),
			}
			if err := s.routeRepo.WithTx(tx).Create(route); err != nil {
				return err
			}
			plan, err := s.loadPlanSvc.Create(tx, CreateLoadPlanInput{
				Vehicle:       vehicle,
				CompositionID: &composition.ID,
				RouteID:       &route.ID,
				Name:          loadPlanName(areaName, vehicle),
				CreatedBy:     createdBy,
			})
			if err != nil {
				return err
			}
			if status != "" && status != plan.Status {
				if err := s.loadPlanRepo.WithTx(tx).UpdateColumns(plan.ID, map[string]interface{}{"status": status}); err != nil {
					return err
				}
				plan.Status = status
			}
			existing[vehicle.ID] = true
			result.Created = append(result.Created, *plan)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Infow("composition_load_plans_added",
		"composition_id", compositionID,
		"created", len(result.Created),
		"skipped", len(result.Skipped),
	)
	return result, nil
}

func loadPlanName(areaName string, vehicle *models.Vehicle) string {
	if strings.TrimSpace(areaName) != "" {
		return fmt.Sprintf("Carga %s", areaName)
	}
	return fmt.Sprintf("Carga %s", vehicleDisplayName(vehicle))
}

func vehicleDisplayName(vehicle *models.Vehicle) string {
	if vehicle == nil {
		return ""
	}
	if name := strings.TrimSpace(vehicle.Name); name != "" {
		return name
	}
	return vehicle.LicensePlate
}

func linkDeliveryIDs(links []models.RouteCompositionDelivery) []uint {
	ids := make([]uint, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.DeliveryID)
	}
	return ids
}

func linkIDs(links []models.RouteCompositionDelivery) []uint {
	ids := make([]uint, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.ID)
	}
	return ids
}
