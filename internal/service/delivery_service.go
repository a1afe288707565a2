package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tms-next/internal/constants"
	"github.com/tms-next/internal/geocoder"
	"github.com/tms-next/internal/logger"
	"github.com/tms-next/internal/models"
	"github.com/tms-next/internal/queue"
	"github.com/tms-next/internal/repository"

	"gorm.io/gorm"
)

// 已装车及之后的配送单不可取消
var cancellableDeliveryStatuses = map[string]bool{
	constants.DeliveryStatusPending:  true,
	constants.DeliveryStatusInScript: true,
	constants.DeliveryStatusInLoad:   true,
	constants.DeliveryStatusPicked:   true,
}

// DeliveryService 配送单服务
type DeliveryService struct {
	deliveryRepo repository.DeliveryRepository
	linkRepo     repository.CompositionDeliveryRepository
	loadPlanSvc  *LoadPlanService
	geocoder     geocoder.Geocoder
	queueClient  *queue.Client
}

// NewDeliveryService 创建配送单服务
func NewDeliveryService(
	deliveryRepo repository.DeliveryRepository,
	linkRepo repository.CompositionDeliveryRepository,
	loadPlanSvc *LoadPlanService,
	addressGeocoder geocoder.Geocoder,
	queueClient *queue.Client,
) *DeliveryService {
	return &DeliveryService{
		deliveryRepo: deliveryRepo,
		linkRepo:     linkRepo,
		loadPlanSvc:  loadPlanSvc,
		geocoder:     addressGeocoder,
		queueClient:  queueClient,
	}
}

// Get 获取配送单
func (s *DeliveryService) Get(id uint) (*models.Delivery, error) {
	delivery, err := s.deliveryRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if delivery == nil {
		return nil, ErrDeliveryNotFound
	}
	return delivery, nil
}

// List 配送单列表
func (s *DeliveryService) List(filter repository.DeliveryListFilter) ([]models.Delivery, int64, error) {
	return s.deliveryRepo.List(filter)
}

// Cancel 取消配送单：移出所在编排并重算装载计划
func (s *DeliveryService) Cancel(ctx context.Context, id uint) (*models.Delivery, error) {
	var affectedPlan *uint
	var delivery *models.Delivery
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		delivery, err = s.deliveryRepo.WithTx(tx).GetByID(id)
		if err != nil {
			return err
		}
		if delivery == nil {
			return ErrDeliveryNotFound
		}
		if !cancellableDeliveryStatuses[delivery.Status] {
			return fmt.Errorf("%w: status %s", ErrDeliveryCancelNotAllowed, delivery.Status)
		}

		linkRepo := s.linkRepo.WithTx(tx)
		link, err := linkRepo.GetByDelivery(delivery.ID)
		if err != nil {
			return err
		}
		if link != nil {
			if err := linkRepo.DeleteByIDs([]uint{link.ID}); err != nil {
				return err
			}
			if link.LoadPlanID != nil {
				affectedPlan = link.LoadPlanID
				if _, err := s.loadPlanSvc.RecalculateTotals(tx, *link.LoadPlanID); err != nil && !errors.Is(err, ErrLoadPlanNotFound) {
					return err
				}
			}
		}
		if err := s.deliveryRepo.WithTx(tx).UpdateStatus([]uint{delivery.ID}, constants.DeliveryStatusCancelled); err != nil {
			return err
		}
		delivery.Status = constants.DeliveryStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	if affectedPlan != nil {
		s.loadPlanSvc.scheduleReoptimize(ctx, map[uint]bool{*affectedPlan: true})
	}
	logger.FromContext(ctx).Infow("delivery_cancelled", "delivery_id", delivery.ID, "order_number", delivery.OrderNumber)
	return delivery, nil
}

// Geocode 同步地理编码并写回坐标
func (s *DeliveryService) Geocode(ctx context.Context, id uint) (*models.Delivery, error) {
	delivery, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if s.geocoder == nil {
		return nil, geocoder.ErrDisabled
	}
	coord, err := s.geocoder.Geocode(ctx, geocoder.Address{
		Street:       delivery.Street,
		Number:       delivery.Number,
		Neighborhood: delivery.Neighborhood,
		City:         delivery.City,
		State:        delivery.State,
		PostalCode:   delivery.PostalCode,
	})
	if err != nil {
		return nil, err
	}
	if coord == nil {
		if markErr := s.deliveryRepo.MarkGeocodeFailed(delivery.ID); markErr != nil {
			return nil, markErr
		}
		logger.FromContext(ctx).Warnw("delivery_geocode_failed", "delivery_id", delivery.ID, "address", delivery.FullAddress())
		return nil, ErrGeocodeFailed
	}
	if err := s.deliveryRepo.UpdateCoordinates(delivery.ID, coord.Latitude, coord.Longitude); err != nil {
		return nil, err
	}
	lat, lng := coord.Latitude, coord.Longitude
	delivery.Latitude = &lat
	delivery.Longitude = &lng
	delivery.GeocodeFailed = false
	logger.FromContext(ctx).Debugw("delivery_geocoded", "delivery_id", delivery.ID, "source", coord.Source)
	return delivery, nil
}

// EnqueueGeocode 投递异步地理编码任务，队列未启用时同步执行
func (s *DeliveryService) EnqueueGeocode(ctx context.Context, id uint) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	if s.queueClient == nil || !s.queueClient.Enabled() {
		_, err := s.Geocode(ctx, id)
		return err
	}
	return s.queueClient.EnqueueDeliveryGeocode(id)
}

// SweepMissingCoordinates 为缺少坐标的待规划配送单投递编码任务
func (s *DeliveryService) SweepMissingCoordinates(ctx context.Context, limit int) (int, error) {
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return 0, nil
	}
	deliveries, err := s.deliveryRepo.ListMissingCoordinates(limit)
	if err != nil {
		return 0, err
	}
	enqueued := 0
	for _, delivery := range deliveries {
		if err := s.queueClient.EnqueueDeliveryGeocode(delivery.ID); err != nil {
			logger.FromContext(ctx).Warnw("delivery_geocode_enqueue_failed", "delivery_id", delivery.ID, "error", err)
			continue
		}
		enqueued++
	}
	return enqueued, nil
}
