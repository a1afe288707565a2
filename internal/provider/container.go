package provider

import (
	"github.com/tms-next/internal/authz"
	"github.com/tms-next/internal/cache"
	"github.com/tms-next/internal/config"
	"github.com/tms-next/internal/geocoder"
	"github.com/tms-next/internal/logger"
	"github.com/tms-next/internal/models"
	"github.com/tms-next/internal/optimizer"
	"github.com/tms-next/internal/queue"
	"github.com/tms-next/internal/repository"
	"github.com/tms-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Optimizer   optimizer.Optimizer
	Geocoder    *geocoder.Client
	Authz       *authz.Service

	// Repositories
	UserRepo         repository.UserRepository
	DeliveryRepo     repository.DeliveryRepository
	VehicleRepo      repository.VehicleRepository
	RouteAreaRepo    repository.RouteAreaRepository
	LocationRepo     repository.CompanyLocationRepository
	RouteRepo        repository.RouteRepository
	LoadPlanRepo     repository.LoadPlanRepository
	CompositionRepo  repository.CompositionRepository
	LinkRepo         repository.CompositionDeliveryRepository
	TaskRecordRepo   repository.TaskRecordRepository
	NotificationRepo repository.NotificationRepository

	// Services
	AuthService        *service.AuthService
	Notifier           *service.Notifier
	LoadPlanService    *service.LoadPlanService
	CompositionService *service.CompositionService
	PlanningService    *service.PlanningService
	DeliveryService    *service.DeliveryService
	ImportService      *service.ImportService
	ExportService      *service.ExportService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端，未启用时客户端仍可用（入队返回 ErrDisabled）
	queueClient, err := queue.NewClient(&cfg.Queue, cfg.Planning.ReoptimizeDebounce())
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient = nil
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Optimizer:   optimizer.NewClient(cfg.Optimizer),
		Geocoder:    geocoder.NewClient(cfg.Geocoder),
	}

	// 初始化授权策略
	if authzService, err := authz.NewService(models.DB); err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
	} else if err := authzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_roles_failed", "error", err)
	} else {
		c.Authz = authzService
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.DeliveryRepo = repository.NewDeliveryRepository(db)
	c.VehicleRepo = repository.NewVehicleRepository(db)
	c.RouteAreaRepo = repository.NewRouteAreaRepository(db)
	c.LocationRepo = repository.NewCompanyLocationRepository(db)
	c.RouteRepo = repository.NewRouteRepository(db)
	c.LoadPlanRepo = repository.NewLoadPlanRepository(db)
	c.CompositionRepo = repository.NewCompositionRepository(db)
	c.LinkRepo = repository.NewCompositionDeliveryRepository(db)
	c.TaskRecordRepo = repository.NewTaskRecordRepository(db)
	c.NotificationRepo = repository.NewNotificationRepository(db)
}

func (c *Container) initServices() {
	c.AuthService = service.NewAuthService(c.Config, c.UserRepo)
	c.Notifier = service.NewNotifier(c.TaskRecordRepo, c.NotificationRepo)

	c.LoadPlanService = service.NewLoadPlanService(
		c.LoadPlanRepo, c.CompositionRepo, c.LinkRepo, c.RouteRepo,
		c.DeliveryRepo, c.VehicleRepo, c.RouteAreaRepo, c.LocationRepo, c.Optimizer,
	)
	if c.QueueClient != nil {
		c.LoadPlanService.SetScheduler(c.QueueClient)
	}
	c.CompositionService = service.NewCompositionService(
		c.CompositionRepo, c.LoadPlanRepo, c.LinkRepo, c.DeliveryRepo,
		c.RouteRepo, c.VehicleRepo, c.RouteAreaRepo, c.LoadPlanService,
	)
	c.PlanningService = service.NewPlanningService(
		c.DeliveryRepo, c.VehicleRepo, c.RouteAreaRepo, c.LocationRepo, c.LinkRepo, c.RouteRepo,
		c.CompositionService, c.LoadPlanService, c.Notifier, c.Optimizer, c.QueueClient,
		service.PlanningOptions{
			CrossAreaBackfill:     c.Config.Planning.CrossAreaBackfill,
			OrderAreasByProximity: c.Config.Planning.OrderAreasByProximity,
		},
	)
	var addressGeocoder geocoder.Geocoder
	if c.Geocoder.Enabled() {
		addressGeocoder = c.Geocoder
	}
	c.DeliveryService = service.NewDeliveryService(c.DeliveryRepo, c.LinkRepo, c.LoadPlanService, addressGeocoder, c.QueueClient)
	c.ImportService = service.NewImportService(c.DeliveryRepo, c.Notifier, c.QueueClient, c.Config.Import)
	c.ExportService = service.NewExportService(c.LoadPlanRepo, c.LinkRepo)
}
