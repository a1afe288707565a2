package constants

// 配送单状态常量
const (
	DeliveryStatusPending   = "pending"
	DeliveryStatusInScript  = "in_script"
	DeliveryStatusInLoad    = "in_load"
	DeliveryStatusPicked    = "picked"
	DeliveryStatusLoaded    = "loaded"
	DeliveryStatusInTransit = "in_transit"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusFailed    = "failed"
	DeliveryStatusCancelled = "cancelled"
)

// 装载计划状态常量
const (
	LoadPlanStatusDraft           = "draft"
	LoadPlanStatusRouteStarted    = "route_started"
	LoadPlanStatusAwaitingLoading = "awaiting_loading"
	LoadPlanStatusLoading         = "loading"
	LoadPlanStatusLoaded          = "loaded"
	LoadPlanStatusInTransit       = "in_transit"
	LoadPlanStatusCompleted       = "completed"
	LoadPlanStatusCancelled       = "cancelled"
)

// 装载计划路线优化状态
const (
	OptimizationStatusPending   = "pending"
	OptimizationStatusOptimized = "optimized"
	OptimizationStatusFailed    = "failed"
)

// 路线编排状态常量
const (
	CompositionStatusDraft           = "draft"
	CompositionStatusPlanned         = "planned"
	CompositionStatusAwaitingLoading = "awaiting_loading"
	CompositionStatusLoading         = "loading"
	CompositionStatusInTransit       = "in_transit"
	CompositionStatusCompleted       = "completed"
	CompositionStatusCancelled       = "cancelled"
)

// 路线编排类型
const (
	CompositionTypeCustom = "custom"
	CompositionTypeManual = "manual"
)

// 区域状态常量
const (
	RouteAreaStatusActive   = "active"
	RouteAreaStatusDisabled = "disabled"
)

// 车辆路线配置（与路线服务 profile 一致）
const (
	VehicleProfileCar = "driving-car"
	VehicleProfileHGV = "driving-hgv"
)

// 后台任务状态常量
const (
	TaskStatusPending = "pending"
	TaskStatusRunning = "running"
	TaskStatusSuccess = "success"
	TaskStatusFailure = "failure"
)

// 通知级别常量
const (
	NotificationLevelInfo    = "info"
	NotificationLevelSuccess = "success"
	NotificationLevelWarning = "warning"
	NotificationLevelDanger  = "danger"
)

// 用户角色
const (
	UserRoleAdmin   = "admin"
	UserRolePlanner = "planner"
)

// 异步任务类型
const (
	TaskPlanningRun        = "planning:run"
	TaskLoadPlanReoptimize = "loadplan:reoptimize"
	TaskDeliveryGeocode    = "delivery:geocode"
)

// 队列名称
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)
