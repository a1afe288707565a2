package service

import "errors"

var (
	// ErrNotFound 通用资源不存在
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials 账号或密码错误
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserDisabled 账号已停用
	ErrUserDisabled = errors.New("user disabled")
	// ErrInvalidToken 令牌无效
	ErrInvalidToken = errors.New("invalid token")

	// ErrCompositionNotFound 编排不存在
	ErrCompositionNotFound = errors.New("composition not found")
	// ErrCompositionTerminal 编排已结束，不允许变更
	ErrCompositionTerminal = errors.New("composition is in a terminal status")
	// ErrCompositionTransitionInvalid 状态回退或未知状态
	ErrCompositionTransitionInvalid = errors.New("composition status transition invalid")
	// ErrCompositionNotEditable 编排当前状态不允许编辑装载
	ErrCompositionNotEditable = errors.New("composition not editable")

	// ErrLoadPlanNotFound 装载计划不存在
	ErrLoadPlanNotFound = errors.New("load plan not found")
	// ErrLoadPlanCompositionMismatch 装载计划不属于该编排
	ErrLoadPlanCompositionMismatch = errors.New("load plan does not belong to composition")
	// ErrVehicleNotFound 车辆不存在或已停用
	ErrVehicleNotFound = errors.New("vehicle not found")

	// ErrDeliveryNotFound 配送单不存在
	ErrDeliveryNotFound = errors.New("delivery not found")
	// ErrDeliveryAlreadyPlanned 配送单已被其他编排占用
	ErrDeliveryAlreadyPlanned = errors.New("delivery already planned")
	// ErrDeliveryNotInComposition 配送单不在该编排内
	ErrDeliveryNotInComposition = errors.New("delivery not in composition")
	// ErrDeliveryCancelNotAllowed 配送单当前状态不允许取消
	ErrDeliveryCancelNotAllowed = errors.New("delivery cancel not allowed")
	// ErrDeliveryNoCoordinates 配送单缺少坐标
	ErrDeliveryNoCoordinates = errors.New("delivery has no coordinates")
	// ErrGeocodeFailed 地理编码未得到坐标
	ErrGeocodeFailed = errors.New("geocode failed")

	// ErrNoValidAreas 没有可用区域
	ErrNoValidAreas = errors.New("no valid route areas")
	// ErrPlanningRangeInvalid 规划日期范围非法
	ErrPlanningRangeInvalid = errors.New("planning date range invalid")
	// ErrQueueUnavailable 任务队列未启用
	ErrQueueUnavailable = errors.New("task queue unavailable")
	// ErrTaskNotFound 任务不存在
	ErrTaskNotFound = errors.New("task not found")
	// ErrNotificationNotFound 通知不存在
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrImportFileInvalid 导入文件无法解析
	ErrImportFileInvalid = errors.New("import file invalid")
	// ErrImportTooManyRows 导入行数超过上限
	ErrImportTooManyRows = errors.New("import has too many rows")
)
