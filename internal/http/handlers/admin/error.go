package admin

import (
	"errors"

	"github.com/tms-next/internal/geocoder"
	handlershared "github.com/tms-next/internal/http/handlers/shared"
	"github.com/tms-next/internal/http/response"
	"github.com/tms-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

// serviceErrorMapping 业务错误到响应码与文案的映射
type serviceErrorMapping struct {
	target error
	code   int
	key    string
}

var serviceErrorMappings = []serviceErrorMapping{
	{service.ErrCompositionNotFound, response.CodeNotFound, "error.composition_not_found"},
	{service.ErrCompositionTerminal, response.CodeConflict, "error.composition_terminal"},
	{service.ErrCompositionTransitionInvalid, response.CodeBadRequest, "error.composition_transition"},
	{service.ErrCompositionNotEditable, response.CodeConflict, "error.composition_not_editable"},
	{service.ErrLoadPlanNotFound, response.CodeNotFound, "error.load_plan_not_found"},
	{service.ErrLoadPlanCompositionMismatch, response.CodeBadRequest, "error.load_plan_mismatch"},
	{service.ErrVehicleNotFound, response.CodeNotFound, "error.vehicle_not_found"},
	{service.ErrDeliveryNotFound, response.CodeNotFound, "error.delivery_not_found"},
	{service.ErrDeliveryAlreadyPlanned, response.CodeConflict, "error.delivery_planned"},
	{service.ErrDeliveryNotInComposition, response.CodeBadRequest, "error.delivery_not_linked"},
	{service.ErrDeliveryCancelNotAllowed, response.CodeConflict, "error.delivery_cancel_denied"},
	{service.ErrDeliveryNoCoordinates, response.CodeBadRequest, "error.delivery_no_coordinates"},
	{service.ErrGeocodeFailed, response.CodeBadRequest, "error.geocode_failed"},
	{geocoder.ErrDisabled, response.CodeUnavailable, "error.geocode_disabled"},
	{service.ErrPlanningRangeInvalid, response.CodeBadRequest, "error.planning_range_invalid"},
	{service.ErrQueueUnavailable, response.CodeUnavailable, "error.queue_unavailable"},
	{service.ErrTaskNotFound, response.CodeNotFound, "error.task_not_found"},
	{service.ErrNotificationNotFound, response.CodeNotFound, "error.notification_not_found"},
	{service.ErrImportFileInvalid, response.CodeBadRequest, "error.import_file_invalid"},
	{service.ErrImportTooManyRows, response.CodeBadRequest, "error.import_too_many_rows"},
}

// resolveServiceError 业务错误转为 AppError，只有服务端错误保留原始错误用于记录
func resolveServiceError(err error, fallbackKey string) *response.AppError {
	for _, mapping := range serviceErrorMappings {
		if !errors.Is(err, mapping.target) {
			continue
		}
		appErr := response.NewAppError(mapping.code, mapping.key, handlershared.Message(mapping.key), nil)
		if appErr.ServerSide() {
			appErr.Err = err
		}
		return appErr
	}
	return response.NewAppError(response.CodeInternal, fallbackKey, handlershared.Message(fallbackKey), err)
}

// respondServiceError 按业务错误返回响应，未识别的错误按 fallbackKey 记为内部错误
func respondServiceError(c *gin.Context, err error, fallbackKey string) {
	handlershared.RespondAppError(c, resolveServiceError(err, fallbackKey))
}
