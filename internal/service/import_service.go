package service

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/tms-next/internal/config"
	"github.com/tms-next/internal/constants"
	"github.com/tms-next/internal/geocoder"
	"github.com/tms-next/internal/logger"
	"github.com/tms-next/internal/models"
	"github.com/tms-next/internal/queue"
	"github.com/tms-next/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	defaultImportMaxRows = 5000
	defaultImportState   = "RJ"
)

// 表头别名，比较前统一经 geocoder.Normalize 处理
var importColumns = map[string][]string{
	"order_number":  {"numerosaida", "order_number", "pedido"},
	"customer_name": {"nomecliente", "customer_name", "cliente"},
	"phone":         {"telefoneentrega", "phone", "telefone"},
	"street":        {"enderecoentrega", "street", "endereco"},
	"number":        {"numeroentrega", "number", "numero"},
	"neighborhood":  {"bairroentrega", "neighborhood", "bairro"},
	"city":          {"cidadeentrega", "city", "cidade"},
	"state":         {"estadoentrega", "state", "uf"},
	"postal_code":   {"cepentrega", "postal_code", "cep"},
	"observation":   {"observacao", "observation"},
	"reference":     {"pontoreferenciaentrega", "reference", "referencia"},
	"volume_m3":     {"cubagemm3", "volume_m3", "cubagem"},
	"weight_kg":     {"peso", "weight_kg"},
	"value":         {"valtotnota", "value", "valor"},
}

var thousandsGrouped = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+$`)

// 变更这些字段需要重新地理编码
var addressColumns = []string{"street", "number", "neighborhood", "city", "state", "postal_code"}

// ImportResult 导入结果
type ImportResult struct {
	TotalRows int      `json:"total_rows"`
	Created   int      `json:"created"`
	Updated   int      `json:"updated"`
	Skipped   int      `json:"skipped"`
	Geocoding int      `json:"geocoding"`
	Errors    []string `json:"errors"`
}

// ImportService 配送单表格导入
type ImportService struct {
	deliveryRepo repository.DeliveryRepository
	notifier     *Notifier
	queueClient  *queue.Client
	maxRows      int
}

// NewImportService 创建导入服务
func NewImportService(deliveryRepo repository.DeliveryRepository, notifier *Notifier, queueClient *queue.Client, cfg config.ImportConfig) *ImportService {
	maxRows := cfg.MaxRows
	if maxRows <= 0 {
		maxRows = defaultImportMaxRows
	}
	return &ImportService{
		deliveryRepo: deliveryRepo,
		notifier:     notifier,
		queueClient:  queueClient,
		maxRows:      maxRows,
	}
}

type importRow struct {
	line     int
	delivery models.Delivery
}

// Import 读取首个工作表，按订单号新建或更新待规划配送单
func (s *ImportService) Import(ctx context.Context, reader io.Reader, userID uint) (*ImportResult, error) {
	file, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportFileInvalid, err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no sheets", ErrImportFileInvalid)
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportFileInvalid, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: header and at least one data row required", ErrImportFileInvalid)
	}
	if len(rows)-1 > s.maxRows {
		return nil, fmt.Errorf("%w: %d > %d", ErrImportTooManyRows, len(rows)-1, s.maxRows)
	}
	header := mapImportHeader(rows[0])
	if _, ok := header["order_number"]; !ok {
		return nil, fmt.Errorf("%w: missing order number column", ErrImportFileInvalid)
	}

	result := &ImportResult{TotalRows: len(rows) - 1, Errors: []string{}}
	parsed := make([]importRow, 0, len(rows)-1)
	seen := make(map[string]bool, len(rows))
	for i, row := range rows[1:] {
		line := i + 2
		delivery, err := parseImportRow(header, row)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("linha %d: %v", line, err))
			continue
		}
		if delivery == nil {
			result.Skipped++
			continue
		}
		if seen[delivery.OrderNumber] {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("linha %d: pedido %s duplicado", line, delivery.OrderNumber))
			continue
		}
		seen[delivery.OrderNumber] = true
		delivery.CreatedBy = userIDPtr(userID)
		parsed = append(parsed, importRow{line: line, delivery: *delivery})
	}

	var geocodeIDs []uint
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.deliveryRepo.WithTx(tx)
		numbers := make([]string, 0, len(parsed))
		for _, row := range parsed {
			numbers = append(numbers, row.delivery.OrderNumber)
		}
		existing, err := repo.ListByOrderNumbers(numbers)
		if err != nil {
			return err
		}
		byNumber := make(map[string]*models.Delivery, len(existing))
		for i := range existing {
			byNumber[existing[i].OrderNumber] = &existing[i]
		}

		toCreate := make([]models.Delivery, 0, len(parsed))
		for _, row := range parsed {
			current, ok := byNumber[row.delivery.OrderNumber]
			if !ok {
				toCreate = append(toCreate, row.delivery)
				continue
			}
			if current.Status != constants.DeliveryStatusPending {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("linha %d: pedido %s já está em roteirização", row.line, current.OrderNumber))
				continue
			}
			columns, addressChanged := importUpdateColumns(current, &row.delivery)
			if err := repo.UpdateColumns(current.ID, columns); err != nil {
				return err
			}
			result.Updated++
			if addressChanged || !current.HasCoordinates() {
				geocodeIDs = append(geocodeIDs, current.ID)
			}
		}
		if err := repo.CreateBatch(toCreate); err != nil {
			return err
		}
		created, err := repo.ListByOrderNumbers(orderNumbers(toCreate))
		if err != nil {
			return err
		}
		result.Created = len(created)
		for _, delivery := range created {
			geocodeIDs = append(geocodeIDs, delivery.ID)
		}
		return nil
	})
	if err != nil {
		s.notifier.Notify(ctx, userID, "Importação de entregas falhou", err.Error(), constants.NotificationLevelDanger, "")
		return nil, err
	}

	result.Geocoding = s.enqueueGeocode(ctx, geocodeIDs)
	logger.FromContext(ctx).Infow("delivery_import_finished",
		"user_id", userID,
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
	)
	s.notifier.Notify(ctx, userID, "Importação de entregas concluída",
		fmt.Sprintf("%d novas entregas criadas e %d atualizadas.", result.Created, result.Updated),
		constants.NotificationLevelSuccess, "")
	return result, nil
}

func (s *ImportService) enqueueGeocode(ctx context.Context, ids []uint) int {
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return 0
	}
	enqueued := 0
	for _, id := range ids {
		if err := s.queueClient.EnqueueDeliveryGeocode(id); err != nil {
			logger.FromContext(ctx).Warnw("delivery_geocode_enqueue_failed", "delivery_id", id, "error", err)
			continue
		}
		enqueued++
	}
	return enqueued
}

func mapImportHeader(header []string) map[string]int {
	aliases := make(map[string]string)
	for field, names := range importColumns {
		for _, name := range names {
			aliases[name] = field
		}
	}
	result := make(map[string]int, len(header))
	for i, cell := range header {
		key := strings.ReplaceAll(geocoder.Normalize(cell), " ", "")
		if field, ok := aliases[key]; ok {
			if _, exists := result[field]; !exists {
				result[field] = i
			}
		}
	}
	return result
}

// parseImportRow 空订单号的行返回 nil
func parseImportRow(header map[string]int, row []string) (*models.Delivery, error) {
	cell := func(field string) string {
		idx, ok := header[field]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
	orderNumber := cell("order_number")
	if orderNumber == "" {
		return nil, nil
	}
	weight, err := parseLocaleDecimal(cell("weight_kg"))
	if err != nil {
		return nil, fmt.Errorf("peso: %w", err)
	}
	volume, err := parseLocaleDecimal(cell("volume_m3"))
	if err != nil {
		return nil, fmt.Errorf("cubagem: %w", err)
	}
	value, err := parseLocaleDecimal(cell("value"))
	if err != nil {
		return nil, fmt.Errorf("valor: %w", err)
	}
	if weight.IsNegative() || volume.IsNegative() || value.IsNegative() {
		return nil, fmt.Errorf("valores negativos não são permitidos")
	}

	city := cell("city")
	if idx := strings.Index(city, "-"); idx >= 0 {
		city = strings.TrimSpace(city[:idx])
	}
	state := strings.ToUpper(cell("state"))
	if state == "" {
		state = defaultImportState
	}
	customer := cell("customer_name")
	if customer == "" {
		customer = orderNumber
	}
	return &models.Delivery{
		OrderNumber:  orderNumber,
		CustomerName: customer,
		Phone:        cell("phone"),
		Street:       cell("street"),
		Number:       cell("number"),
		Neighborhood: cell("neighborhood"),
		City:         city,
		State:        state,
		PostalCode:   geocoder.DigitsOnly(cell("postal_code")),
		Reference:    cell("reference"),
		Observation:  cell("observation"),
		WeightKG:     models.NewMeasure(weight),
		VolumeM3:     models.NewMeasure(volume),
		Value:        models.NewMoneyFromDecimal(value),
		Status:       constants.DeliveryStatusPending,
	}, nil
}

// parseLocaleDecimal 兼容 "1.234,56"、"430,00" 与 "12.5"
func parseLocaleDecimal(raw string) (decimal.Decimal, error) {
	value := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if value == "" {
		return decimal.Zero, nil
	}
	switch {
	case strings.Contains(value, ","):
		value = strings.ReplaceAll(value, ".", "")
		value = strings.ReplaceAll(value, ",", ".")
	case thousandsGrouped.MatchString(value):
		value = strings.ReplaceAll(value, ".", "")
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q não é um decimal válido", raw)
	}
	return parsed, nil
}

func importUpdateColumns(current, incoming *models.Delivery) (map[string]interface{}, bool) {
	columns := map[string]interface{}{
		"customer_name": incoming.CustomerName,
		"phone":         incoming.Phone,
		"street":        incoming.Street,
		"number":        incoming.Number,
		"neighborhood":  incoming.Neighborhood,
		"city":          incoming.City,
		"state":         incoming.State,
		"postal_code":   incoming.PostalCode,
		"reference":     incoming.Reference,
		"observation":   incoming.Observation,
		"weight_kg":     incoming.WeightKG,
		"volume_m3":     incoming.VolumeM3,
		"value":         incoming.Value,
	}
	before := map[string]string{
		"street":       current.Street,
		"number":       current.Number,
		"neighborhood": current.Neighborhood,
		"city":         current.City,
		"state":        current.State,
		"postal_code":  current.PostalCode,
	}
	changed := false
	for _, column := range addressColumns {
		if geocoder.Normalize(before[column]) != geocoder.Normalize(columns[column].(string)) {
			changed = true
			break
		}
	}
	if changed {
		columns["latitude"] = nil
		columns["longitude"] = nil
		columns["geocode_failed"] = false
	}
	return columns, changed
}

func orderNumbers(deliveries []models.Delivery) []string {
	numbers := make([]string, 0, len(deliveries))
	for _, delivery := range deliveries {
		numbers = append(numbers, delivery.OrderNumber)
	}
	return numbers
}
