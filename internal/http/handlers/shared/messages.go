package shared

import "fmt"

// messages 错误提示文案，按消息 key 索引
var messages = map[string]string{
	"error.bad_request":              "Requisição inválida",
	"error.unauthorized":             "Não autenticado",
	"error.forbidden":                "Acesso negado",
	"error.not_found":                "Registro não encontrado",
	"error.internal":                 "Erro interno",
	"error.jwt_secret_missing":       "Chave JWT não configurada",
	"error.auth_header_missing":      "Cabeçalho Authorization ausente",
	"error.auth_header_invalid":      "Cabeçalho Authorization inválido",
	"error.token_invalid":            "Token inválido ou expirado",
	"error.user_disabled":            "Usuário desativado",
	"error.user_id_invalid":          "Usuário inválido",
	"error.user_id_type_invalid":     "Tipo de usuário inválido no contexto",
	"error.login_invalid":            "Usuário ou senha incorretos",
	"error.login_failed":             "Falha no login",
	"error.rate_limited":             "Muitas tentativas, tente novamente em %d segundos",
	"error.rate_limit_unavailable":   "Limite de requisições indisponível",
	"error.queue_unavailable":        "Fila de tarefas indisponível",
	"error.planning_range_invalid":   "Intervalo de datas inválido",
	"error.planning_enqueue_failed":  "Falha ao iniciar a roteirização",
	"error.task_not_found":           "Tarefa não encontrada",
	"error.task_fetch_failed":        "Falha ao consultar a tarefa",
	"error.notification_not_found":   "Notificação não encontrada",
	"error.notification_failed":      "Falha ao consultar notificações",
	"error.composition_not_found":    "Composição não encontrada",
	"error.composition_terminal":     "Composição já finalizada ou cancelada",
	"error.composition_transition":   "Transição de status não permitida",
	"error.composition_not_editable": "Composição não pode ser editada",
	"error.composition_failed":       "Falha ao processar a composição",
	"error.load_plan_not_found":      "Carga não encontrada",
	"error.load_plan_mismatch":       "Carga não pertence à composição",
	"error.load_plan_failed":         "Falha ao processar a carga",
	"error.load_plan_optimize":       "Falha ao otimizar a rota",
	"error.vehicle_not_found":        "Veículo não encontrado",
	"error.delivery_not_found":       "Entrega não encontrada",
	"error.delivery_planned":         "Entrega já está em roteirização",
	"error.delivery_not_linked":      "Entrega não pertence à composição",
	"error.delivery_cancel_denied":   "Entrega não pode ser cancelada no status atual",
	"error.delivery_no_coordinates":  "Entrega sem coordenadas",
	"error.delivery_failed":          "Falha ao processar a entrega",
	"error.geocode_failed":           "Endereço não localizado",
	"error.geocode_disabled":         "Geocodificação desativada",
	"error.import_file_missing":      "Arquivo não enviado",
	"error.import_file_too_large":    "Arquivo excede o tamanho máximo",
	"error.import_file_invalid":      "Planilha inválida",
	"error.import_too_many_rows":     "Planilha com linhas demais",
	"error.import_failed":            "Falha ao importar a planilha",
	"error.export_failed":            "Falha ao exportar a carga",
}

// Message 按 key 取文案，未登记的 key 原样返回
func Message(key string) string {
	if msg, ok := messages[key]; ok {
		return msg
	}
	return key
}

// Messagef 按 key 取文案并格式化
func Messagef(key string, args ...interface{}) string {
	return fmt.Sprintf(Message(key), args...)
}
