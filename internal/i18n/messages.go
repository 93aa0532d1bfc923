package i18n

var messages = map[string]map[string]string{
	LocalePtBR: {
		"error.bad_request":             "Requisição inválida",
		"error.unauthorized":            "Não autenticado",
		"error.forbidden":               "Sem permissão para esta operação",
		"error.internal":                "Erro interno, tente novamente",
		"error.too_many_requests":       "Muitas requisições, aguarde e tente novamente",
		"error.jwt_secret_missing":      "Chave JWT não configurada",
		"error.auth_header_missing":     "Cabeçalho Authorization ausente",
		"error.auth_header_invalid":     "Cabeçalho Authorization inválido",
		"error.token_invalid":           "Token inválido ou expirado",
		"error.token_revoked":           "Token revogado, faça login novamente",
		"error.admin_id_invalid":        "Identificador de operador inválido",
		"error.admin_id_type_invalid":   "Tipo de identificador de operador inválido",
		"error.login_invalid":           "Usuário ou senha incorretos",
		"error.validation_field":        "Campo %s inválido: %s",
		"error.not_found":               "Registro não encontrado",
		"error.reference_not_found":     "Referência ausente: %s",
		"error.payout_already_paid":     "Repasse já marcado como pago",
		"error.payout_run_in_progress":  "Recálculo em andamento para este time e dia",
		"error.payout_recompute_failed": "Falha ao recalcular repasses",
		"error.payout_fetch_failed":     "Falha ao consultar repasses",
		"error.payout_mark_paid_failed": "Falha ao marcar repasse como pago",
		"error.sale_fetch_failed":       "Falha ao calcular comissão da venda",
		"error.plan_save_failed":        "Falha ao salvar plano de divisão",
		"error.plan_fetch_failed":       "Falha ao consultar planos de divisão",
		"error.setting_fetch_failed":    "Falha ao consultar configuração",
		"error.setting_update_failed":   "Falha ao atualizar configuração",
		"error.vip_setting_failed":      "Falha ao processar configuração de rateio VIP",
		"error.vip_payment_failed":      "Falha ao registrar pagamento VIP",
		"error.vip_distribution_failed": "Falha ao calcular rateio VIP",
		"error.conservation_violated":   "Distribuição não confere com o total",
		"error.queue_unavailable":       "Fila assíncrona indisponível",
		"error.enqueue_failed":          "Falha ao enfileirar tarefa",
		"error.rate_limited":           "Muitas tentativas, aguarde %d segundos",
		"error.rate_limit_unavailable":  "Controle de frequência indisponível",
	},
	LocaleEnUS: {
		"error.bad_request":             "Bad request",
		"error.unauthorized":            "Unauthorized",
		"error.forbidden":               "Permission denied",
		"error.internal":                "Internal error, please retry",
		"error.too_many_requests":       "Too many requests, please retry later",
		"error.jwt_secret_missing":      "JWT secret is not configured",
		"error.auth_header_missing":     "Missing Authorization header",
		"error.auth_header_invalid":     "Invalid Authorization header",
		"error.token_invalid":           "Invalid or expired token",
		"error.token_revoked":           "Token revoked, please log in again",
		"error.admin_id_invalid":        "Invalid operator id",
		"error.admin_id_type_invalid":   "Invalid operator id type",
		"error.login_invalid":           "Invalid username or password",
		"error.validation_field":        "Invalid field %s: %s",
		"error.not_found":               "Record not found",
		"error.reference_not_found":     "Missing reference: %s",
		"error.payout_already_paid":     "Payout already marked as paid",
		"error.payout_run_in_progress":  "A recompute is already running for this team and day",
		"error.payout_recompute_failed": "Failed to recompute payouts",
		"error.payout_fetch_failed":     "Failed to fetch payouts",
		"error.payout_mark_paid_failed": "Failed to mark payout as paid",
		"error.sale_fetch_failed":       "Failed to compute sale commission",
		"error.plan_save_failed":        "Failed to save profit share plan",
		"error.plan_fetch_failed":       "Failed to fetch profit share plans",
		"error.setting_fetch_failed":    "Failed to fetch setting",
		"error.setting_update_failed":   "Failed to update setting",
		"error.vip_setting_failed":      "Failed to process VIP split setting",
		"error.vip_payment_failed":      "Failed to record VIP payment",
		"error.vip_distribution_failed": "Failed to compute VIP distribution",
		"error.conservation_violated":   "Distribution does not match the total",
		"error.queue_unavailable":       "Async queue unavailable",
		"error.enqueue_failed":          "Failed to enqueue task",
		"error.rate_limited":           "Too many attempts, retry in %d seconds",
		"error.rate_limit_unavailable":  "Rate limiter unavailable",
	},
	LocaleZhCN: {
		"error.bad_request":             "请求参数错误",
		"error.unauthorized":            "未登录",
		"error.forbidden":               "无权限执行该操作",
		"error.internal":                "服务器内部错误，请重试",
		"error.too_many_requests":       "请求过于频繁，请稍后再试",
		"error.jwt_secret_missing":      "未配置 JWT 密钥",
		"error.auth_header_missing":     "缺少 Authorization 请求头",
		"error.auth_header_invalid":     "Authorization 请求头格式错误",
		"error.token_invalid":           "Token 无效或已过期",
		"error.token_revoked":           "Token 已失效，请重新登录",
		"error.admin_id_invalid":        "操作员 ID 无效",
		"error.admin_id_type_invalid":   "操作员 ID 类型错误",
		"error.login_invalid":           "用户名或密码错误",
		"error.validation_field":        "字段 %s 不合法：%s",
		"error.not_found":               "记录不存在",
		"error.reference_not_found":     "引用记录缺失：%s",
		"error.payout_already_paid":     "该日结记录已标记付款",
		"error.payout_run_in_progress":  "该团队当日的重算正在进行",
		"error.payout_recompute_failed": "日结重算失败",
		"error.payout_fetch_failed":     "获取日结记录失败",
		"error.payout_mark_paid_failed": "标记付款失败",
		"error.sale_fetch_failed":       "计算销售佣金失败",
		"error.plan_save_failed":        "保存分润方案失败",
		"error.plan_fetch_failed":       "获取分润方案失败",
		"error.setting_fetch_failed":    "获取配置失败",
		"error.setting_update_failed":   "更新配置失败",
		"error.vip_setting_failed":      "处理 VIP 分配配置失败",
		"error.vip_payment_failed":      "记录 VIP 收款失败",
		"error.vip_distribution_failed": "计算 VIP 分配失败",
		"error.conservation_violated":   "分配结果与总额不一致",
		"error.queue_unavailable":       "异步队列未启用",
		"error.enqueue_failed":          "任务入队失败",
		"error.rate_limited":           "尝试次数过多，请 %d 秒后重试",
		"error.rate_limit_unavailable":  "频率限制服务不可用",
	},
}
