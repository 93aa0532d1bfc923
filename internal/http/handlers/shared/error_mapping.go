package shared

import (
	"errors"

	"github.com/milhas-next/internal/http/response"
	"github.com/milhas-next/internal/i18n"
	"github.com/milhas-next/internal/service"

	"github.com/gin-gonic/gin"
)

// MappedError 业务错误到接口错误响应的映射
type MappedError struct {
	Target error
	Code   int
	Key    string
}

// ServiceErrorRules 通用业务错误映射
var ServiceErrorRules = []MappedError{
	{Target: service.ErrInvalidCredentials, Code: response.CodeUnauthorized, Key: "error.login_invalid"},
	{Target: service.ErrPayoutAlreadyPaid, Code: response.CodeConflict, Key: "error.payout_already_paid"},
	{Target: service.ErrPayoutRunInProgress, Code: response.CodeConflict, Key: "error.payout_run_in_progress"},
	{Target: service.ErrConservationViolated, Code: response.CodeInternal, Key: "error.conservation_violated"},
	{Target: service.ErrQueueUnavailable, Code: response.CodeUnavailable, Key: "error.queue_unavailable"},
}

// RespondServiceError 按业务错误类型返回响应，未命中规则时使用 fallbackKey
func RespondServiceError(c *gin.Context, err error, fallbackKey string, rules ...MappedError) {
	if err == nil {
		return
	}
	locale := i18n.ResolveLocale(c)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		msg := i18n.Sprintf(locale, "error.validation_field", validationErr.Field, validationErr.Message)
		RespondErrorWithMsg(c, response.CodeBadRequest, msg, nil)
		return
	}
	var notFoundErr *service.NotFoundError
	if errors.As(err, &notFoundErr) {
		msg := i18n.Sprintf(locale, "error.reference_not_found", notFoundErr.Error())
		response.ErrorWithData(c, response.CodeNotFound, msg, gin.H{
			"entity":  notFoundErr.Entity,
			"id":      notFoundErr.ID,
			"team_id": notFoundErr.TeamID,
			"date":    notFoundErr.Date,
			"sale_id": notFoundErr.SaleID,
		})
		return
	}

	for _, rule := range append(rules, ServiceErrorRules...) {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Key, nil)
			return
		}
	}
	if errors.Is(err, service.ErrValidation) {
		RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if errors.Is(err, service.ErrNotFound) {
		RespondError(c, response.CodeNotFound, "error.not_found", nil)
		return
	}
	RespondError(c, response.CodeInternal, fallbackKey, err)
}
