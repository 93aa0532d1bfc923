package admin

import (
	"strings"
	"time"

	"github.com/milhas-next/internal/constants"
	handlershared "github.com/milhas-next/internal/http/handlers/shared"
	"github.com/milhas-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, "admin_id", "error.admin_id_invalid", "error.admin_id_type_invalid")
}

func parseID(c *gin.Context) (uint, bool) {
	return handlershared.ParseUintParam(c, "id")
}

func parseTeamID(c *gin.Context) (uint, bool) {
	return handlershared.ParseUintQuery(c, "team_id", true)
}

// parseInstant 解析 RFC3339 时间或业务时区下的日期（当日零点），为空时返回 now
func parseInstant(c *gin.Context, raw string, location *time.Location, now time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now, true
	}
	if at, err := time.Parse(time.RFC3339, raw); err == nil {
		return at, true
	}
	if at, err := time.ParseInLocation(constants.DateLayout, raw, location); err == nil {
		return at, true
	}
	respondError(c, response.CodeBadRequest, "error.bad_request", nil)
	return time.Time{}, false
}
