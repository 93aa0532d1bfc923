package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope 接口统一响应，HTTP 状态恒为 200，结果以 status_code 区分
type Envelope struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
	RequestID  string      `json:"request_id,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination 分页信息
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// NewPagination 按总数计算总页数
func NewPagination(page, pageSize int, total int64) Pagination {
	pagination := Pagination{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		pagination.TotalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return pagination
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	write(c, Envelope{StatusCode: CodeOK, Msg: "success", Data: data})
}

// SuccessWithPage 分页成功响应（日结记录、VIP 收款列表）
func SuccessWithPage(c *gin.Context, data interface{}, pagination Pagination) {
	write(c, Envelope{StatusCode: CodeOK, Msg: "success", Data: data, Pagination: &pagination})
}

// Error 错误响应
func Error(c *gin.Context, statusCode int, msg string) {
	write(c, Envelope{StatusCode: statusCode, Msg: msg})
}

// ErrorWithData 错误响应，data 携带定位信息（如缺失引用的团队、日期与销售）
func ErrorWithData(c *gin.Context, statusCode int, msg string, data interface{}) {
	write(c, Envelope{StatusCode: statusCode, Msg: msg, Data: data})
}

// Unauthorized 未登录或 Token 失效
func Unauthorized(c *gin.Context, msg string) {
	Error(c, CodeUnauthorized, msg)
}

// Forbidden 无权限
func Forbidden(c *gin.Context, msg string) {
	Error(c, CodeForbidden, msg)
}

func write(c *gin.Context, envelope Envelope) {
	if value, ok := c.Get("request_id"); ok {
		if id, ok := value.(string); ok {
			envelope.RequestID = id
		}
	}
	c.JSON(http.StatusOK, envelope)
}
