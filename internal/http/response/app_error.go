package response

// AppError 接口层错误：业务码、已本地化的提示与原始错误
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ServerSide 5xx 业务码，需要按错误级别记录
func (e *AppError) ServerSide() bool {
	return e.Code >= CodeInternal
}

// WrapError 包装错误
func WrapError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}
