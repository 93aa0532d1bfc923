package service

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func inputValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// 错误字段名使用 json 标签，与接口参数保持一致
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// validateStruct 按 validate 标签校验输入，失败时转换为 ValidationError
func validateStruct(input interface{}) error {
	err := inputValidator().Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		if first.Param() != "" {
			return newValidationError(first.Field(), "failed %s=%s", first.Tag(), first.Param())
		}
		return newValidationError(first.Field(), "failed %s", first.Tag())
	}
	return newValidationError("", "%v", err)
}
