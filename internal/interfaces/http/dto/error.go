// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"github.com/gin-gonic/gin"

	"bookagent-api/pkg/errors"
)

// FromError 将应用错误映射为 HTTP 错误响应
// 非 AppError 的错误统一按 500 处理，不泄露内部细节
func FromError(c *gin.Context, err error) {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		InternalError(c, "internal server error")
		return
	}

	var detail *ErrorDetail
	if appErr.Detail != "" {
		detail = &ErrorDetail{
			ErrorCode: string(appErr.Code),
			Details:   appErr.Detail,
		}
	}

	ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, detail)
}
