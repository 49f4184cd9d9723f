// internal/api/response_helpers.go
package api

import (
	"net/http"

	apperrors "github.com/Corphon/KidStoryMCP/internal/errors"
	"github.com/gin-gonic/gin"
)

// APIResponse 统一成功响应信封
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// APIErrorBody 统一错误响应信封
type APIErrorBody struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseSuccess 返回成功响应
func ResponseSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// ResponseCreated 返回创建成功响应
func ResponseCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Data:    data,
	})
}

// ResponseError 按错误类型映射HTTP状态码
//
// 验证错误与空白章节是调用方问题返回400；未找到返回404；
// 生成类失败是上游提供者问题返回502；其余按500处理。
func ResponseError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"
	message := err.Error()

	switch {
	case apperrors.IsValidationError(err), apperrors.IsEmptySectionError(err):
		status = http.StatusBadRequest
	case apperrors.IsNotFoundError(err):
		status = http.StatusNotFound
	case apperrors.IsGenerationFailedError(err),
		apperrors.IsImageGenerationFailedError(err),
		apperrors.IsMalformedResponseError(err):
		status = http.StatusBadGateway
	}

	if appErr, ok := err.(*apperrors.AppError); ok {
		code = appErr.Code
		message = appErr.Message
	}

	c.JSON(status, APIErrorBody{
		Success: false,
		Code:    code,
		Message: message,
	})
}

// ResponseValidationError 直接返回400验证错误
func ResponseValidationError(c *gin.Context, message string) {
	ResponseError(c, apperrors.NewValidationError(message, nil))
}
