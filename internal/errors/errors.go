// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType 定义错误类型
type ErrorType string

const (
	// 通用错误类型
	ErrorTypeValidation ErrorType = "validation_error"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeError      ErrorType = "processing_error"
	ErrorTypeTimeout    ErrorType = "timeout"

	// 故事与插图生成错误类型
	ErrorTypeMalformedResponse     ErrorType = "malformed_response"
	ErrorTypeEmptySection          ErrorType = "empty_section"
	ErrorTypeGenerationFailed      ErrorType = "generation_failed"
	ErrorTypeImageGenerationFailed ErrorType = "image_generation_failed"
)

// AppError 应用程序错误结构
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string // 用户友好的错误代码
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 实现错误链接
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError 创建新的 AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError 创建验证错误
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewNotFoundError 创建未找到错误
func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

// NewProcessingError 创建处理错误
func NewProcessingError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeError, message, originalError)
}

// NewMalformedResponseError 模型响应无法恢复为有效JSON
func NewMalformedResponseError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeMalformedResponse, message, originalError)
}

// NewEmptySectionError 响应中没有任何可提取的故事文本
func NewEmptySectionError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeEmptySection, message, originalError)
}

// NewGenerationFailedError 两次生成尝试均失败
func NewGenerationFailedError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeGenerationFailed, message, originalError)
}

// NewImageGenerationFailedError 所有插图候选模型均失败
func NewImageGenerationFailedError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeImageGenerationFailed, message, originalError)
}

// isType 检查错误链中是否包含指定类型的 AppError
func isType(err error, errType ErrorType) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == errType
	}
	return false
}

// IsValidationError 检查是否为验证错误
func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsNotFoundError 检查是否为未找到错误
func IsNotFoundError(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsMalformedResponseError 检查是否为响应解析错误
func IsMalformedResponseError(err error) bool {
	return isType(err, ErrorTypeMalformedResponse)
}

// IsEmptySectionError 检查是否为空白章节错误
func IsEmptySectionError(err error) bool {
	return isType(err, ErrorTypeEmptySection)
}

// IsGenerationFailedError 检查是否为故事生成失败错误
func IsGenerationFailedError(err error) bool {
	return isType(err, ErrorTypeGenerationFailed)
}

// IsImageGenerationFailedError 检查是否为插图生成失败错误
func IsImageGenerationFailedError(err error) bool {
	return isType(err, ErrorTypeImageGenerationFailed)
}

// generateErrorCode 根据错误类型生成错误代码
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeError:
		return "PROCESSING_ERROR"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	case ErrorTypeMalformedResponse:
		return "MALFORMED_RESPONSE"
	case ErrorTypeEmptySection:
		return "EMPTY_SECTION"
	case ErrorTypeGenerationFailed:
		return "GENERATION_FAILED"
	case ErrorTypeImageGenerationFailed:
		return "IMAGE_GENERATION_FAILED"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError 包装现有错误
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		// 如果已经是 AppError，只更新消息
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
		}
	}

	// 否则创建新的 AppError
	return NewAppError(errType, message, err)
}
