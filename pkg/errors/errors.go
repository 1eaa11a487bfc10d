// Package errors 提供统一的错误处理框架
package errors

import (
	"errors"
	"fmt"
)

// Code 错误码
type Code string

const (
	// 通用错误码
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeNotFound     Code = "NOT_FOUND"
	CodeTimeout      Code = "TIMEOUT"

	// 配置相关
	CodeInvalidConfig Code = "INVALID_CONFIG"

	// 排课引擎相关
	CodeNoFeasibleSolution Code = "NO_FEASIBLE_SOLUTION"
	CodeModelInvalid       Code = "MODEL_INVALID"
	CodeDataIntegrity      Code = "DATA_INTEGRITY"

	// 数据相关
	CodeDatabaseError  Code = "DATABASE_ERROR"
	CodeValidationFail Code = "VALIDATION_FAILED"
)

// 进程退出码
const (
	ExitOK         = 0
	ExitError      = 1
	ExitNoSolution = 2
)

// AppError 应用错误
type AppError struct {
	Code     Code                   `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	ExitCode int                    `json:"-"`
	Cause    error                  `json:"-"`
	Fields   map[string]interface{} `json:"fields,omitempty"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithField 添加字段
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// New 创建新错误
func New(code Code, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		ExitCode: codeToExitCode(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		ExitCode: codeToExitCode(code),
		Cause:    err,
	}
}

// codeToExitCode 错误码转进程退出码
func codeToExitCode(code Code) int {
	switch code {
	case CodeNoFeasibleSolution:
		return ExitNoSolution
	default:
		return ExitError
	}
}

// Is 检查错误是否为特定类型
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode 获取错误码
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetExitCode 获取进程退出码
func GetExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}
	return ExitError
}

// InvalidInput 创建输入无效错误
func InvalidInput(field, reason string) *AppError {
	return New(CodeInvalidInput, fmt.Sprintf("字段 '%s' 无效: %s", field, reason))
}

// InvalidConfig 创建配置错误
func InvalidConfig(key, reason string) *AppError {
	return New(CodeInvalidConfig, fmt.Sprintf("配置 '%s' 无效: %s", key, reason))
}

// NotFound 创建资源不存在错误
func NotFound(resource, id string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s '%s' 不存在", resource, id))
}

// NoFeasibleSolution 创建无可行解错误
func NoFeasibleSolution(status string) *AppError {
	return New(CodeNoFeasibleSolution, fmt.Sprintf("未找到排课方案（求解状态: %s）", status))
}

// DataIntegrity 创建数据完整性错误
func DataIntegrity(invalidRows, conflicts int) *AppError {
	return New(CodeDataIntegrity, fmt.Sprintf("结果存在 %d 行无效合并科目、%d 处冲突", invalidRows, conflicts)).
		WithField("invalid_rows", invalidRows).
		WithField("conflicts", conflicts)
}

// ValidationErrors 验证错误集合
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// ValidationError 单个验证错误
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error 实现 error 接口
func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "验证失败"
	}
	return fmt.Sprintf("验证失败: %s - %s", ve.Errors[0].Field, ve.Errors[0].Message)
}

// Add 添加验证错误
func (ve *ValidationErrors) Add(field, message string) {
	ve.Errors = append(ve.Errors, ValidationError{Field: field, Message: message})
}

// HasErrors 检查是否有错误
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// ToAppError 转换为 AppError
func (ve *ValidationErrors) ToAppError() *AppError {
	err := New(CodeInvalidConfig, ve.Error())
	err.Fields = make(map[string]interface{})
	for _, e := range ve.Errors {
		err.Fields[e.Field] = e.Message
	}
	return err
}
