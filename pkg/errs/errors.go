// Package errs 定义了 RAG 流水线的三类错误：配置错误、上游错误与校验错误。
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// ConfigError 表示缺少调用所必需的配置（例如 API 凭证）。
type ConfigError struct {
	Setting string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing configuration: %s", e.Setting)
}

// UpstreamError 表示对 embedding 或 chat-completion 接口的调用失败、
// 返回非 2xx 状态码，或返回了不符合预期结构的响应。
type UpstreamError struct {
	Op     string
	Status int // 上游返回的状态码；无状态码时为 502
	Body   string
	Err    error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s: upstream error (status %d)", e.Op, e.Status)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ValidationError 表示在发起任何网络调用之前即被拒绝的输入。
type ValidationError struct {
	Field  string
	Reason string
	// Status 允许调用方为特定校验失败指定 HTTP 状态码（如 413、415），为 0 时使用 400。
	Status int
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewUpstream 构造一个 UpstreamError；status 为 0 时回退为 502。
func NewUpstream(op string, status int, body string, err error) *UpstreamError {
	if status == 0 {
		status = http.StatusBadGateway
	}
	return &UpstreamError{Op: op, Status: status, Body: body, Err: err}
}

// Validation 构造一个 400 类的 ValidationError。
func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func IsConfig(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

func IsUpstream(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// HTTPStatus 将错误映射为对外暴露的 HTTP 状态码。
func HTTPStatus(err error) int {
	var (
		cfgErr      *ConfigError
		upstreamErr *UpstreamError
		validErr    *ValidationError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validErr):
		if validErr.Status != 0 {
			return validErr.Status
		}
		return http.StatusBadRequest
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError
	case errors.As(err, &upstreamErr):
		return upstreamErr.Status
	default:
		return http.StatusInternalServerError
	}
}
