// Package errors provides typed application errors. Handlers map an
// *AppError to its HTTP status and message; internal detail stays wrapped
// and is logged, never returned to the client.
package errors

import "net/http"

// AppError is a structured application error with a stable code, a
// human-readable message, an HTTP status, and an optional wrapped cause.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the wrapped cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap returns a copy of sentinel carrying internal as its cause.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage returns a copy of sentinel with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Validation failures (user-correctable, no state mutated).
var (
	ErrInvalidInput     = &AppError{Code: "INVALID_INPUT", Message: "无效的输入", StatusCode: http.StatusBadRequest}
	ErrEmptyText        = &AppError{Code: "EMPTY_TEXT", Message: "请输入文本", StatusCode: http.StatusBadRequest}
	ErrInvalidSheet     = &AppError{Code: "INVALID_SHEET", Message: "文件格式验证失败", StatusCode: http.StatusBadRequest}
	ErrBadUpload        = &AppError{Code: "BAD_UPLOAD", Message: "不支持的文件格式，请上传 .xlsx 或 .xls 文件", StatusCode: http.StatusBadRequest}
	ErrUploadTooLarge   = &AppError{Code: "UPLOAD_TOO_LARGE", Message: "文件超过大小限制", StatusCode: http.StatusRequestEntityTooLarge}
	ErrInvalidBackup    = &AppError{Code: "INVALID_BACKUP", Message: "无效的备份文件名", StatusCode: http.StatusBadRequest}
	ErrEmptyCategory    = &AppError{Code: "EMPTY_CATEGORY", Message: "分类名称不能为空", StatusCode: http.StatusBadRequest}
	ErrUnauthorized     = &AppError{Code: "UNAUTHORIZED", Message: "访问密码错误", StatusCode: http.StatusUnauthorized}
	ErrNothingSelected  = &AppError{Code: "NOTHING_SELECTED", Message: "请选择要删除的项目", StatusCode: http.StatusBadRequest}
	ErrEmptyProjectName = &AppError{Code: "EMPTY_PROJECT_NAME", Message: "未能识别项目名称", StatusCode: http.StatusBadRequest}
)

// Not-found conditions.
var (
	ErrItemNotFound     = &AppError{Code: "ITEM_NOT_FOUND", Message: "项目不存在", StatusCode: http.StatusNotFound}
	ErrCategoryNotFound = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "分类不存在", StatusCode: http.StatusNotFound}
	ErrBackupNotFound   = &AppError{Code: "BACKUP_NOT_FOUND", Message: "备份文件不存在", StatusCode: http.StatusNotFound}
)

// Infrastructure failures (retries exhausted, surfaced without stack traces).
var (
	ErrStore    = &AppError{Code: "STORE_ERROR", Message: "数据库访问失败，请稍后重试", StatusCode: http.StatusInternalServerError}
	ErrInternal = &AppError{Code: "INTERNAL_ERROR", Message: "服务内部错误", StatusCode: http.StatusInternalServerError}
)
