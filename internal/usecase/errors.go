package usecase

import (
	"errors"
	"fmt"
)

// レスポンスのcode
type ResponseCode string

const (
	CodeOK                  ResponseCode = "OK"
	CodeCreated             ResponseCode = "CREATED"
	CodeBadRequest          ResponseCode = "BAD_REQUEST"
	CodeValidationError     ResponseCode = "VALIDATION_ERROR"
	CodeUnauthorized        ResponseCode = "UNAUTHORIZED"
	CodeForbidden           ResponseCode = "FORBIDDEN"
	CodeNotFound            ResponseCode = "NOT_FOUND"
	CodeConflict            ResponseCode = "CONFLICT"
	CodeInternalServerError ResponseCode = "INTERNAL_SERVER_ERROR"
)

// 想定内の失敗はすべてAppErrorで返す。handlerはこれをエンベロープに詰める。
type AppError struct {
	Code    ResponseCode
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ResponseCode, message string) error {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}

// 500（DBエラーなど）
func internalError() error {
	return NewAppError(CodeInternalServerError, MsgInternal)
}
