package response

import (
	"errors"
	"net/http"

	"accounts/internal/usecase"
	"accounts/internal/validator"

	"github.com/labstack/echo/v4"
)

// 全APIの共通レスポンス。HTTPステータスは常に200で、失敗はerror/codeで表す。
type Envelope struct {
	Data    interface{}          `json:"data"`
	Error   bool                 `json:"error"`
	Code    usecase.ResponseCode `json:"code"`
	Message string               `json:"message"`
}

func OK(c echo.Context, code usecase.ResponseCode, message string, data interface{}) error {
	return c.JSON(http.StatusOK, Envelope{
		Data:    data,
		Error:   false,
		Code:    code,
		Message: message,
	})
}

func Fail(c echo.Context, code usecase.ResponseCode, message string) error {
	return c.JSON(http.StatusOK, Envelope{
		Data:    nil,
		Error:   true,
		Code:    code,
		Message: message,
	})
}

// usecaseのエラーをエンベロープに変換する
func Error(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if ae, ok := usecase.AsAppError(err); ok {
		return Fail(c, ae.Code, ae.Message)
	}
	if errors.Is(err, validator.ErrInvalidInput) {
		return Fail(c, usecase.CodeValidationError, usecase.MsgValidationError)
	}

	//500
	return Fail(c, usecase.CodeInternalServerError, usecase.MsgInternal)
}
