package handler

import (
	"strconv"

	"accounts/internal/usecase"

	"github.com/labstack/echo/v4"
)

// JSONの読み取りとvalidateタグの検証。壊れたJSONはBAD_REQUEST、タグ違反はVALIDATION_ERROR。
func bindAndValidate(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return usecase.NewAppError(usecase.CodeBadRequest, usecase.MsgInvalidRequest)
	}
	if err := c.Validate(dst); err != nil {
		return usecase.NewAppError(usecase.CodeValidationError, usecase.MsgValidationError)
	}
	return nil
}

// パスの:idを正の整数として読む
func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, usecase.NewAppError(usecase.CodeBadRequest, usecase.MsgInvalidRequest)
	}
	return id, nil
}

// クエリの整数（未指定はdef）
func queryInt(c echo.Context, key string, def int) (int, error) {
	v := c.QueryParam(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, usecase.NewAppError(usecase.CodeValidationError, usecase.MsgValidationError)
	}
	return n, nil
}
