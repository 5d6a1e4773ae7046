package middleware

import (
	"context"
	"strings"

	"accounts/internal/response"
	"accounts/internal/usecase"

	"github.com/labstack/echo/v4"
)

const (
	CtxUserNoKey = "user_no" // int64

	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// access tokenからユーザー番号を解決する（usecase.AuthUsecaseが満たす）
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (int64, error)
}

// 認証必須。Bearerヘッダ、なければaccess_token Cookieを見る。
func AuthJWT(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := accessToken(c)
			if raw == "" {
				return response.Fail(c, usecase.CodeUnauthorized, usecase.MsgTokenInvalid)
			}

			userNo, err := auth.Authenticate(c.Request().Context(), raw)
			if err != nil {
				return response.Error(c, err)
			}

			c.Set(CtxUserNoKey, userNo)
			return next(c)
		}
	}
}

// 認証任意。トークンが有効なときだけ操作者としてcontextに入れる。
func OptionalAuth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := accessToken(c); raw != "" {
				if userNo, err := auth.Authenticate(c.Request().Context(), raw); err == nil {
					c.Set(CtxUserNoKey, userNo)
				}
			}
			return next(c)
		}
	}
}

// contextのユーザー番号（未認証ならfalse）
func UserNo(c echo.Context) (int64, bool) {
	v, ok := c.Get(CtxUserNoKey).(int64)
	return v, ok && v > 0
}

// 操作者。未認証ならnil。
func Actor(c echo.Context) *int64 {
	if v, ok := UserNo(c); ok {
		return &v
	}
	return nil
}

func accessToken(c echo.Context) string {
	authz := c.Request().Header.Get(echo.HeaderAuthorization)
	if authz != "" {
		parts := strings.SplitN(authz, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if tok := strings.TrimSpace(parts[1]); tok != "" {
				return tok
			}
		}
	}

	if ck, err := c.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimSpace(ck.Value)
	}
	return ""
}
