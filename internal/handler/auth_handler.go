package handler

import (
	"net/http"
	"time"

	"accounts/internal/middleware"
	"accounts/internal/response"
	"accounts/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	uc           *usecase.AuthUsecase
	accessTTL    time.Duration // access cookie の有効期限
	refreshTTL   time.Duration // refresh cookie の有効期限
	cookieSecure bool
}

// DIコンストラクタ
func NewAuthHandler(uc *usecase.AuthUsecase, accessTTL time.Duration, refreshTTL time.Duration, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		uc:           uc,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
		cookieSecure: cookieSecure,
	}
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/auth")
	g.POST("/signin", h.Signin)
	g.POST("/signout", h.Signout)
	g.POST("/refresh", h.Refresh)
	g.POST("/reset-password/request", h.RequestPasswordReset)
	g.POST("/reset-password", h.ResetPassword)
	g.POST("/change-password", h.ChangePassword, middleware.AuthJWT(h.uc))
}

// /auth/signin のリクエストボディ
type signinRequest struct {
	EmlAddr  string `json:"emlAddr" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// トークンはCookieで渡すのでbodyでは常にnull
type tokenResponse struct {
	AccessToken  *string `json:"accessToken"`
	RefreshToken *string `json:"refreshToken"`
	TokenType    string  `json:"tokenType"`
}

type signoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type resetRequestRequest struct {
	EmlAddr string `json:"emlAddr" validate:"required,email"`
}

type resetPasswordRequest struct {
	EmlAddr     string `json:"emlAddr" validate:"required,email"`
	ResetToken  string `json:"resetToken" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// POST /auth/signin
func (h *AuthHandler) Signin(c echo.Context) error {
	var req signinRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	pair, err := h.uc.Login(c.Request().Context(), usecase.LoginInput{
		EmlAddr:  req.EmlAddr,
		Password: req.Password,
	})
	if err != nil {
		return response.Error(c, err)
	}

	h.setTokenCookies(c, pair)
	return response.OK(c, usecase.CodeOK, usecase.MsgLoginSuccess, nullTokens())
}

// POST /auth/signout（Cookie、なければbodyのrefreshToken）
func (h *AuthHandler) Signout(c echo.Context) error {
	refresh := cookieValue(c, middleware.RefreshTokenCookie)
	if refresh == "" {
		var req signoutRequest
		//bodyは任意なのでエラーは無視
		_ = c.Bind(&req)
		refresh = req.RefreshToken
	}

	h.uc.Logout(c.Request().Context(), refresh)

	h.clearTokenCookies(c)
	return response.OK(c, usecase.CodeOK, usecase.MsgLogoutSuccess, nil)
}

// POST /auth/refresh
func (h *AuthHandler) Refresh(c echo.Context) error {
	refresh := cookieValue(c, middleware.RefreshTokenCookie)
	if refresh == "" {
		return response.Fail(c, usecase.CodeUnauthorized, usecase.MsgRefreshTokenInvalid)
	}

	pair, err := h.uc.Refresh(c.Request().Context(), refresh)
	if err != nil {
		return response.Error(c, err)
	}

	h.setTokenCookies(c, pair)
	return response.OK(c, usecase.CodeOK, usecase.MsgRefreshSuccess, nullTokens())
}

// POST /auth/reset-password/request（メールの有無に関わらず成功）
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req resetRequestRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	if err := h.uc.RequestPasswordReset(c.Request().Context(), req.EmlAddr); err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, usecase.CodeOK, usecase.MsgResetRequestSuccess, nil)
}

// POST /auth/reset-password
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	err := h.uc.ResetPassword(c.Request().Context(), usecase.ResetPasswordInput{
		EmlAddr:     req.EmlAddr,
		ResetToken:  req.ResetToken,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, usecase.CodeOK, usecase.MsgResetSuccess, nil)
}

// POST /auth/change-password（要ログイン）
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	userNo, ok := middleware.UserNo(c)
	if !ok {
		return response.Fail(c, usecase.CodeUnauthorized, usecase.MsgTokenInvalid)
	}

	var req changePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	err := h.uc.ChangePassword(c.Request().Context(), userNo, usecase.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, usecase.CodeOK, usecase.MsgChangePasswordSuccess, nil)
}

func nullTokens() tokenResponse {
	return tokenResponse{TokenType: "bearer"}
}

func (h *AuthHandler) setTokenCookies(c echo.Context, pair *usecase.TokenPair) {
	c.SetCookie(h.cookie(middleware.AccessTokenCookie, pair.AccessToken, h.accessTTL))
	c.SetCookie(h.cookie(middleware.RefreshTokenCookie, pair.RefreshToken, h.refreshTTL))
}

func (h *AuthHandler) clearTokenCookies(c echo.Context) {
	for _, name := range []string{middleware.AccessTokenCookie, middleware.RefreshTokenCookie} {
		ck := h.cookie(name, "", 0)
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		c.SetCookie(ck)
	}
}

func (h *AuthHandler) cookie(name string, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
	}
}

func cookieValue(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
