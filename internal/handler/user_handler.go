package handler

import (
	"accounts/internal/domain/model"
	"accounts/internal/middleware"
	"accounts/internal/repository"
	"accounts/internal/response"
	"accounts/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /users のAPI
type UserHandler struct {
	uc   *usecase.UserUsecase
	auth middleware.Authenticator
}

// DI
func NewUserHandler(uc *usecase.UserUsecase, auth middleware.Authenticator) *UserHandler {
	return &UserHandler{uc: uc, auth: auth}
}

// ログインしていれば操作者（crtNo / updtNo / delNo）として記録する
func (h *UserHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/users", middleware.OptionalAuth(h.auth))

	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/email/:email", h.GetByEmail)
	g.GET("/:id", h.GetByID)
	g.PATCH("/:id", h.Update)
	g.PATCH("/:id/password", h.UpdatePassword)
	g.DELETE("/:id", h.Delete)
	g.DELETE("", h.DeleteMany)
}

type createUserRequest struct {
	EmlAddr   string     `json:"emlAddr" validate:"required,email,max=255"`
	UserNm    string     `json:"userNm" validate:"required,max=100"`
	Password  string     `json:"password" validate:"required"`
	UserRole  model.Role `json:"userRole" validate:"required"`
	ProflImg  *string    `json:"proflImg"`
	UserBiogp *string    `json:"userBiogp"`
	UseYn     model.YN   `json:"useYn" validate:"omitempty,oneof=Y N"`
}

type updatePasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"required"`
}

type deleteUsersRequest struct {
	UserNoList []int64 `json:"userNoList" validate:"required,min=1,dive,gt=0"`
}

// POST /users
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	out, err := h.uc.Create(c.Request().Context(), usecase.CreateUserInput{
		EmlAddr:   req.EmlAddr,
		UserNm:    req.UserNm,
		Password:  req.Password,
		UserRole:  req.UserRole,
		ProflImg:  req.ProflImg,
		UserBiogp: req.UserBiogp,
		UseYn:     req.UseYn,
	}, middleware.Actor(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.OK(c, usecase.CodeCreated, usecase.MsgUserCreated, out)
}

// GET /users/:id
func (h *UserHandler) GetByID(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return response.Error(c, err)
	}

	out, err := h.uc.GetByID(c.Request().Context(), id)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, usecase.CodeOK, usecase.MsgUserFound, out)
}

// GET /users/email/:email
func (h *UserHandler) GetByEmail(c echo.Context) error {
	out, err := h.uc.GetByEmail(c.Request().Context(), c.Param("email"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, usecase.CodeOK, usecase.MsgUserFound, out)
}

// GET /users?userNm=&emlAddr=&userRole=&useYn=&delYn=&srchType=&srchKywd=&page=&pageSz=
func (h *UserHandler) List(c echo.Context) error {
	page, err := queryInt(c, "page", 0)
	if err != nil {
		return response.Error(c, err)
	}
	pageSz, err := queryInt(c, "pageSz", 0)
	if err != nil {
		return response.Error(c, err)
	}

	out, err := h.uc.List(c.Request().Context(), repository.UserListQuery{
		UserNm:   c.QueryParam("userNm"),
		EmlAddr:  c.QueryParam("emlAddr"),
		UserRole: model.Role(c.QueryParam("userRole")),
		UseYn:    model.YN(c.QueryParam("useYn")),
		DelYn:    model.YN(c.QueryParam("delYn")),
		SrchType: c.QueryParam("srchType"),
		SrchKywd: c.QueryParam("srchKywd"),
		Page:     page,
		PageSz:   pageSz,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, usecase.CodeOK, usecase.MsgUserListFound, out)
}

// PATCH /users/:id（指定された項目だけ更新）
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return response.Error(c, err)
	}

	var in usecase.UpdateUserInput
	if err := c.Bind(&in); err != nil {
		return response.Fail(c, usecase.CodeBadRequest, usecase.MsgInvalidRequest)
	}

	out, err := h.uc.Update(c.Request().Context(), id, in, middleware.Actor(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, usecase.CodeOK, usecase.MsgUserUpdated, out)
}

// PATCH /users/:id/password（現在のパスワード確認なし）
func (h *UserHandler) UpdatePassword(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req updatePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	if err := h.uc.UpdatePassword(c.Request().Context(), id, req.NewPassword, middleware.Actor(c)); err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, usecase.CodeOK, usecase.MsgPasswordUpdated, nil)
}

// DELETE /users/:id（論理削除）
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return response.Error(c, err)
	}

	msg, err := h.uc.Delete(c.Request().Context(), id, middleware.Actor(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, usecase.CodeOK, msg, nil)
}

// DELETE /users {userNoList:[...]}
func (h *UserHandler) DeleteMany(c echo.Context) error {
	var req deleteUsersRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	out, msg, err := h.uc.DeleteMany(c.Request().Context(), req.UserNoList, middleware.Actor(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, usecase.CodeOK, msg, out)
}
