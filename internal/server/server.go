package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"accounts/internal/handler"
	"accounts/internal/middleware"
	"accounts/internal/response"
	"accounts/internal/usecase"
	"accounts/internal/validator"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Options struct {
	FrontendURL string
	Logger      *zap.Logger
}

// echoの組み立て。ルートは各handlerのRegisterRoutesで登録する。
func New(opts Options, authH *handler.AuthHandler, userH *handler.UserHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.New()
	e.HTTPErrorHandler = errorHandler(opts.Logger)

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLogger(opts.Logger))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{opts.FrontendURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(middleware.Metrics())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	handler.RegisterHealthRoutes(e)
	authH.RegisterRoutes(e)
	userH.RegisterRoutes(e)

	return e
}

// ルート未定義・panicなどもエンベロープ（200）で返す
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := usecase.CodeInternalServerError
		msg := usecase.MsgInternal

		var he *echo.HTTPError
		if errors.As(err, &he) {
			switch he.Code {
			case http.StatusNotFound:
				code, msg = usecase.CodeNotFound, "Not found."
			case http.StatusMethodNotAllowed, http.StatusBadRequest, http.StatusUnsupportedMediaType:
				code, msg = usecase.CodeBadRequest, usecase.MsgInvalidRequest
			case http.StatusUnauthorized:
				code, msg = usecase.CodeUnauthorized, usecase.MsgTokenInvalid
			case http.StatusForbidden:
				code, msg = usecase.CodeForbidden, http.StatusText(http.StatusForbidden)
			default:
				logger.Error("unhandled http error", zap.Error(err))
			}
		} else {
			logger.Error("unhandled error", zap.Error(err), zap.String("path", c.Path()))
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(http.StatusOK)
			return
		}
		if werr := response.Fail(c, code, msg); werr != nil {
			logger.Error("write error response", zap.Error(werr))
		}
	}
}

// Ctrl+Cなどでgraceful shutdown
func Start(ctx context.Context, e *echo.Echo, addr string, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("server shutting down")
	return e.Shutdown(shutdownCtx)
}
