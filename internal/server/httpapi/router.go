package httpapi

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Register wires routes and middleware onto the echo instance.
func Register(e *echo.Echo, h *Handler, log *zap.Logger) {
	e.Use(Logging(log))
	e.Use(Recover(log))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	api := e.Group("/api")
	api.GET("/users", h.ListUsers)
	api.GET("/users/stats", h.GetStats)
	api.GET("/users/username/:username", h.GetUserByUsername)
	api.GET("/users/:id", h.GetUser)
	api.POST("/users", h.CreateUser)
	api.POST("/users/validate", h.ValidateUser)
	api.PUT("/users/:id", h.UpdateUser)
	api.DELETE("/users/:id", h.DeleteUser)
}

// Logging returns middleware for structured request logging: metadata only,
// never payloads.
func Logging(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			log.Info("http",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("dur", time.Since(start)),
				zap.String("peer", c.RealIP()),
			)
			return err
		}
	}
}

// Recover returns middleware that converts panics into envelope 500s.
func Recover(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic",
						zap.Any("reason", r),
						zap.ByteString("stack", debug.Stack()),
						zap.String("path", c.Request().URL.Path),
					)
					err = fail(c, http.StatusInternalServerError, msgInternal)
				}
			}()
			return next(c)
		}
	}
}
