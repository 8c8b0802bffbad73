// Package logger holds the process zap logger and its echo integration.
package logger

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aslaburda/aslp_backend/security"
)

const (
	RequestIDHeader = "X-Request-ID"
	contextKey      = "logger"
)

var log *zap.Logger

// InitLogger builds the global logger: JSON in production, console otherwise.
func InitLogger(env, levelName string) *zap.Logger {
	var logConfig zap.Config
	if env == "production" || env == "prod" {
		logConfig = zap.NewProductionConfig()
	} else {
		logConfig = zap.NewDevelopmentConfig()
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		level = zapcore.InfoLevel
	}
	logConfig.Level.SetLevel(level)

	built, err := logConfig.Build()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	log = built
	log.Info("Logger initialized", zap.String("level", level.String()))
	return log
}

// GetLogger returns the global logger, or a no-op logger before InitLogger.
func GetLogger() *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// Middleware logs each request and stores a request-scoped logger on the context.
func Middleware(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			requestID := c.Request().Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = c.Response().Header().Get(echo.HeaderXRequestID)
			}
			ctxLogger := base.With(zap.String("request_id", requestID))
			c.Set(contextKey, ctxLogger)

			err := next(c)

			fields := []zapcore.Field{
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			}
			if action := c.Get("ajax_action"); action != nil {
				fields = append(fields, zap.Any("action", action))
			}
			if err != nil {
				fields = append(fields, zap.Error(err), zap.Any("headers", security.SanitizeHeaders(c.Request().Header)))
				ctxLogger.Error("HTTP request failed", fields...)
			} else {
				ctxLogger.Info("HTTP request completed", fields...)
			}
			return err
		}
	}
}

// FromEcho returns the request-scoped logger set by Middleware.
func FromEcho(c echo.Context) *zap.Logger {
	if l, ok := c.Get(contextKey).(*zap.Logger); ok {
		return l
	}
	return GetLogger()
}
