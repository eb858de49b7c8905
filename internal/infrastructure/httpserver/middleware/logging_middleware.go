package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type LoggingMiddleware struct {
	logger *logrus.Logger
}

func NewLoggingMiddleware(logger *logrus.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

// RequestLogging creates middleware that logs incoming requests with
// the feed route parameters and the client IP the rate limiter keys on.
func (m *LoggingMiddleware) RequestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.logger != nil {
				fields := logrus.Fields{
					"method":    c.Request().Method,
					"path":      c.Path(),
					"client_ip": c.RealIP(),
				}
				if domain := c.Param("domain"); domain != "" {
					fields["domain"] = domain
				}
				if id := c.Param("id"); id != "" {
					fields["id"] = id
				}
				m.logger.WithFields(fields).Debug("incoming request")
			}
			return next(c)
		}
	}
}
