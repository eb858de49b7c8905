package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// problem is the RFC 7807 style error body. Every non-2xx response
// carries one; clients never see a bare string or a stack trace.
type problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance"`
}

type errorResponse struct {
	Success bool    `json:"success"`
	Error   problem `json:"error"`
}

// problemErrorHandler is installed as echo's HTTPErrorHandler. It maps
// echo.HTTPError codes through, hides internals behind a generic 500,
// and tags every occurrence with an instance id for log correlation.
func (s *Server) problemErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	detail := ""

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		detail = fmt.Sprint(he.Message)
	}

	instance := c.Response().Header().Get(echo.HeaderXRequestID)
	if instance == "" {
		instance = uuid.NewString()
	}

	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"status":   status,
			"path":     c.Request().URL.Path,
			"instance": instance,
		}).Error("request failed")
	}
	if status == http.StatusInternalServerError {
		// Full detail stays in the server log only.
		detail = "an unexpected error occurred"
	}

	body := errorResponse{
		Success: false,
		Error: problem{
			Type:     "about:blank",
			Title:    http.StatusText(status),
			Status:   status,
			Detail:   detail,
			Instance: "urn:request:" + instance,
		},
	}

	c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
	if writeErr := c.JSON(status, body); writeErr != nil {
		s.logger.WithError(writeErr).Error("failed to write problem response")
	}
}
