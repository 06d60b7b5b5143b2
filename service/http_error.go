package service

import (
	"errors"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
)

// RegisterErrorHandler installs the FleetError-aware error handler on e.
func RegisterErrorHandler(e *echo.Echo, logger log.Logger) {
	e.HTTPErrorHandler = NewHTTPErrorHandler(NewErrorCodeToStatusCodeMaps(), logger).Handler
}

// NewErrorCodeToStatusCodeMaps maps FleetError codes to HTTP statuses.
func NewErrorCodeToStatusCodeMaps() map[string]int {
	return map[string]int{
		ErrBadParameter:            http.StatusBadRequest,
		ErrUnsatisfiableConstraint: http.StatusConflict,
		ErrNoNodesAvailable:        http.StatusServiceUnavailable,
		ErrDiscoveryFailed:         http.StatusBadGateway,
		ErrInternalServerError:     http.StatusInternalServerError,
	}
}

// HTTPErrorHandler renders errors returned by echo handlers as ErrResponse bodies.
type HTTPErrorHandler struct {
	errorCodeToHTTPStatusCodeMap map[string]int
	logger                       log.Logger
}

func NewHTTPErrorHandler(errorCodeToStatusCodeMaps map[string]int, logger log.Logger) *HTTPErrorHandler {
	return &HTTPErrorHandler{
		errorCodeToHTTPStatusCodeMap: errorCodeToStatusCodeMaps,
		logger:                       logger,
	}
}

func (h *HTTPErrorHandler) getStatusCode(errorCode string) int {
	if status, ok := h.errorCodeToHTTPStatusCodeMap[errorCode]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Handler handles an error returned by an echo handler or middleware.
func (h *HTTPErrorHandler) Handler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	fleetErr := ToFleetError(err)
	if fleetErr == nil {
		fleetErr = NewFleetError(ErrInternalServerError, "an internal server error has occurred", err)
	}

	var statusCode int
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code := ErrInternalServerError
		if he.Code < http.StatusInternalServerError {
			code = ErrBadParameter
		}
		if he.Internal != nil {
			if inner, ok := he.Internal.(*echo.HTTPError); ok {
				he = inner
			}
			var requestError *openapi3filter.RequestError
			if errors.As(he.Internal, &requestError) {
				code = ErrBadParameter
			}
		}
		m, _ := he.Message.(string)
		fleetErr = NewFleetError(code, m, err)
		statusCode = he.Code
	} else {
		statusCode = h.getStatusCode(fleetErr.Code)
	}

	level.Error(h.logger).Log(
		"msg", "HTTP request error",
		"status", statusCode,
		"request_id", c.Request().Header.Get(echo.HeaderXRequestID),
		"err", err,
	)

	if c.Request().Method == http.MethodHead && he != nil {
		_ = c.NoContent(he.Code)
		return
	}
	_ = c.JSON(statusCode, ErrResponse{Error: fleetErr})
}

// ErrResponse is the body of every non-2xx response.
type ErrResponse struct {
	Error *FleetError `json:"error,omitempty"`
}
