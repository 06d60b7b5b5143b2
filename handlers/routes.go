package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"coprocfleet/api"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/labstack/echo/v4"
)

// RegisterHandlers mounts server on e behind request validation against the embedded
// command channel OpenAPI document.
func RegisterHandlers(e *echo.Echo, server *NodeServer) error {
	validate, err := NewRequestValidator(api.CommandChannelSpec)
	if err != nil {
		return err
	}
	g := e.Group("", validate)
	g.POST("/set/config", server.SetConfig)
	g.POST("/start/process", server.StartProcess)
	g.POST("/stop/process", server.StopProcess)
	g.GET("/status", server.GetStatus)
	return nil
}

// NewRequestValidator returns middleware rejecting requests that do not match the OpenAPI
// document spec. Validation failures carry the *openapi3filter.RequestError as Internal.
func NewRequestValidator(spec []byte) (echo.MiddlewareFunc, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ectx echo.Context) error {
			req := ectx.Request()
			route, pathParams, err := router.FindRoute(req)
			if err != nil {
				if errors.Is(err, routers.ErrMethodNotAllowed) {
					return echo.ErrMethodNotAllowed
				}
				return echo.ErrNotFound
			}
			input := &openapi3filter.RequestValidationInput{
				Request:    req,
				PathParams: pathParams,
				Route:      route,
			}
			if err := openapi3filter.ValidateRequest(req.Context(), input); err != nil {
				he := echo.NewHTTPError(http.StatusBadRequest, "request does not match the command channel schema")
				he.Internal = err
				return he
			}
			return next(ectx)
		}
	}, nil
}
