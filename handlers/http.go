// Package handlers serves the coprocessor side of the command channel.
package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"coprocfleet/domain"
	"coprocfleet/helpers"
	"coprocfleet/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
)

// SetConfigRequest is the body of POST /set/config.
type SetConfigRequest struct {
	Config string `json:"config"`
}

// ProcessRequest is the body of POST /start/process and POST /stop/process.
type ProcessRequest struct {
	ProcessTypes []string `json:"process_types"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	SystemName string   `json:"system_name,omitempty"`
	Config     string   `json:"config"`
	Running    []string `json:"running"`
}

// EventHook receives a log envelope for every state change of the node.
type EventHook func(domain.LogEnvelope)

// NodeServerOption configures a NodeServer.
type NodeServerOption func(*NodeServer)

// WithAcceptedProcesses restricts the process kinds the node will run. By default any
// non-empty identifier is accepted.
func WithAcceptedProcesses(kinds ...string) NodeServerOption {
	return func(s *NodeServer) {
		s.accepted = make(map[string]struct{}, len(kinds))
		for _, k := range kinds {
			s.accepted[k] = struct{}{}
		}
	}
}

// WithEventHook reports state changes to hook.
func WithEventHook(hook EventHook) NodeServerOption {
	return func(s *NodeServer) { s.hook = hook }
}

// NodeServer keeps the configuration and running process set of one coprocessor.
type NodeServer struct {
	systemName string
	accepted   map[string]struct{}
	hook       EventHook
	logger     log.Logger

	mu      sync.Mutex
	config  string
	running map[string]struct{}
}

// NewNodeServer panics on nil logger.
func NewNodeServer(systemName string, logger log.Logger, opts ...NodeServerOption) *NodeServer {
	s := &NodeServer{
		systemName: systemName,
		logger:     log.WithPrefix(helpers.NilPanic(logger, "handlers.http.go: logger is required"), "component", "NodeServer"),
		running:    map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetConfig (POST /set/config) stores the raw configuration string.
func (s *NodeServer) SetConfig(ectx echo.Context) error {
	var req SetConfigRequest
	if err := ectx.Bind(&req); err != nil {
		return service.NewBadParameterError("invalid request body", err)
	}
	s.mu.Lock()
	s.config = req.Config
	s.mu.Unlock()

	level.Info(s.logger).Log("msg", "config updated", "bytes", len(req.Config), "request_id", requestID(ectx))
	s.emit("[INFO]", fmt.Sprintf("config updated (%d bytes)", len(req.Config)))
	return ectx.NoContent(http.StatusOK)
}

// StartProcess (POST /start/process) marks the listed processes as running. Already running
// processes are left alone.
func (s *NodeServer) StartProcess(ectx echo.Context) error {
	kinds, err := s.bindProcesses(ectx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	for _, k := range kinds {
		s.running[k] = struct{}{}
	}
	s.mu.Unlock()

	level.Info(s.logger).Log("msg", "processes started", "processes", fmt.Sprint(kinds), "request_id", requestID(ectx))
	for _, k := range kinds {
		s.emit("[INFO]", "started "+k)
	}
	return ectx.NoContent(http.StatusOK)
}

// StopProcess (POST /stop/process) stops the listed processes. Stopping a process that is not
// running is not an error.
func (s *NodeServer) StopProcess(ectx echo.Context) error {
	kinds, err := s.bindProcesses(ectx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	for _, k := range kinds {
		delete(s.running, k)
	}
	s.mu.Unlock()

	level.Info(s.logger).Log("msg", "processes stopped", "processes", fmt.Sprint(kinds), "request_id", requestID(ectx))
	for _, k := range kinds {
		s.emit("[INFO]", "stopped "+k)
	}
	return ectx.NoContent(http.StatusOK)
}

// GetStatus (GET /status) returns the stored configuration and the sorted running set.
func (s *NodeServer) GetStatus(ectx echo.Context) error {
	return ectx.JSON(http.StatusOK, s.Status())
}

// Status returns the node's current state.
func (s *NodeServer) Status() StatusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	running := make([]string, 0, len(s.running))
	for k := range s.running {
		running = append(running, k)
	}
	sort.Strings(running)
	return StatusResponse{SystemName: s.systemName, Config: s.config, Running: running}
}

func (s *NodeServer) bindProcesses(ectx echo.Context) ([]string, error) {
	var req ProcessRequest
	if err := ectx.Bind(&req); err != nil {
		return nil, service.NewBadParameterError("invalid request body", err)
	}
	for _, k := range req.ProcessTypes {
		if k == "" {
			return nil, service.NewBadParameterError("process type must not be empty", nil)
		}
		if s.accepted == nil {
			continue
		}
		if _, ok := s.accepted[k]; !ok {
			return nil, service.NewBadParameterError(fmt.Sprintf("unknown process type %q", k), nil)
		}
	}
	return req.ProcessTypes, nil
}

func (s *NodeServer) emit(prefix, message string) {
	if s.hook == nil {
		return
	}
	s.hook(domain.LogEnvelope{Prefix: prefix, NodeName: s.systemName, Message: message})
}

func requestID(ectx echo.Context) string {
	return ectx.Request().Header.Get(domain.RequestIDHeader)
}
