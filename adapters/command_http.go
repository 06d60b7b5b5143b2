// Package adapters contains the HTTP command-channel client for coprocessors. Discovery and
// the pub/sub transport live in the mdns and myredis subpackages.
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"coprocfleet/domain"
	"coprocfleet/helpers"
	"coprocfleet/interfaces"

	"github.com/google/uuid"
)

// Command channel paths, relative to the node's base URL.
const (
	PathSetConfig    = "/set/config"
	PathStartProcess = "/start/process"
	PathStopProcess  = "/stop/process"
)

// CommandHTTP creates an interfaces.CommandChannel that talks to one coprocessor over HTTP.
// Every request is a JSON POST bounded by callTimeout and tagged with a fresh X-Request-Id.
// Panics on empty baseURL, nil client or non-positive callTimeout.
func CommandHTTP(baseURL string, client *http.Client, callTimeout time.Duration) interfaces.CommandChannel {
	return &commandHTTP{
		baseURL: helpers.StrPanic(baseURL, "adapters.command_http.go: baseURL is required"),
		client:  helpers.NilPanic(client, "adapters.command_http.go: http client is required"),
		timeout: helpers.PositivePanic(callTimeout, "adapters.command_http.go: call timeout must be positive"),
	}
}

// CommandHTTPFactory returns a factory building CommandHTTP channels that share client.
func CommandHTTPFactory(client *http.Client, callTimeout time.Duration) interfaces.CommandChannelFactory {
	return func(baseURL string) interfaces.CommandChannel {
		return CommandHTTP(baseURL, client, callTimeout)
	}
}

// NewHTTPClient returns a client whose dials give up after connectTimeout. Overall request
// deadlines are applied per call by CommandHTTP.
func NewHTTPClient(connectTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     30 * time.Second,
		},
	}
}

type commandHTTP struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// configRequest is the body of POST /set/config.
type configRequest struct {
	Config string `json:"config"`
}

// processRequest is the body of POST /start/process and POST /stop/process.
type processRequest struct {
	ProcessTypes []string `json:"process_types"`
}

func (c *commandHTTP) SetConfig(rawConfig string) error {
	return c.post(PathSetConfig, configRequest{Config: rawConfig})
}

func (c *commandHTTP) StartProcesses(processTypes []string) error {
	return c.post(PathStartProcess, newProcessRequest(processTypes))
}

func (c *commandHTTP) StopProcesses(processTypes []string) error {
	return c.post(PathStopProcess, newProcessRequest(processTypes))
}

// newProcessRequest keeps an empty list encoded as [] rather than null.
func newProcessRequest(processTypes []string) processRequest {
	if processTypes == nil {
		processTypes = []string{}
	}
	return processRequest{ProcessTypes: processTypes}
}

func (c *commandHTTP) post(path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(domain.RequestIDHeader, uuid.NewString())
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}
	return nil
}
