package adapters

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coprocfleet/domain"
	"coprocfleet/interfaces"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandHTTP_Panics(t *testing.T) {
	t.Run("baseURL_empty", func(t *testing.T) {
		assert.PanicsWithValue(t, "adapters.command_http.go: baseURL is required", func() {
			CommandHTTP("", &http.Client{}, time.Second)
		})
	})
	t.Run("client_nil", func(t *testing.T) {
		assert.PanicsWithValue(t, "adapters.command_http.go: http client is required", func() {
			CommandHTTP("http://localhost:5000", nil, time.Second)
		})
	})
	t.Run("timeout_zero", func(t *testing.T) {
		assert.PanicsWithValue(t, "adapters.command_http.go: call timeout must be positive", func() {
			CommandHTTP("http://localhost:5000", &http.Client{}, 0)
		})
	})
}

type capturedRequest struct {
	method    string
	path      string
	body      string
	ctype     string
	requestID string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var got []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, capturedRequest{
			method:    r.Method,
			path:      r.URL.Path,
			body:      string(body),
			ctype:     r.Header.Get("Content-Type"),
			requestID: r.Header.Get(domain.RequestIDHeader),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, &got
}

func TestCommandHTTP_Requests(t *testing.T) {
	tests := []struct {
		name     string
		call     func(c interfaces.CommandChannel) error
		wantPath string
		wantBody string
	}{
		{
			name: "set_config",
			call: func(c interfaces.CommandChannel) error {
				return c.SetConfig(`{"camera":"front"}`)
			},
			wantPath: "/set/config",
			wantBody: `{"config":"{\"camera\":\"front\"}"}`,
		},
		{
			name: "start_processes",
			call: func(c interfaces.CommandChannel) error {
				return c.StartProcesses([]string{"apriltag", "lidar"})
			},
			wantPath: "/start/process",
			wantBody: `{"process_types":["apriltag","lidar"]}`,
		},
		{
			name: "stop_processes_nil_list_sent_as_empty_array",
			call: func(c interfaces.CommandChannel) error {
				return c.StopProcesses(nil)
			},
			wantPath: "/stop/process",
			wantBody: `{"process_types":[]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, got := newCaptureServer(t, http.StatusOK)
			ch := CommandHTTP(server.URL, server.Client(), time.Second)
			require.NoError(t, tt.call(ch))
			require.Len(t, *got, 1)
			req := (*got)[0]
			assert.Equal(t, http.MethodPost, req.method)
			assert.Equal(t, tt.wantPath, req.path)
			assert.JSONEq(t, tt.wantBody, req.body)
			assert.Equal(t, "application/json", req.ctype)
			_, err := uuid.Parse(req.requestID)
			assert.NoError(t, err)
		})
	}
}

func TestCommandHTTP_Non200ReturnsError(t *testing.T) {
	server, got := newCaptureServer(t, http.StatusInternalServerError)
	ch := CommandHTTP(server.URL, server.Client(), time.Second)
	err := ch.StartProcesses([]string{"apriltag"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "/start/process")
	assert.Len(t, *got, 1)
}

func TestCommandHTTP_TimeoutReturnsError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ch := CommandHTTP(server.URL, server.Client(), 50*time.Millisecond)
	start := time.Now()
	err := ch.SetConfig("{}")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCommandHTTP_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	ch := CommandHTTP(url, NewHTTPClient(200*time.Millisecond), time.Second)
	require.Error(t, ch.StopProcesses([]string{"x"}))
}

func TestCommandHTTPFactory(t *testing.T) {
	server, got := newCaptureServer(t, http.StatusOK)
	factory := CommandHTTPFactory(server.Client(), time.Second)
	ch := factory(server.URL)
	require.NoError(t, ch.StopProcesses([]string{"a"}))
	require.Len(t, *got, 1)

	var body map[string][]string
	require.NoError(t, json.Unmarshal([]byte((*got)[0].body), &body))
	assert.Equal(t, []string{"a"}, body["process_types"])
}
