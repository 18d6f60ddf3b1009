package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/fivetwenty-io/servicetitan-client/internal/client"
	"github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
	"github.com/stretchr/testify/require"
)

const (
	testTenant   = "12345"
	testToken    = "test-token"
	testAppKey   = "app-key"
	testClientID = "client-id"
)

// testServer serves a token endpoint and whatever API routes a test adds.
type testServer struct {
	*httptest.Server

	mux        *http.ServeMux
	tokenCalls atomic.Int32
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	server := &testServer{mux: http.NewServeMux()}

	server.mux.HandleFunc("/connect/token", func(writer http.ResponseWriter, _ *http.Request) {
		server.tokenCalls.Add(1)
		writeJSON(writer, map[string]interface{}{
			"access_token": testToken,
			"token_type":   "Bearer",
			"expires_in":   900,
		})
	})

	server.Server = httptest.NewServer(server.mux)
	t.Cleanup(server.Close)

	return server
}

// handle registers handler for a path below the test tenant.
func (s *testServer) handle(folder, resource string, handler http.HandlerFunc) {
	s.mux.HandleFunc("/"+folder+"/v2/tenant/"+testTenant+"/"+resource, handler)
}

func (s *testServer) credentials() *servicetitan.Credentials {
	return &servicetitan.Credentials{
		AppKey:       testAppKey,
		TenantID:     testTenant,
		ClientID:     testClientID,
		ClientSecret: "client-secret",
		Timezone:     "America/New_York",
		Environment:  servicetitan.EnvironmentIntegration,
		AuthRoot:     s.URL,
		APIRoot:      s.URL,
	}
}

func (s *testServer) client(t *testing.T, configure ...func(*servicetitan.Config)) *Client {
	t.Helper()

	config := &servicetitan.Config{
		Credentials:  s.credentials(),
		RetryMax:     1,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
		Sleeper: servicetitan.SleeperFunc(func(ctx context.Context, _ time.Duration) error {
			return ctx.Err()
		}),
	}

	for _, fn := range configure {
		fn(config)
	}

	client, err := New(context.Background(), config)
	require.NoError(t, err)

	return client
}

func writeJSON(writer http.ResponseWriter, payload interface{}) {
	writer.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(writer).Encode(payload)
}

func records(ids ...int) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		out = append(out, map[string]interface{}{"id": id})
	}

	return out
}

// recordingLogger keeps every message for assertions.
type recordingLogger struct {
	mu       sync.Mutex
	messages []string
	levels   []string
}

func (l *recordingLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.levels = append(l.levels, level)
	l.messages = append(l.messages, msg)
}

func (l *recordingLogger) Debug(msg string, _ map[string]interface{}) { l.record("debug", msg) }
func (l *recordingLogger) Info(msg string, _ map[string]interface{})  { l.record("info", msg) }
func (l *recordingLogger) Warn(msg string, _ map[string]interface{})  { l.record("warn", msg) }
func (l *recordingLogger) Error(msg string, _ map[string]interface{}) { l.record("error", msg) }

func (l *recordingLogger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.messages...)
}

// stringLog collects values seen by handlers.
type stringLog struct {
	mu     sync.Mutex
	values []string
}

func (l *stringLog) Add(value string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.values = append(l.values, value)
}

func (l *stringLog) Values() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.values...)
}
