package integration

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaelahrip/botasaurus-requests/internal/gateway"
	"github.com/yaelahrip/botasaurus-requests/internal/observability"
	"github.com/yaelahrip/botasaurus-requests/internal/server"
)

const apiKey = "integration-key"

type slowEngine struct {
	delay time.Duration
}

func (e slowEngine) respond(ctx context.Context, call gateway.Call) (*gateway.Response, error) {
	select {
	case <-time.After(e.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &gateway.Response{URL: call.URL, StatusCode: http.StatusOK, Headers: map[string]string{}, Body: "ok"}, nil
}

func (e slowEngine) Get(ctx context.Context, c gateway.Call) (*gateway.Response, error) {
	return e.respond(ctx, c)
}

func (e slowEngine) Post(ctx context.Context, c gateway.Call) (*gateway.Response, error) {
	return e.respond(ctx, c)
}

func (e slowEngine) Put(ctx context.Context, c gateway.Call) (*gateway.Response, error) {
	return e.respond(ctx, c)
}

func (e slowEngine) Delete(ctx context.Context, c gateway.Call) (*gateway.Response, error) {
	return e.respond(ctx, c)
}

// cleanupMetrics tears down global telemetry state so each test starts clean.
func cleanupMetrics(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		_ = observability.StopMetrics()
	})
}

// isPermissionError normalizes OS-specific permission errors so tests can
// skip when loopback sockets are blocked.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"permission denied", "operation not permitted", "not permitted"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

func initMetricsOrSkip(t *testing.T) {
	t.Helper()
	if err := observability.InitMetrics("test", 0); err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping metrics tests due to sandbox permissions: %v", err)
		}
		require.NoError(t, err)
	}
	cleanupMetrics(t)
}

// newGatewayServer starts the full router on IPv4 loopback with a slow fake
// engine behind a small worker pool.
func newGatewayServer(t *testing.T, workers int, delay time.Duration) (*httptest.Server, *http.Client) {
	t.Helper()

	pool := gateway.NewPool(workers)
	t.Cleanup(func() { _ = pool.Close() })

	srv := server.New(server.Options{
		Gate:       gateway.NewGate([]string{apiKey}, gateway.NewMemoryWindowStore(), 1000, time.Minute),
		Normalizer: &gateway.Normalizer{Stager: &gateway.Stager{Dir: t.TempDir()}},
		Dispatcher: &gateway.Dispatcher{Engine: slowEngine{delay: delay}, Pool: pool, Timeout: 5 * time.Second},
	})

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping server setup: %v", err)
		}
		require.NoError(t, err)
	}

	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: srv.Handler()},
	}
	ts.Start()
	t.Cleanup(ts.Close)
	return ts, ts.Client()
}

func post(t *testing.T, client *http.Client, url, key, body string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/api/request", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	require.NoError(t, resp.Body.Close())
	return resp.StatusCode
}

func TestGatewayMetrics_Integration(t *testing.T) {
	require.NoError(t, observability.InitServerLogger(observability.LoggerOptions{Service: "test", Level: "warn"}))
	initMetricsOrSkip(t)

	ts, client := newGatewayServer(t, 3, 20*time.Millisecond)

	const numRequests = 40
	const numWorkers = 8

	requestChan := make(chan int, numRequests)
	for i := 0; i < numRequests; i++ {
		requestChan <- i
	}
	close(requestChan)

	var (
		mu     sync.Mutex
		counts = map[int]int{}
	)
	start := time.Now()

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for reqNum := range requestChan {
				key := apiKey
				body := `{"url":"https://example.test/page","only":"status"}`
				switch reqNum % 4 {
				case 1:
					key = "wrong"
				case 2:
					body = `{"method":"GET"}`
				}
				status := post(t, client, ts.URL, key, body)
				mu.Lock()
				counts[status]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	assert.Equal(t, 20, counts[http.StatusOK])
	assert.Equal(t, 10, counts[http.StatusUnauthorized])
	assert.Equal(t, 10, counts[http.StatusBadRequest])

	resp, err := client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	metricsContent := string(body)
	assert.Contains(t, metricsContent, "test_http_requests_total")
	assert.Contains(t, metricsContent, "test_gateway_admissions_total")
	assert.Contains(t, metricsContent, "test_gateway_dispatch_total")
	assert.True(t, elapsed < 5*time.Second, "load should finish in reasonable time")
	t.Logf("Load test completed: %d requests in %v", numRequests, elapsed)
}

func TestMetricsEndpoint_PrometheusFormat(t *testing.T) {
	require.NoError(t, observability.InitServerLogger(observability.LoggerOptions{Service: "test", Level: "warn"}))
	initMetricsOrSkip(t)

	ts, client := newGatewayServer(t, 1, 0)
	require.Equal(t, http.StatusOK, post(t, client, ts.URL, apiKey, `{"url":"https://example.test"}`))

	resp, err := client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	contentType := resp.Header.Get("Content-Type")
	assert.True(t, strings.HasPrefix(contentType, "text/plain; version=0.0.4"),
		"Expected Prometheus content type, got: %s", contentType)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)

	metricLines := 0
	labelled := false
	for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		metricLines++
		if strings.Contains(line, "{") && len(strings.Fields(line)) >= 2 {
			labelled = true
		}
	}
	assert.Greater(t, metricLines, 0)
	assert.True(t, labelled, "Should have labelled Prometheus metric lines")
}

func TestMetricsEndpoint_WithTelemetryDisabled(t *testing.T) {
	require.NoError(t, observability.InitServerLogger(observability.LoggerOptions{Service: "test", Level: "warn"}))
	require.NoError(t, observability.StopMetrics())
	observability.DisableMetrics()

	ts, client := newGatewayServer(t, 1, 0)
	require.Equal(t, http.StatusOK, post(t, client, ts.URL, apiKey, `{"url":"https://example.test"}`))

	resp, err := client.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
