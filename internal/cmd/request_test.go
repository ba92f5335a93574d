package cmd

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaelahrip/botasaurus-requests/internal/gateway"
	"github.com/yaelahrip/botasaurus-requests/internal/server"
)

func startGateway(t *testing.T, keys ...string) string {
	t.Helper()
	cfg, _ := testConfig(t, keys...)
	stack, err := buildGateway(cfg, echoEngine{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = stack.pool.Close() })

	srv := server.New(server.Options{
		Gate:       stack.gate,
		Normalizer: stack.normalizer,
		Dispatcher: stack.dispatcher,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestDefaultServerURL(t *testing.T) {
	assert.Equal(t, "http://localhost:5000", defaultServerURL("0.0.0.0", 5000, false))
	assert.Equal(t, "https://gw.internal:8443", defaultServerURL("gw.internal", 8443, true))
}

func TestBuildGatewayRequestJSONKeepsHeaderOrder(t *testing.T) {
	opts := requestOptions{
		Server:  "http://gw.test/",
		APIKey:  "k1",
		URL:     "https://example.test",
		Method:  "POST",
		Headers: gateway.Headers{{Name: "Zeta", Value: "1"}, {Name: "Alpha", Value: "2"}},
		Data:    "a=1",
		Only:    "status",
	}

	req, err := buildGatewayRequest(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "http://gw.test/api/request", req.URL.String())
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "k1", req.Header.Get("X-API-Key"))

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t,
		`{"url":"https://example.test","method":"POST","headers":{"Zeta":"1","Alpha":"2"},"data":"a=1","only":"status"}`,
		string(body))
}

func TestSendRequestThroughGateway(t *testing.T) {
	base := startGateway(t, "k1")

	result, err := sendRequest(context.Background(), requestOptions{
		Server:  base,
		APIKey:  "k1",
		URL:     "https://example.test/page",
		Method:  "put",
		Headers: gateway.Headers{{Name: "Accept", Value: "*/*"}},
		Data:    "x=1",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, result.HTTPStatus)
	assert.Equal(t, "https://example.test/page", result.URL)
	assert.Equal(t, "PUT", result.Headers["X-Verb"])
	assert.Equal(t, "*/*", result.Headers["Echo-Accept"])
	assert.Equal(t, "x=1", result.Body)
}

func TestSendRequestUploadsFile(t *testing.T) {
	base := startGateway(t, "k1")
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	result, err := sendRequest(context.Background(), requestOptions{
		Server: base,
		APIKey: "k1",
		URL:    "https://example.test/upload",
		Method: "POST",
		File:   path,
		Only:   "body",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.HTTPStatus)
	assert.Equal(t, "file:notes.txt", result.Body)
}

func TestSendRequestReportsGatewayErrors(t *testing.T) {
	base := startGateway(t, "k1")

	result, err := sendRequest(context.Background(), requestOptions{Server: base, APIKey: "wrong", URL: "https://example.test"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, result.HTTPStatus)
	assert.Equal(t, "Unauthorized: Missing or invalid API key", result.Error)
}

func TestCurlReplayMatchesOriginalCall(t *testing.T) {
	base := startGateway(t, "k1")

	first, err := sendRequest(context.Background(), requestOptions{
		Server:  base,
		APIKey:  "k1",
		URL:     "https://example.test/a?b=c",
		Method:  "POST",
		Headers: gateway.Headers{{Name: "X-Token", Value: `"quoted" $value`}},
		Data:    "k=v",
		Only:    "curl",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(first.Curl, "curl "), first.Curl)

	parsed, err := gateway.ParseCurl(first.Curl)
	require.NoError(t, err)

	replayed, err := sendRequest(context.Background(), requestOptions{
		Server:  base,
		APIKey:  "k1",
		URL:     parsed.URL,
		Method:  string(parsed.Method),
		Headers: parsed.Headers,
		Data:    parsed.Data,
	})
	require.NoError(t, err)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(replayed.Raw, &envelope))
	assert.Equal(t, "https://example.test/a?b=c", envelope["url"])
	assert.Equal(t, "k=v", envelope["body"])
	assert.Equal(t, `"quoted" $value`, replayed.Headers["Echo-X-Token"])
}
