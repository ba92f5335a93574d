package output

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("md")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func TestDecodeEnvelope(t *testing.T) {
	raw := []byte(`{"url":"https://example.test/","status_code":200,"headers":{"Server":"nginx"},"body":"ok"}`)
	result := Decode(200, "application/json", raw)

	require.Equal(t, "https://example.test/", result.URL)
	require.Equal(t, 200, result.StatusCode)
	require.Equal(t, map[string]string{"Server": "nginx"}, result.Headers)
	require.Equal(t, "ok", result.Body)
}

func TestDecodeSelectors(t *testing.T) {
	headers := Decode(200, "application/json", []byte(`{"Content-Type":"text/html","Server":"nginx"}`))
	require.Equal(t, map[string]string{"Content-Type": "text/html", "Server": "nginx"}, headers.Headers)
	require.Zero(t, headers.StatusCode)

	status := Decode(200, "application/json", []byte(`{"status_code":404}`))
	require.Equal(t, 404, status.StatusCode)

	curl := Decode(200, "application/json", []byte(`{"curl":"curl -X GET https://example.test"}`))
	require.Equal(t, "curl -X GET https://example.test", curl.Curl)

	body := Decode(200, "text/plain; charset=utf-8", []byte(`<html></html>`))
	require.Equal(t, "<html></html>", body.Body)

	failure := Decode(429, "application/json", []byte(`{"error":"Rate limit exceeded"}`))
	require.Equal(t, "Rate limit exceeded", failure.Error)
	require.Equal(t, 429, failure.HTTPStatus)
}

func TestFormatters(t *testing.T) {
	raw := []byte(`{"url":"https://example.test/","status_code":200,"headers":{"Server":"nginx"},"body":"hello"}`)
	result := Decode(200, "application/json", raw)

	tableRendered, err := NewFormatter(FormatTable).Format(result)
	require.NoError(t, err)
	require.Contains(t, tableRendered, "FIELD")
	require.Contains(t, tableRendered, "Header Server")
	require.Contains(t, tableRendered, "HTTP 200")

	jsonRendered, err := NewFormatter(FormatJSON).Format(result)
	require.NoError(t, err)
	require.Contains(t, jsonRendered, "\"status_code\": 200")

	markdownRendered, err := NewFormatter(FormatMarkdown).Format(result)
	require.NoError(t, err)
	require.Contains(t, markdownRendered, "| Field | Value |")
	require.Contains(t, markdownRendered, "```\nhello\n```")

	rawRendered, err := NewFormatter(FormatRaw).Format(result)
	require.NoError(t, err)
	require.Equal(t, string(raw), rawRendered)
}

func TestBodyPreviewTruncates(t *testing.T) {
	long := strings.Repeat("a", maxBodyPreview+10)
	preview := bodyPreview(long)
	require.True(t, strings.HasPrefix(preview, strings.Repeat("a", maxBodyPreview)))
	require.Contains(t, preview, "bytes total")
}

func TestMarkdownEscapesCells(t *testing.T) {
	result := &Result{Curl: "curl -H \"a: b|c\"\nhttps://x.test"}
	rendered, err := NewFormatter(FormatMarkdown).Format(result)
	require.NoError(t, err)
	require.Contains(t, rendered, `b\|c`)
}
