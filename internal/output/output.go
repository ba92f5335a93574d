// Package output renders gateway replies for the request command.
package output

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatRaw      Format = "raw"
)

// Result is a reply from POST /api/request as the client sees it. Only the
// fields present in the reply are set.
type Result struct {
	// HTTPStatus is the gateway's own status code.
	HTTPStatus int `json:"-"`

	URL        string            `json:"url,omitempty"`
	StatusCode int               `json:"status_code,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body,omitempty"`
	Curl       string            `json:"curl,omitempty"`
	Error      string            `json:"error,omitempty"`

	// Raw is the reply body exactly as received.
	Raw []byte `json:"-"`
}

// Decode builds a Result from a gateway reply. Non-JSON replies (the body
// selector) are kept as Body.
func Decode(httpStatus int, contentType string, raw []byte) *Result {
	result := &Result{HTTPStatus: httpStatus, Raw: raw}
	if !strings.HasPrefix(strings.ToLower(contentType), "application/json") {
		result.Body = string(raw)
		return result
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		result.Body = string(raw)
		return result
	}

	_, enveloped := fields["status_code"]
	_, hasBody := fields["body"]
	_, hasError := fields["error"]
	_, hasCurl := fields["curl"]
	if !enveloped && !hasBody && !hasError && !hasCurl {
		// Bare header map.
		headers := make(map[string]string, len(fields))
		for name, value := range fields {
			var s string
			if json.Unmarshal(value, &s) == nil {
				headers[name] = s
			}
		}
		result.Headers = headers
		return result
	}

	_ = json.Unmarshal(raw, result)
	return result
}

// Formatter renders a Result.
type Formatter interface {
	Format(result *Result) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	case string(FormatRaw):
		return FormatRaw, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	case FormatRaw:
		return RawFormatter{}
	default:
		return &TableFormatter{}
	}
}

// RawFormatter prints the reply body unchanged.
type RawFormatter struct{}

// Format returns the raw reply.
func (RawFormatter) Format(result *Result) (string, error) {
	if result == nil {
		return "", nil
	}
	return string(result.Raw), nil
}

// maxBodyPreview bounds the body shown by the table and markdown formats.
const maxBodyPreview = 2000

func bodyPreview(body string) string {
	if len(body) <= maxBodyPreview {
		return body
	}
	return body[:maxBodyPreview] + fmt.Sprintf("... (%d bytes total)", len(body))
}

func sortedHeaderNames(headers map[string]string) []string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
