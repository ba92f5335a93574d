package cmd

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yaelahrip/botasaurus-requests/internal/gateway"
	"github.com/yaelahrip/botasaurus-requests/internal/observability"
	"github.com/yaelahrip/botasaurus-requests/internal/output"
)

// requestOptions describes one call to a running gateway.
type requestOptions struct {
	Server   string
	APIKey   string
	URL      string
	Method   string
	Headers  gateway.Headers
	Data     string
	Only     string
	File     string
	Insecure bool
	Timeout  time.Duration
}

// requestPayload is the JSON form of POST /api/request.
type requestPayload struct {
	URL     string          `json:"url"`
	Method  string          `json:"method,omitempty"`
	Headers gateway.Headers `json:"headers,omitempty"`
	Data    string          `json:"data,omitempty"`
	Only    string          `json:"only,omitempty"`
}

var requestCmd = &cobra.Command{
	Use:   "request [url]",
	Short: "Send a request through a running gateway",
	Long: `Send one request to POST /api/request on a running gateway and print the
reply.

The target can be given as flags or replayed from a curl command line such
as the one returned with --only curl.

Examples:
  # Status code of a page
  botasaurus-server request https://example.com --only status

  # POST form data with a header
  botasaurus-server request https://httpbin.org/post -X POST -H "Accept: */*" -d "a=1"

  # Upload a file
  botasaurus-server request https://httpbin.org/post -X POST --file ./report.pdf

  # Replay a curl command
  botasaurus-server request --curl 'curl -X GET -H "Accept: */*" https://example.com'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRequest,
}

func init() {
	rootCmd.AddCommand(requestCmd)

	flags := requestCmd.Flags()
	flags.String("server", "", "gateway base URL (default derived from server.host/port)")
	flags.String("api-key", "", "API key (default $BOTASAURUS_API_KEY)")
	flags.String("url", "", "target URL")
	flags.StringP("method", "X", "", "HTTP method: GET, POST, PUT or DELETE")
	flags.StringArrayP("header", "H", nil, "outbound header as 'Name: value' (repeatable)")
	flags.StringP("data", "d", "", "request body")
	flags.String("only", "", "reply selector: body, headers, status or curl")
	flags.String("file", "", "file to upload (sends multipart)")
	flags.String("curl", "", "curl command line to replay")
	flags.BoolP("insecure", "k", false, "skip TLS verification of the gateway")
	flags.Duration("timeout", 90*time.Second, "request timeout")
	flags.StringP("output-format", "o", "table", "output format: table, json, markdown, raw")
	flags.String("out", "", "write output to file instead of stdout")
}

func runRequest(cmd *cobra.Command, args []string) error {
	opts, err := requestOptionsFromFlags(cmd, args)
	if err != nil {
		return err
	}
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}

	observability.CLILogger.Debug("Sending gateway request",
		zap.String("server", opts.Server),
		zap.String("url", opts.URL),
		zap.String("method", opts.Method),
		zap.Bool("upload", opts.File != ""))

	result, err := sendRequest(cmd.Context(), opts)
	if err != nil {
		return err
	}

	rendered, err := output.NewFormatter(format).Format(result)
	if err != nil {
		return err
	}

	outPath, _ := cmd.Flags().GetString("out")
	sink, err := openSink(outPath, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()
	if _, err := fmt.Fprintln(sink.writer, rendered); err != nil {
		return err
	}

	if result.HTTPStatus >= 400 {
		return fmt.Errorf("gateway returned %d: %s", result.HTTPStatus, result.Error)
	}
	return nil
}

func requestOptionsFromFlags(cmd *cobra.Command, args []string) (requestOptions, error) {
	flags := cmd.Flags()
	var opts requestOptions

	opts.Server, _ = flags.GetString("server")
	opts.APIKey, _ = flags.GetString("api-key")
	opts.Only, _ = flags.GetString("only")
	opts.Insecure, _ = flags.GetBool("insecure")
	opts.Timeout, _ = flags.GetDuration("timeout")

	if curl, _ := flags.GetString("curl"); curl != "" {
		parsed, err := gateway.ParseCurl(curl)
		if err != nil {
			return opts, fmt.Errorf("--curl: %w", err)
		}
		opts.URL = parsed.URL
		opts.Method = string(parsed.Method)
		opts.Headers = parsed.Headers
		opts.Data = parsed.Data
		opts.File = parsed.File
	}

	if len(args) == 1 {
		opts.URL = args[0]
	}
	if value, _ := flags.GetString("url"); value != "" {
		opts.URL = value
	}
	if value, _ := flags.GetString("method"); value != "" {
		opts.Method = value
	}
	if value, _ := flags.GetString("data"); value != "" {
		opts.Data = value
	}
	if value, _ := flags.GetString("file"); value != "" {
		opts.File = value
	}
	headers, _ := flags.GetStringArray("header")
	for _, raw := range headers {
		name, value, ok := strings.Cut(raw, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return opts, fmt.Errorf("malformed header %q, want 'Name: value'", raw)
		}
		opts.Headers.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	if opts.URL == "" {
		return opts, fmt.Errorf("a target url is required")
	}
	if opts.APIKey == "" {
		opts.APIKey = os.Getenv(GetAppIdentity().EnvKey("API_KEY"))
	}
	if opts.Server == "" {
		cfg := loadConfig()
		opts.Server = defaultServerURL(cfg.Server.Host, cfg.Server.Port, cfg.Server.TLSEnabled())
	}
	return opts, nil
}

func defaultServerURL(host string, port int, tlsEnabled bool) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	scheme := "http"
	if tlsEnabled {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// sendRequest posts opts to the gateway and decodes the reply.
func sendRequest(ctx context.Context, opts requestOptions) (*output.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := buildGatewayRequest(ctx, opts)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: opts.Timeout}
	if opts.Insecure {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // opt-in for self-signed gateways
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call gateway: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gateway reply: %w", err)
	}
	return output.Decode(resp.StatusCode, resp.Header.Get("Content-Type"), raw), nil
}

func buildGatewayRequest(ctx context.Context, opts requestOptions) (*http.Request, error) {
	endpoint := strings.TrimRight(opts.Server, "/") + "/api/request"

	var (
		body        io.Reader
		contentType string
	)
	if opts.File != "" {
		buf, ct, err := multipartPayload(opts)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	} else {
		data, err := json.Marshal(requestPayload{
			URL:     opts.URL,
			Method:  opts.Method,
			Headers: opts.Headers,
			Data:    opts.Data,
			Only:    opts.Only,
		})
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if opts.APIKey != "" {
		req.Header.Set("X-API-Key", opts.APIKey)
	}
	return req, nil
}

// multipartPayload builds the multipart form. Multipart calls carry no
// outbound headers.
func multipartPayload(opts requestOptions) (*bytes.Buffer, string, error) {
	if len(opts.Headers) > 0 && observability.CLILogger != nil {
		observability.CLILogger.Warn("Headers are not forwarded with file uploads")
	}

	f, err := os.Open(opts.File)
	if err != nil {
		return nil, "", fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = f.Close() }()

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	fields := [][2]string{{"url", opts.URL}, {"method", opts.Method}, {"data", opts.Data}, {"only", opts.Only}}
	for _, field := range fields {
		if field[1] == "" {
			continue
		}
		if err := w.WriteField(field[0], field[1]); err != nil {
			return nil, "", err
		}
	}
	part, err := w.CreateFormFile("file", filepath.Base(opts.File))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
