package middleware

import (
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yaelahrip/botasaurus-requests/internal/observability"
)

// GatewayEndpoint is the proxied request route. Calls to it carry an extra
// payload-shape series.
const GatewayEndpoint = "/api/request"

// Payload shapes as seen by the request normalizer.
const (
	PayloadJSON      = "json"
	PayloadMultipart = "multipart"
	PayloadEmpty     = "empty"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// getEndpointPattern returns the chi route pattern, or a fixed label for
// known paths when the request never reached the router.
func getEndpointPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if routePattern := rctx.RoutePattern(); routePattern != "" {
			return routePattern
		}
	}

	switch r.URL.Path {
	case "/health", "/health/live", "/health/ready", "/health/startup":
		return "/health/*"
	case GatewayEndpoint, "/version", "/metrics", "/":
		return r.URL.Path
	default:
		return "/unknown"
	}
}

// payloadKind mirrors the normalizer: multipart/form-data is a form, any
// other non-empty body is decoded as JSON.
func payloadKind(r *http.Request) string {
	contentType := r.Header.Get("Content-Type")
	if contentType != "" {
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == "multipart/form-data" {
			return PayloadMultipart
		}
		return PayloadJSON
	}
	if r.ContentLength == 0 && requestSize(r) == 0 {
		return PayloadEmpty
	}
	return PayloadJSON
}

func requestSize(r *http.Request) int64 {
	if contentLength := r.Header.Get("Content-Length"); contentLength != "" {
		if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
			return size
		}
	}
	if r.ContentLength > 0 {
		return r.ContentLength
	}
	return 0
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// RequestMetrics records request counts, latency and sizes per route
// pattern. Gateway calls also count by payload shape and status class.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		telemetry := observability.TelemetrySystem
		if telemetry == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		size := requestSize(r)
		payload := payloadKind(r)
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		endpoint := getEndpointPattern(r)
		status := strconv.Itoa(wrapped.statusCode)
		routeLabels := map[string]string{"method": r.Method, "endpoint": endpoint}
		labels := map[string]string{"method": r.Method, "endpoint": endpoint, "status": status}

		_ = telemetry.Counter("http_requests_total", 1, labels)
		_ = telemetry.Histogram("http_request_duration_ms", duration, labels)
		_ = telemetry.Gauge("http_request_size_bytes", float64(size), routeLabels)
		_ = telemetry.Gauge("http_response_size_bytes", float64(wrapped.bytesWritten), routeLabels)

		if wrapped.statusCode >= 400 {
			errorType := "client_error"
			if wrapped.statusCode >= 500 {
				errorType = "server_error"
			}
			_ = telemetry.Counter("http_errors_total", 1, map[string]string{
				"method":     r.Method,
				"endpoint":   endpoint,
				"status":     status,
				"error_type": errorType,
			})
		}

		if endpoint == GatewayEndpoint {
			_ = telemetry.Counter("gateway_payloads_total", 1, map[string]string{
				"payload":      payload,
				"status_class": statusClass(wrapped.statusCode),
			})
			_ = telemetry.Gauge("gateway_payload_size_bytes", float64(size), map[string]string{
				"payload": payload,
			})
		}

		logCompletion(r, endpoint, payload, wrapped, size, duration)
	})
}

// logCompletion logs health and metrics routes at debug and server errors at warn.
func logCompletion(r *http.Request, endpoint, payload string, rw *responseWriter, size int64, duration time.Duration) {
	logger := observability.ServerLogger
	if logger == nil {
		return
	}

	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("endpoint", endpoint),
		zap.Int("status", rw.statusCode),
		zap.Duration("duration", duration),
		zap.Int64("request_size", size),
		zap.Int64("response_size", rw.bytesWritten),
		zap.String("requestID", GetRequestID(r.Context())),
	}
	if endpoint == GatewayEndpoint {
		fields = append(fields, zap.String("payload", payload))
	}

	switch {
	case rw.statusCode >= 500:
		logger.Warn("HTTP request completed", fields...)
	case endpoint == "/metrics" || strings.HasPrefix(endpoint, "/health"):
		logger.Debug("HTTP request completed", fields...)
	default:
		logger.Info("HTTP request completed", fields...)
	}
}
