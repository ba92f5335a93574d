package server

import (
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	apperrors "github.com/yaelahrip/botasaurus-requests/internal/errors"
	"github.com/yaelahrip/botasaurus-requests/internal/gateway"
	"github.com/yaelahrip/botasaurus-requests/internal/metrics"
	"github.com/yaelahrip/botasaurus-requests/internal/observability"
	servermw "github.com/yaelahrip/botasaurus-requests/internal/server/middleware"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "X-API-Key"

// Messages written by the guard.
const (
	MessageUnauthorized = "Unauthorized: Missing or invalid API key"
	MessageRateLimited  = "Rate limit exceeded"
)

// requireAPIKey admits requests through gate before the wrapped handler
// runs. Rejected requests never reach the handler.
func requireAPIKey(gate *gateway.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admission := gate.Admit(r.Context(), r.Header.Get(APIKeyHeader))
			metrics.RecordAdmission(admission.Decision.String())

			switch admission.Decision {
			case gateway.Admit:
			case gateway.RateLimited:
				seconds := int(math.Ceil(admission.RetryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(admission.Limit))
				w.Header().Set("X-RateLimit-Remaining", "0")
				logRejection(r, admission)
				HandleError(w, r, apperrors.NewRateLimitedError(MessageRateLimited, seconds))
				return
			default:
				logRejection(r, admission)
				HandleError(w, r, apperrors.NewUnauthorizedError(MessageUnauthorized))
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(admission.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(admission.Remaining))
			next.ServeHTTP(w, r.WithContext(gateway.WithAdmission(r.Context(), admission)))
		})
	}
}

func logRejection(r *http.Request, admission gateway.Admission) {
	logger := observability.ServerLogger
	if logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("decision", admission.Decision.String()),
		zap.String("request_id", servermw.GetRequestID(r.Context())),
		zap.String("remote_addr", r.RemoteAddr),
	}
	if admission.Key != "" {
		fields = append(fields, zap.String("api_key", gateway.MaskKey(admission.Key)))
	}
	logger.Info("Request rejected by API key guard", fields...)
}
