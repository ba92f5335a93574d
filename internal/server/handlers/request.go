package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/yaelahrip/botasaurus-requests/internal/errors"
	"github.com/yaelahrip/botasaurus-requests/internal/gateway"
	"github.com/yaelahrip/botasaurus-requests/internal/metrics"
	"github.com/yaelahrip/botasaurus-requests/internal/observability"
)

// Messages returned for rejected payloads.
const (
	MessageInvalidRequest = "Invalid url or method"
	MessageInvalidBody    = "Invalid request body"
)

// RequestHandler serves POST /api/request for callers already admitted by
// the API-key guard.
type RequestHandler struct {
	Normalizer *gateway.Normalizer
	Dispatcher *gateway.Dispatcher
}

func (h *RequestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	desc, err := h.Normalizer.Normalize(r)
	if err != nil {
		respondWithError(w, r, normalizeError(r, err))
		return
	}
	defer h.cleanup(r, desc)

	if desc.File != nil {
		metrics.RecordStagedFile(h.activeUploads())
	}

	resp, err := h.Dispatcher.Dispatch(ctx, desc)
	if err != nil {
		var upstream *gateway.UpstreamError
		switch {
		case errors.As(err, &upstream):
			respondWithError(w, r, apperrors.WrapUpstreamFailure(ctx, upstream))
		case gateway.IsMalformed(err):
			respondWithError(w, r, apperrors.WrapInvalidInput(ctx, err, MessageInvalidRequest))
		default:
			respondWithError(w, r, apperrors.WrapInternal(ctx, err, "Internal server error"))
		}
		return
	}

	reply, err := gateway.Shape(resp, desc)
	if err != nil {
		respondWithError(w, r, apperrors.WrapInternal(ctx, err, "Internal server error"))
		return
	}

	if logger := observability.ServerLogger; logger != nil {
		fields := []zap.Field{
			zap.String("method", string(desc.Method)),
			zap.String("only", string(desc.Only)),
			zap.Int("upstream_status", resp.StatusCode),
			zap.Bool("upload", desc.File != nil),
		}
		if admission, ok := gateway.AdmissionFrom(ctx); ok {
			fields = append(fields, zap.String("api_key", gateway.MaskKey(admission.Key)))
		}
		logger.Debug("Gateway request completed", fields...)
	}

	w.Header().Set("Content-Type", reply.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(reply.Body)
}

func (h *RequestHandler) cleanup(r *http.Request, desc *gateway.Descriptor) {
	if desc.File == nil {
		return
	}
	if err := desc.Cleanup(); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to remove staged upload",
			zap.String("path", desc.File.Path),
			zap.String("request_id", requestIDFrom(r)),
			zap.Error(err))
	}
	metrics.SetStagedFiles(h.activeUploads())
}

func (h *RequestHandler) activeUploads() int64 {
	if h.Normalizer == nil || h.Normalizer.Stager == nil {
		return 0
	}
	return h.Normalizer.Stager.Active()
}

func normalizeError(r *http.Request, err error) error {
	switch {
	case errors.Is(err, gateway.ErrUnreadableBody):
		return apperrors.WrapInvalidInput(r.Context(), err, MessageInvalidBody)
	case errors.Is(err, gateway.ErrMalformedRequest):
		return apperrors.WrapInvalidInput(r.Context(), err, MessageInvalidRequest)
	default:
		return apperrors.WrapInternal(r.Context(), err, "Internal server error")
	}
}
