package handlers

import (
	"net/http"
	"sync"

	apperrors "github.com/yaelahrip/botasaurus-requests/internal/errors"
	"github.com/yaelahrip/botasaurus-requests/internal/server/middleware"
)

// ErrorResponder writes err as the response to r.
type ErrorResponder func(http.ResponseWriter, *http.Request, error)

var (
	responderMu    sync.RWMutex
	errorResponder ErrorResponder = apperrors.RespondWithError
)

// SetErrorResponder replaces the function handlers use to write failures.
// Passing nil restores apperrors.RespondWithError.
func SetErrorResponder(responder ErrorResponder) {
	responderMu.Lock()
	defer responderMu.Unlock()
	if responder == nil {
		responder = apperrors.RespondWithError
	}
	errorResponder = responder
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	responderMu.RLock()
	responder := errorResponder
	responderMu.RUnlock()
	responder(w, r, err)
}

func requestIDFrom(r *http.Request) string {
	if r == nil {
		return ""
	}
	return middleware.GetRequestID(r.Context())
}
