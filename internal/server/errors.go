package server

import (
	"net/http"

	apperrors "github.com/yaelahrip/botasaurus-requests/internal/errors"
)

// HandleError writes every server-side failure as {"error": message}.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}
