package handler

import (
	"errors"
	"net/http"

	"github.com/tannervoutour/fixxit.ai-openwebui/internal/api/response"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/core"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/crypto"
	"github.com/tannervoutour/fixxit.ai-openwebui/internal/db"
)

// writeServiceError maps service-level failures to HTTP status codes.
// Decryption failures deliberately return a generic message; the cause
// (key mismatch, tampered ciphertext) is server-side information.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrInvalidDescriptor):
		response.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrConnectionTest):
		response.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrAccessDenied):
		response.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, core.ErrGroupNotFound), errors.Is(err, core.ErrNoDatabase):
		response.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, crypto.ErrDecryptFailed):
		response.WriteError(w, http.StatusInternalServerError, "credential decryption failed")
	default:
		response.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
