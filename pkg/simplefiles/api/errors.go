package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/tendant/simple-files/pkg/simplefiles"
)

// Client-facing error messages
const (
	msgUnauthorized   = "Unauthorized"
	msgNotFound       = "Not found"
	msgParentNotFound = "Parent not found"
	msgAlreadyExist   = "Already exist"
	msgFolderContent  = "A folder doesn't have content"
	msgInvalidSize    = "Invalid size"
	msgInvalidBody    = "Invalid request body"
	msgInternal       = "Internal Server Error"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}

// writeError maps a service error onto a status and a client-safe message.
// Infrastructure failures are logged and never leak their cause.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *simplefiles.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeMessage(w, r, http.StatusBadRequest, validationErr.Message)
	case errors.Is(err, simplefiles.ErrParentNotFound):
		writeMessage(w, r, http.StatusBadRequest, msgParentNotFound)
	case errors.Is(err, simplefiles.ErrConflict):
		writeMessage(w, r, http.StatusBadRequest, msgAlreadyExist)
	case errors.Is(err, simplefiles.ErrNoContent):
		writeMessage(w, r, http.StatusBadRequest, msgFolderContent)
	case errors.Is(err, simplefiles.ErrUnauthenticated):
		writeMessage(w, r, http.StatusUnauthorized, msgUnauthorized)
	case errors.Is(err, simplefiles.ErrNotFound), errors.Is(err, simplefiles.ErrContentNotFound):
		writeMessage(w, r, http.StatusNotFound, msgNotFound)
	default:
		slog.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err)
		writeMessage(w, r, http.StatusInternalServerError, msgInternal)
	}
}
