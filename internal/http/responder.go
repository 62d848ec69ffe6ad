package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/facility-scheduler/internal/application"
	"github.com/example/facility-scheduler/internal/auth"
)

// Error codes returned in error bodies.
const (
	codeBadRequest       = "BAD_REQUEST"
	codeUnauthenticated  = "AUTH_INVALID"
	codeForbidden        = "AUTH_FORBIDDEN"
	codeNotFound         = "NOT_FOUND"
	codeAlreadyExists    = "ALREADY_EXISTS"
	codeValidation       = "VALIDATION_FAILED"
	codeConflict         = "BOOKING_CONFLICT"
	codeInUse            = "RESOURCE_IN_USE"
	codeBusy             = "ROOM_BUSY"
	codeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	codeInternal         = "INTERNAL"
)

var (
	errBadRequestBody = errors.New("request body is not valid JSON")
	errInvalidRange   = errors.New("from and to must be RFC 3339 timestamps")
)

type errorResponse struct {
	ErrorCode             string            `json:"error_code"`
	Message               string            `json:"message"`
	Errors                map[string]string `json:"errors,omitempty"`
	ConflictingScheduleID string            `json:"conflicting_schedule_id,omitempty"`
}

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, code string, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
	}
	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: message})
}

// handleServiceError maps the application error taxonomy onto HTTP.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		vErr     *application.ValidationError
		conflict *application.ConflictError
		busy     *application.BusyError
	)

	switch {
	case err == nil:
		r.writeError(ctx, w, http.StatusInternalServerError, codeInternal, errors.New("unknown error"))
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: codeValidation,
			Message:   "request contains invalid fields",
			Errors:    vErr.FieldErrors,
		})
	case errors.As(err, &conflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode:             codeConflict,
			Message:               "the room is already booked for this time",
			ConflictingScheduleID: conflict.ScheduleID,
		})
	case errors.As(err, &busy):
		w.Header().Set("Retry-After", "1")
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{
			ErrorCode: codeBusy,
			Message:   "the room is busy, retry shortly",
		})
	case errors.Is(err, application.ErrUnauthorized):
		r.writeError(ctx, w, http.StatusForbidden, codeForbidden, errors.New("you are not allowed to perform this operation"))
	case errors.Is(err, auth.ErrInvalidCredentials):
		r.writeError(ctx, w, http.StatusUnauthorized, codeUnauthenticated, errors.New("credentials are invalid or expired"))
	case errors.Is(err, application.ErrNotFound):
		r.writeError(ctx, w, http.StatusNotFound, codeNotFound, errors.New("resource not found"))
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeError(ctx, w, http.StatusConflict, codeAlreadyExists, errors.New("resource already exists"))
	case errors.Is(err, application.ErrInUse):
		r.writeError(ctx, w, http.StatusConflict, codeInUse, errors.New("resource is still referenced"))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		r.writeError(ctx, w, http.StatusServiceUnavailable, codeBusy, errors.New("request was cancelled"))
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeError(ctx, w, http.StatusInternalServerError, codeInternal, errors.New("internal server error"))
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		return errBadRequestBody
	}
	return nil
}
