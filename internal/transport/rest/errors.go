package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"schoolsched/internal/service/scheduling"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON object from the request body. The returned
// error is already shaped for the client.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) *errorResponse {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := dec.Decode(dst)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &errorResponse{
			Code:    "validation_failed",
			Message: typeErr.Field + " has the wrong type",
			Field:   typeErr.Field,
		}
	}
	if errors.Is(err, io.EOF) {
		return &errorResponse{Code: "invalid_json", Message: "request body is required"}
	}
	return &errorResponse{Code: "invalid_json", Message: "request body is not valid JSON"}
}

func statusForDecodeError(e *errorResponse) int {
	if e.Code == "validation_failed" {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}

// writeServiceError maps service errors onto HTTP statuses. Anything it does
// not recognise is logged and reported as internal_error.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr   *scheduling.ValidationError
		dupErr *scheduling.DuplicateNameError
		cErr   *scheduling.ConflictError
		nfErr  *scheduling.NotFoundError
		useErr *scheduling.RoomInUseError
	)

	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "validation_failed",
			Message: vErr.Error(),
			Field:   vErr.Field,
		})
	case errors.As(err, &dupErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    "duplicate_name",
			Message: "Room already exists",
			Field:   "name",
		})
	case errors.As(err, &cErr):
		body := errorResponse{Code: "schedule_conflict", Message: "Time slot conflict in this room"}
		if cErr.Existing != nil {
			existing := toClassResponse(*cErr.Existing)
			body.Conflict = &existing
			body.Message = cErr.Error()
		}
		writeJSON(w, http.StatusConflict, body)
	case errors.As(err, &useErr):
		writeJSON(w, http.StatusConflict, errorResponse{Code: "room_in_use", Message: useErr.Error()})
	case errors.As(err, &nfErr):
		writeJSON(w, http.StatusNotFound, errorResponse{Code: "not_found", Message: nfErr.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.log.Warn("request aborted", slog.String("path", r.URL.Path), slog.Any("err", err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Code:    "unavailable",
			Message: "request timed out, try again",
		})
	default:
		h.log.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", RequestIDFromContext(r.Context())),
			slog.Any("err", err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Code:    "internal_error",
			Message: "internal error",
		})
	}
}
