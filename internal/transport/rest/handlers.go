package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"schoolsched/internal/domain"
	"schoolsched/internal/service/scheduling"
)

type SchedulingService interface {
	AddClassroom(ctx context.Context, in scheduling.AddClassroomInput) (domain.Classroom, error)
	ListClassrooms(ctx context.Context) ([]domain.Classroom, error)
	GetClassroom(ctx context.Context, name string) (domain.Classroom, error)
	DeleteClassroom(ctx context.Context, name string) error
	AddClass(ctx context.Context, in scheduling.AddClassInput) (domain.ClassSession, error)
	ListClasses(ctx context.Context, filter scheduling.ClassFilter) ([]domain.ClassSession, error)
	GetClass(ctx context.Context, id int64) (domain.ClassSession, error)
	DeleteClass(ctx context.Context, id int64) error
	Stats(ctx context.Context) (scheduling.Stats, error)
}

type Handler struct {
	svc SchedulingService
	log *slog.Logger
}

func NewHandler(svc SchedulingService, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		svc: svc,
		log: log.With(slog.String("component", "http.scheduling")),
	}
}

// DashboardStats handles GET /api/dashboard-stats.
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		TotalClasses:    stats.TotalClasses,
		TotalClassrooms: stats.TotalClassrooms,
	})
}

func (h *Handler) ListClassrooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.svc.ListClassrooms(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]classroomResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toClassroomResponse(room))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) AddClassroom(w http.ResponseWriter, r *http.Request) {
	var req classroomRequest
	if e := decodeJSON(w, r, &req); e != nil {
		writeJSON(w, statusForDecodeError(e), e)
		return
	}

	room, err := h.svc.AddClassroom(r.Context(), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClassroomResponse(room))
}

func (h *Handler) GetClassroom(w http.ResponseWriter, r *http.Request) {
	room, err := h.svc.GetClassroom(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClassroomResponse(room))
}

func (h *Handler) DeleteClassroom(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteClassroom(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Msg: "Deleted"})
}

// ListClasses handles GET /api/classes with optional room and day filters.
func (h *Handler) ListClasses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	classes, err := h.svc.ListClasses(r.Context(), scheduling.ClassFilter{
		Room: q.Get("room"),
		Day:  q.Get("day"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]classResponse, 0, len(classes))
	for _, c := range classes {
		out = append(out, toClassResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) AddClass(w http.ResponseWriter, r *http.Request) {
	var req classRequest
	if e := decodeJSON(w, r, &req); e != nil {
		writeJSON(w, statusForDecodeError(e), e)
		return
	}

	session, err := h.svc.AddClass(r.Context(), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClassResponse(session))
}

func (h *Handler) GetClass(w http.ResponseWriter, r *http.Request) {
	id, ok := classID(w, r)
	if !ok {
		return
	}
	session, err := h.svc.GetClass(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClassResponse(session))
}

func (h *Handler) DeleteClass(w http.ResponseWriter, r *http.Request) {
	id, ok := classID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteClass(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Msg: "Deleted"})
}

func classID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "validation_failed",
			Message: "id must be a positive integer",
			Field:   "id",
		})
		return 0, false
	}
	return id, true
}
