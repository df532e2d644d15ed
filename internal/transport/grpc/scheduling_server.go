package grpc

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"schoolsched/internal/domain"
	"schoolsched/internal/service/scheduling"
)

type schedulingService interface {
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

type SchedulingServer struct {
	svc schedulingService
	log *slog.Logger
}

var _ SchedulingServiceServer = (*SchedulingServer)(nil)

func NewSchedulingServer(svc schedulingService, log *slog.Logger) *SchedulingServer {
	if log == nil {
		log = slog.Default()
	}
	return &SchedulingServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.scheduling")),
	}
}

func (s *SchedulingServer) AddClassroom(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "AddClassroom"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	capacity, err := intField(req, "capacity")
	if err != nil {
		log.Warn("invalid request", slog.Any("err", err))
		return nil, err
	}

	room, err := s.svc.AddClassroom(ctx, scheduling.AddClassroomInput{
		Name:      stringField(req, "name"),
		Capacity:  int(capacity),
		Equipment: stringField(req, "equipment"),
	})
	if err != nil {
		return nil, s.toStatus(log, err)
	}
	return newStruct(log, classroomFields(room))
}

func (s *SchedulingServer) ListClassrooms(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "ListClassrooms"))

	rooms, err := s.svc.ListClassrooms(ctx)
	if err != nil {
		return nil, s.toStatus(log, err)
	}
	out := make([]any, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, classroomFields(r))
	}
	log.Debug("classrooms listed", slog.Int("count", len(out)))
	return newStruct(log, map[string]any{"classrooms": out})
}

func (s *SchedulingServer) GetClassroom(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "GetClassroom"))

	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	room, err := s.svc.GetClassroom(ctx, stringField(req, "name"))
	if err != nil {
		return nil, s.toStatus(log, err)
	}
	return newStruct(log, classroomFields(room))
}

func (s *SchedulingServer) DeleteClassroom(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "DeleteClassroom"))

	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if err := s.svc.DeleteClassroom(ctx, stringField(req, "name")); err != nil {
		return nil, s.toStatus(log, err)
	}
	return newStruct(log, map[string]any{"msg": "Deleted"})
}

func (s *SchedulingServer) AddClass(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "AddClass"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	session, err := s.svc.AddClass(ctx, scheduling.AddClassInput{
		ClassID:   stringField(req, "class_id"),
		Name:      stringField(req, "name"),
		Teacher:   stringField(req, "teacher"),
		RoomName:  stringField(req, "room_name"),
		Day:       stringField(req, "day"),
		StartTime: stringField(req, "start_time"),
		EndTime:   stringField(req, "end_time"),
	})
	if err != nil {
		return nil, s.toStatus(log, err)
	}
	return newStruct(log, classFields(session))
}

func (s *SchedulingServer) ListClasses(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "ListClasses"))

	var filter scheduling.ClassFilter
	if req != nil {
		filter = scheduling.ClassFilter{Room: stringField(req, "room"), Day: stringField(req, "day")}
	}
	classes, err := s.svc.ListClasses(ctx, filter)
	if err != nil {
		return nil, s.toStatus(log, err)
	}
	out := make([]any, 0, len(classes))
	for _, c := range classes {
		out = append(out, classFields(c))
	}
	log.Debug("classes listed",
		slog.String("room", filter.Room),
		slog.String("day", filter.Day),
		slog.Int("count", len(out)),
	)
	return newStruct(log, map[string]any{"classes": out})
}

func (s *SchedulingServer) GetClass(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "GetClass"))

	id, err := idField(req)
	if err != nil {
		return nil, err
	}
	session, err := s.svc.GetClass(ctx, id)
	if err != nil {
		return nil, s.toStatus(log, err)
	}
	return newStruct(log, classFields(session))
}

func (s *SchedulingServer) DeleteClass(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "DeleteClass"))

	id, err := idField(req)
	if err != nil {
		return nil, err
	}
	if err := s.svc.DeleteClass(ctx, id); err != nil {
		return nil, s.toStatus(log, err)
	}
	return newStruct(log, map[string]any{"msg": "Deleted"})
}

func (s *SchedulingServer) GetStats(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "GetStats"))

	stats, err := s.svc.Stats(ctx)
	if err != nil {
		return nil, s.toStatus(log, err)
	}
	return newStruct(log, map[string]any{
		"totalClasses":    stats.TotalClasses,
		"totalClassrooms": stats.TotalClassrooms,
	})
}

func (s *SchedulingServer) toStatus(log *slog.Logger, err error) error {
	var (
		vErr   *scheduling.ValidationError
		dupErr *scheduling.DuplicateNameError
		cErr   *scheduling.ConflictError
		nfErr  *scheduling.NotFoundError
		useErr *scheduling.RoomInUseError
	)

	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", slog.Any("err", err), slog.String("field", vErr.Field))
		return status.Error(codes.InvalidArgument, vErr.Error())
	case errors.As(err, &dupErr):
		log.Info("duplicate classroom", slog.String("room", dupErr.Name))
		return status.Error(codes.AlreadyExists, dupErr.Error())
	case errors.As(err, &cErr):
		log.Info("class conflict", slog.String("room", cErr.Proposed.RoomName), slog.String("day", cErr.Proposed.Day))
		return status.Error(codes.FailedPrecondition, cErr.Error())
	case errors.As(err, &useErr):
		return status.Error(codes.FailedPrecondition, useErr.Error())
	case errors.As(err, &nfErr):
		return status.Error(codes.NotFound, nfErr.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request cancelled")
	default:
		log.Error("rpc failed", slog.Any("err", err))
		return status.Error(codes.Internal, "internal error")
	}
}

func newStruct(log *slog.Logger, fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		log.Error("encode response failed", slog.Any("err", err))
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func classroomFields(c domain.Classroom) map[string]any {
	return map[string]any{
		"id":        c.ID,
		"name":      c.Name,
		"capacity":  c.Capacity,
		"equipment": c.Equipment,
	}
}

func classFields(c domain.ClassSession) map[string]any {
	return map[string]any{
		"id":         c.ID,
		"class_id":   c.ClassID,
		"name":       c.Name,
		"teacher":    c.Teacher,
		"room_name":  c.RoomName,
		"day":        c.Day,
		"start_time": c.StartTime.String(),
		"end_time":   c.EndTime.String(),
	}
}

func stringField(req *structpb.Struct, name string) string {
	v, ok := req.GetFields()[name]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

// maxExactInt is the largest integer a float64 holds exactly.
const maxExactInt = 1 << 53

// intField reads a whole number. A missing field reads as zero.
func intField(req *structpb.Struct, name string) (int64, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return 0, nil
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum || n.NumberValue != math.Trunc(n.NumberValue) ||
		math.Abs(n.NumberValue) > maxExactInt {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a whole number", name)
	}
	return int64(n.NumberValue), nil
}

func idField(req *structpb.Struct) (int64, error) {
	if req == nil {
		return 0, status.Error(codes.InvalidArgument, "request is required")
	}
	id, err := intField(req, "id")
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, status.Error(codes.InvalidArgument, "id must be a positive integer")
	}
	return id, nil
}
