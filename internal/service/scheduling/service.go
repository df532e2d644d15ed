package scheduling

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"schoolsched/internal/domain"
	"schoolsched/internal/events"
	"schoolsched/internal/store"
)

const (
	maxTextLen     = 200
	publishTimeout = 5 * time.Second
)

type Metrics interface {
	ClassScheduled()
	ClassDeleted()
	ScheduleConflict()
	SlotTransaction(d time.Duration)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

type nopMetrics struct{}

func (nopMetrics) ClassScheduled()               {}
func (nopMetrics) ClassDeleted()                 {}
func (nopMetrics) ScheduleConflict()             {}
func (nopMetrics) SlotTransaction(time.Duration) {}

type Service struct {
	gw      store.Gateway
	log     *slog.Logger
	metrics Metrics
	events  EventPublisher
}

type Option func(*Service)

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

func NewService(gw store.Gateway, opts ...Option) *Service {
	s := &Service{
		gw:      gw,
		log:     slog.Default(),
		metrics: nopMetrics{},
		events:  events.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("component", "scheduling"))
	return s
}

type AddClassroomInput struct {
	Name      string
	Capacity  int
	Equipment string
}

type AddClassInput struct {
	ClassID   string
	Name      string
	Teacher   string
	RoomName  string
	Day       string
	StartTime string
	EndTime   string
}

// ClassFilter narrows ListClasses; empty fields match everything.
type ClassFilter struct {
	Room string
	Day  string
}

type Stats struct {
	TotalClasses    int
	TotalClassrooms int
}

func (s *Service) AddClassroom(ctx context.Context, in AddClassroomInput) (domain.Classroom, error) {
	name, err := requiredText("name", in.Name)
	if err != nil {
		return domain.Classroom{}, err
	}
	if in.Capacity < 0 {
		return domain.Classroom{}, validationError("capacity", "capacity must not be negative")
	}
	equipment := strings.TrimSpace(in.Equipment)
	if len(equipment) > 4*maxTextLen {
		return domain.Classroom{}, validationError("equipment", "equipment too long")
	}

	room, err := s.gw.AddClassroom(ctx, domain.Classroom{
		Name:      name,
		Capacity:  in.Capacity,
		Equipment: equipment,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			return domain.Classroom{}, &DuplicateNameError{Name: name}
		}
		return domain.Classroom{}, err
	}

	s.log.Info("classroom added", slog.String("room", room.Name), slog.Int("capacity", room.Capacity))
	s.publish(ctx, events.ClassroomCreatedEvent(room))
	return room, nil
}

func (s *Service) ListClassrooms(ctx context.Context) ([]domain.Classroom, error) {
	return s.gw.ListClassrooms(ctx)
}

func (s *Service) GetClassroom(ctx context.Context, name string) (domain.Classroom, error) {
	name, err := requiredText("name", name)
	if err != nil {
		return domain.Classroom{}, err
	}
	room, err := s.gw.GetClassroom(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Classroom{}, &NotFoundError{Kind: "classroom", Key: strconv.Quote(name)}
		}
		return domain.Classroom{}, err
	}
	return room, nil
}

// DeleteClassroom removes an unused classroom. Deleting an unknown name succeeds.
func (s *Service) DeleteClassroom(ctx context.Context, name string) error {
	name, err := requiredText("name", name)
	if err != nil {
		return err
	}

	booked, err := s.gw.FindClasses(ctx, name, "")
	if err != nil {
		return err
	}
	if len(booked) > 0 {
		return &RoomInUseError{Name: name, Classes: len(booked)}
	}

	deleted, err := s.gw.DeleteClassroom(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrRoomInUse) {
			return &RoomInUseError{Name: name}
		}
		return err
	}
	if deleted {
		s.log.Info("classroom deleted", slog.String("room", name))
		s.publish(ctx, events.ClassroomDeletedEvent(name))
	}
	return nil
}

// AddClass admits a session only if it overlaps no session already booked in
// the same room on the same day. The overlap scan and the insert run in one
// slot transaction, so concurrent bookings of a slot cannot both succeed.
func (s *Service) AddClass(ctx context.Context, in AddClassInput) (domain.ClassSession, error) {
	session, err := validateClass(in)
	if err != nil {
		return domain.ClassSession{}, err
	}

	key := store.SlotKey{Room: session.RoomName, Day: session.Day}
	log := s.log.With(
		slog.String("room", key.Room),
		slog.String("day", key.Day),
		slog.String("start_time", session.StartTime.String()),
		slog.String("end_time", session.EndTime.String()),
	)

	var out domain.ClassSession
	started := time.Now()
	err = s.gw.InSlotTransaction(ctx, key, func(ctx context.Context, tx store.SlotTx) error {
		exists, err := tx.ClassroomExists(ctx, key.Room)
		if err != nil {
			return err
		}
		if !exists {
			return validationError("room_name", "classroom %q does not exist", key.Room)
		}

		booked, err := tx.FindClasses(ctx, key.Room, key.Day)
		if err != nil {
			return err
		}
		if existing, ok := domain.FindConflict(booked, session.Interval()); ok {
			return &ConflictError{Proposed: session, Existing: &existing}
		}

		out, err = tx.AddClass(ctx, session)
		switch {
		case errors.Is(err, store.ErrConflict):
			return &ConflictError{Proposed: session}
		case errors.Is(err, store.ErrUnknownRoom):
			return validationError("room_name", "classroom %q does not exist", key.Room)
		}
		return err
	})
	s.metrics.SlotTransaction(time.Since(started))

	if err != nil {
		var cErr *ConflictError
		if errors.As(err, &cErr) {
			s.metrics.ScheduleConflict()
			attrs := []any{slog.String("class_id", session.ClassID)}
			if cErr.Existing != nil {
				attrs = append(attrs, slog.Int64("conflicting_id", cErr.Existing.ID))
			}
			log.Info("class rejected: slot conflict", attrs...)
		}
		return domain.ClassSession{}, err
	}

	s.metrics.ClassScheduled()
	log.Info("class scheduled", slog.Int64("id", out.ID), slog.String("class_id", out.ClassID))
	s.publish(ctx, events.ClassScheduledEvent(out))
	return out, nil
}

func (s *Service) ListClasses(ctx context.Context, filter ClassFilter) ([]domain.ClassSession, error) {
	room := strings.TrimSpace(filter.Room)
	day := strings.TrimSpace(filter.Day)
	if day != "" {
		normalized, err := domain.NormalizeDay(day)
		if err != nil {
			return nil, validationError("day", "%s", err.Error())
		}
		day = normalized
	}
	if room == "" && day == "" {
		return s.gw.ListClasses(ctx)
	}
	return s.gw.FindClasses(ctx, room, day)
}

func (s *Service) GetClass(ctx context.Context, id int64) (domain.ClassSession, error) {
	if id <= 0 {
		return domain.ClassSession{}, validationError("id", "id must be a positive integer")
	}
	session, err := s.gw.GetClass(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ClassSession{}, &NotFoundError{Kind: "class", Key: strconv.FormatInt(id, 10)}
		}
		return domain.ClassSession{}, err
	}
	return session, nil
}

// DeleteClass is idempotent: removing an id that does not exist succeeds.
func (s *Service) DeleteClass(ctx context.Context, id int64) error {
	if id <= 0 {
		return validationError("id", "id must be a positive integer")
	}
	deleted, err := s.gw.DeleteClass(ctx, id)
	if err != nil {
		return err
	}
	if deleted {
		s.metrics.ClassDeleted()
		s.log.Info("class deleted", slog.Int64("id", id))
		s.publish(ctx, events.ClassDeletedEvent(id))
	}
	return nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	classes, err := s.gw.CountClasses(ctx)
	if err != nil {
		return Stats{}, err
	}
	rooms, err := s.gw.CountClassrooms(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{TotalClasses: classes, TotalClassrooms: rooms}, nil
}

// publish delivers ev after the change is committed. A failure is logged and
// never reported to the caller; a cancelled request still publishes.
func (s *Service) publish(ctx context.Context, ev events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("event publish failed",
			slog.String("event_type", string(ev.Type)),
			slog.String("event_id", ev.ID.String()),
			slog.Any("err", err),
		)
	}
}

func validateClass(in AddClassInput) (domain.ClassSession, error) {
	classID, err := requiredText("class_id", in.ClassID)
	if err != nil {
		return domain.ClassSession{}, err
	}
	name, err := requiredText("name", in.Name)
	if err != nil {
		return domain.ClassSession{}, err
	}
	teacher, err := requiredText("teacher", in.Teacher)
	if err != nil {
		return domain.ClassSession{}, err
	}
	room, err := requiredText("room_name", in.RoomName)
	if err != nil {
		return domain.ClassSession{}, err
	}
	if strings.TrimSpace(in.Day) == "" {
		return domain.ClassSession{}, validationError("day", "day is required")
	}
	day, err := domain.NormalizeDay(in.Day)
	if err != nil {
		return domain.ClassSession{}, validationError("day", "%s", err.Error())
	}

	start, err := parseTime("start_time", in.StartTime)
	if err != nil {
		return domain.ClassSession{}, err
	}
	end, err := parseTime("end_time", in.EndTime)
	if err != nil {
		return domain.ClassSession{}, err
	}
	if end <= start {
		return domain.ClassSession{}, validationError("end_time", "end_time must be after start_time")
	}

	return domain.ClassSession{
		ClassID:   classID,
		Name:      name,
		Teacher:   teacher,
		RoomName:  room,
		Day:       day,
		StartTime: start,
		EndTime:   end,
	}, nil
}

func parseTime(field, value string) (domain.TimeOfDay, error) {
	if strings.TrimSpace(value) == "" {
		return 0, validationError(field, "%s is required", field)
	}
	t, err := domain.ParseTimeOfDay(value)
	if err != nil {
		return 0, validationError(field, "%s: %s", field, err.Error())
	}
	return t, nil
}

func requiredText(field, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", validationError(field, "%s is required", field)
	}
	if len(v) > maxTextLen {
		return "", validationError(field, "%s too long", field)
	}
	return v, nil
}
