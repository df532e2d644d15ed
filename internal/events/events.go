// Package events describes the domain events emitted after schedule changes
// and the publishers that deliver them.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"schoolsched/internal/domain"
)

type Type string

const (
	ClassroomCreated Type = "classroom.created"
	ClassroomDeleted Type = "classroom.deleted"
	ClassScheduled   Type = "class.scheduled"
	ClassDeleted     Type = "class.deleted"
)

type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type ClassroomData struct {
	Name      string `json:"name"`
	Capacity  int    `json:"capacity,omitempty"`
	Equipment string `json:"equipment,omitempty"`
}

type ClassData struct {
	ID        int64  `json:"id"`
	ClassID   string `json:"class_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Teacher   string `json:"teacher,omitempty"`
	RoomName  string `json:"room_name,omitempty"`
	Day       string `json:"day,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
}

func New(t Type, data any) Event {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return Event{
		ID:         id,
		Type:       t,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

func ClassroomCreatedEvent(room domain.Classroom) Event {
	return New(ClassroomCreated, ClassroomData{
		Name:      room.Name,
		Capacity:  room.Capacity,
		Equipment: room.Equipment,
	})
}

func ClassroomDeletedEvent(name string) Event {
	return New(ClassroomDeleted, ClassroomData{Name: name})
}

func ClassScheduledEvent(s domain.ClassSession) Event {
	return New(ClassScheduled, ClassData{
		ID:        s.ID,
		ClassID:   s.ClassID,
		Name:      s.Name,
		Teacher:   s.Teacher,
		RoomName:  s.RoomName,
		Day:       s.Day,
		StartTime: s.StartTime.String(),
		EndTime:   s.EndTime.String(),
	})
}

func ClassDeletedEvent(id int64) Event {
	return New(ClassDeleted, ClassData{ID: id})
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
