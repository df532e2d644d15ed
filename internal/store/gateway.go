package store

import (
	"context"

	"schoolsched/internal/domain"
)

// SlotKey identifies the set of sessions that may conflict with each other.
type SlotKey struct {
	Room string
	Day  string
}

func (k SlotKey) String() string {
	return k.Room + "\x00" + k.Day
}

type Gateway interface {
	ListClassrooms(ctx context.Context) ([]domain.Classroom, error)
	GetClassroom(ctx context.Context, name string) (domain.Classroom, error)
	AddClassroom(ctx context.Context, room domain.Classroom) (domain.Classroom, error)
	DeleteClassroom(ctx context.Context, name string) (bool, error)

	ListClasses(ctx context.Context) ([]domain.ClassSession, error)
	// FindClasses filters by room and day; an empty argument matches any value.
	FindClasses(ctx context.Context, roomName, day string) ([]domain.ClassSession, error)
	GetClass(ctx context.Context, id int64) (domain.ClassSession, error)
	AddClass(ctx context.Context, session domain.ClassSession) (domain.ClassSession, error)
	DeleteClass(ctx context.Context, id int64) (bool, error)

	CountClasses(ctx context.Context) (int, error)
	CountClassrooms(ctx context.Context) (int, error)

	// InSlotTransaction runs fn in a transaction that holds exclusive access to
	// key. An error returned by fn rolls the transaction back and is returned
	// unchanged.
	InSlotTransaction(ctx context.Context, key SlotKey, fn func(ctx context.Context, tx SlotTx) error) error
}

type SlotTx interface {
	ClassroomExists(ctx context.Context, name string) (bool, error)
	FindClasses(ctx context.Context, roomName, day string) ([]domain.ClassSession, error)
	AddClass(ctx context.Context, session domain.ClassSession) (domain.ClassSession, error)
}
