package domain

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// ClassSession is one scheduled meeting of a class in a room on a day.
type ClassSession struct {
	bun.BaseModel `bun:"table:classes"`

	ID        int64     `bun:"id,pk,autoincrement"`
	ClassID   string    `bun:"class_id,notnull"`
	Name      string    `bun:"name,notnull"`
	Teacher   string    `bun:"teacher,notnull"`
	RoomName  string    `bun:"room_name,notnull"`
	Day       string    `bun:"day,notnull"`
	StartTime TimeOfDay `bun:"start_minute,notnull"`
	EndTime   TimeOfDay `bun:"end_minute,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (s *ClassSession) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (s ClassSession) Interval() Interval {
	return Interval{Start: s.StartTime, End: s.EndTime}
}
