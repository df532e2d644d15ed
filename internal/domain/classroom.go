package domain

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

type Classroom struct {
	bun.BaseModel `bun:"table:classrooms"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Name      string    `bun:"name,notnull,unique"`
	Capacity  int       `bun:"capacity,notnull"`
	Equipment string    `bun:"equipment,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (c *Classroom) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}
