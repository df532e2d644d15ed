package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"schoolsched/internal/domain"
	"schoolsched/internal/store"
)

var _ store.Gateway = (*Store)(nil)

type Store struct {
	db       *bun.DB
	advisory bool
	slots    *keyedMutex
}

func New(db *bun.DB) *Store {
	return &Store{
		db:       db,
		advisory: db.Dialect().Name() == dialect.PG,
		slots:    newKeyedMutex(),
	}
}

type slotTx struct {
	tx bun.Tx
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ListClassrooms(ctx context.Context) ([]domain.Classroom, error) {
	rows := make([]domain.Classroom, 0)
	err := s.db.NewSelect().
		Model(&rows).
		OrderExpr("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, storageError("list classrooms", err)
	}
	return rows, nil
}

func (s *Store) GetClassroom(ctx context.Context, name string) (domain.Classroom, error) {
	var room domain.Classroom
	err := s.db.NewSelect().
		Model(&room).
		Where("name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Classroom{}, store.ErrNotFound
		}
		return domain.Classroom{}, storageError("get classroom", err)
	}
	return room, nil
}

func (s *Store) AddClassroom(ctx context.Context, room domain.Classroom) (domain.Classroom, error) {
	m := room
	m.ID = 0

	_, err := s.db.NewInsert().Model(&m).Returning("id").Exec(ctx)
	if err != nil {
		if classifyConstraint(err) == constraintUnique {
			return domain.Classroom{}, store.ErrDuplicateName
		}
		return domain.Classroom{}, storageError("add classroom", err)
	}
	return m, nil
}

func (s *Store) DeleteClassroom(ctx context.Context, name string) (bool, error) {
	res, err := s.db.NewDelete().
		Model((*domain.Classroom)(nil)).
		Where("name = ?", name).
		Exec(ctx)
	if err != nil {
		if classifyConstraint(err) == constraintForeignKey {
			return false, store.ErrRoomInUse
		}
		return false, storageError("delete classroom", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storageError("delete classroom", err)
	}
	return affected > 0, nil
}

func (s *Store) ListClasses(ctx context.Context) ([]domain.ClassSession, error) {
	rows := make([]domain.ClassSession, 0)
	err := s.db.NewSelect().
		Model(&rows).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, storageError("list classes", err)
	}
	return rows, nil
}

func (s *Store) FindClasses(ctx context.Context, roomName, day string) ([]domain.ClassSession, error) {
	return findClasses(ctx, s.db, roomName, day)
}

func (s *Store) GetClass(ctx context.Context, id int64) (domain.ClassSession, error) {
	var session domain.ClassSession
	err := s.db.NewSelect().
		Model(&session).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ClassSession{}, store.ErrNotFound
		}
		return domain.ClassSession{}, storageError("get class", err)
	}
	return session, nil
}

func (s *Store) AddClass(ctx context.Context, session domain.ClassSession) (domain.ClassSession, error) {
	return insertClass(ctx, s.db, session)
}

func (s *Store) DeleteClass(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.NewDelete().
		Model((*domain.ClassSession)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return false, storageError("delete class", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storageError("delete class", err)
	}
	return affected > 0, nil
}

func (s *Store) CountClasses(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*domain.ClassSession)(nil)).Count(ctx)
	if err != nil {
		return 0, storageError("count classes", err)
	}
	return n, nil
}

func (s *Store) CountClassrooms(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*domain.Classroom)(nil)).Count(ctx)
	if err != nil {
		return 0, storageError("count classrooms", err)
	}
	return n, nil
}

func (t slotTx) ClassroomExists(ctx context.Context, name string) (bool, error) {
	ok, err := t.tx.NewSelect().
		Model((*domain.Classroom)(nil)).
		Where("name = ?", name).
		Exists(ctx)
	if err != nil {
		return false, storageError("classroom exists", err)
	}
	return ok, nil
}

func (t slotTx) FindClasses(ctx context.Context, roomName, day string) ([]domain.ClassSession, error) {
	return findClasses(ctx, t.tx, roomName, day)
}

func (t slotTx) AddClass(ctx context.Context, session domain.ClassSession) (domain.ClassSession, error) {
	return insertClass(ctx, t.tx, session)
}

func findClasses(ctx context.Context, db bun.IDB, roomName, day string) ([]domain.ClassSession, error) {
	rows := make([]domain.ClassSession, 0)
	q := db.NewSelect().Model(&rows)
	if roomName != "" {
		q = q.Where("room_name = ?", roomName)
	}
	if day != "" {
		q = q.Where("day = ?", day)
	}
	if err := q.OrderExpr("start_minute ASC, id ASC").Scan(ctx); err != nil {
		return nil, storageError("find classes", err)
	}
	return rows, nil
}

func insertClass(ctx context.Context, db bun.IDB, session domain.ClassSession) (domain.ClassSession, error) {
	m := session
	m.ID = 0

	_, err := db.NewInsert().Model(&m).Returning("id").Exec(ctx)
	if err != nil {
		switch classifyConstraint(err) {
		case constraintExclusion:
			return domain.ClassSession{}, store.ErrConflict
		case constraintForeignKey:
			return domain.ClassSession{}, store.ErrUnknownRoom
		}
		return domain.ClassSession{}, storageError("add class", err)
	}
	return m, nil
}
