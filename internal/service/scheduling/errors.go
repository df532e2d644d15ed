package scheduling

import (
	"fmt"

	"schoolsched/internal/domain"
	"schoolsched/internal/store"
)

type ValidationError struct {
	Field string
	msg   string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, msg: fmt.Sprintf(format, args...)}
}

type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("classroom %q already exists", e.Name)
}

func (e *DuplicateNameError) Unwrap() error {
	return store.ErrDuplicateName
}

// ConflictError reports that Proposed overlaps a session already booked in the
// same room and day. Existing is nil when the storage layer caught the overlap
// on its own.
type ConflictError struct {
	Proposed domain.ClassSession
	Existing *domain.ClassSession
}

func (e *ConflictError) Error() string {
	p := e.Proposed
	if e.Existing == nil {
		return fmt.Sprintf("room %s already has a class overlapping %s %s", p.RoomName, p.Day, p.Interval())
	}
	x := e.Existing
	return fmt.Sprintf("room %s is booked on %s %s by class %d (%s, %s)",
		x.RoomName, x.Day, x.Interval(), x.ID, x.ClassID, x.Teacher)
}

func (e *ConflictError) Unwrap() error {
	return store.ErrConflict
}

type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return store.ErrNotFound
}

type RoomInUseError struct {
	Name    string
	Classes int
}

func (e *RoomInUseError) Error() string {
	if e.Classes > 0 {
		return fmt.Sprintf("classroom %q still has %d scheduled classes", e.Name, e.Classes)
	}
	return fmt.Sprintf("classroom %q still has scheduled classes", e.Name)
}

func (e *RoomInUseError) Unwrap() error {
	return store.ErrRoomInUse
}
