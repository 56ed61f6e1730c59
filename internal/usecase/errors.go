package usecase

import (
	"errors"
	"fmt"
	"strings"

	"opd-room-tracker/internal/domain/entity"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

// Error classes. Handlers map these to transport status codes with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrRoomNotSelected = errors.New("doctor has not selected a room for today")
	ErrConflict        = errors.New("conflict")
	ErrInUse           = errors.New("in use")
	ErrNotFound        = errors.New("not found")
	ErrInternal        = errors.New("internal error")
)

var (
	ErrPatientNotFound  = fmt.Errorf("patient %w", ErrNotFound)
	ErrDoctorNotFound   = fmt.Errorf("doctor %w", ErrNotFound)
	ErrRoomNotFound     = fmt.Errorf("room %w", ErrNotFound)
	ErrVisitNotFound    = fmt.Errorf("visit %w", ErrNotFound)
	ErrAuditLogNotFound = fmt.Errorf("audit log %w", ErrNotFound)

	ErrInvalidPatientID      = fmt.Errorf("%w: patient id must be a positive integer", ErrInvalidArgument)
	ErrInvalidDoctorID       = fmt.Errorf("%w: doctor id must be a positive integer", ErrInvalidArgument)
	ErrInvalidRoomID         = fmt.Errorf("%w: room id must be a positive integer", ErrInvalidArgument)
	ErrEmptyRoomIdentifier   = fmt.Errorf("%w: room identifier is required", ErrInvalidArgument)
	ErrInvalidVisitType      = fmt.Errorf("%w: unknown visit type", ErrInvalidArgument)
	ErrRoomIdentifierTaken   = fmt.Errorf("%w: an active room already uses this identifier", ErrConflict)
	ErrRoomIdentifierInUse   = fmt.Errorf("%w: identifier belongs to an inactive room that is still referenced", ErrConflict)
	ErrVisitSlotTaken        = fmt.Errorf("%w: patient already has a visit on this date", ErrConflict)
	ErrVisitAlreadyCompleted = fmt.Errorf("%w: visit is already completed", ErrConflict)
)

// RoomInUseError blocks a room deletion and tells the caller what still points at the room.
type RoomInUseError struct {
	Identifier string
	References entity.RoomReferences
	// Forceable is false when today's activity references the room; force cannot override that.
	Forceable bool
}

func (e *RoomInUseError) Error() string {
	var parts []string
	if n := len(e.References.PatientsToday); n > 0 {
		parts = append(parts, fmt.Sprintf("%d patient(s) today: %s", n, strings.Join(e.References.PatientsToday, ", ")))
	}
	if e.References.OccupyingDoctor != "" {
		parts = append(parts, "occupied today by "+e.References.OccupyingDoctor)
	}
	if e.References.AssignedPatients > 0 {
		parts = append(parts, fmt.Sprintf("%d assigned patient(s)", e.References.AssignedPatients))
	}
	if e.References.Visits > 0 {
		parts = append(parts, fmt.Sprintf("%d visit(s)", e.References.Visits))
	}
	if e.References.DoctorsWithRoomSet > 0 {
		parts = append(parts, fmt.Sprintf("%d doctor selection(s)", e.References.DoctorsWithRoomSet))
	}
	return fmt.Sprintf("room %s is in use: %s", e.Identifier, strings.Join(parts, "; "))
}

func (e *RoomInUseError) Is(target error) bool {
	return target == ErrInUse
}

// internalError wraps a storage failure so callers can tell it apart from business outcomes.
func internalError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}

// isUniqueViolation reports a PostgreSQL unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// businessError reports errors that are expected outcomes rather than failures.
func businessError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrRoomNotSelected) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInUse) ||
		errors.Is(err, ErrNotFound)
}

// logFailure logs infrastructure failures only; business outcomes are returned quietly.
func logFailure(log *logrus.Logger, op string, err error) {
	if businessError(err) {
		return
	}
	log.Warnf("Failed to %s: %+v", op, err)
}
