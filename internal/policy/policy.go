// Package policy holds the pure admission rules for candidate reservations.
// Nothing here touches the store or the wall clock; callers pass snapshots
// and the current instant in.
package policy

import (
	"fmt"
	"time"

	"github.com/tolga/reserva/internal/clock"
	"github.com/tolga/reserva/internal/model"
	"github.com/tolga/reserva/internal/timeutil"
)

// Duration and notice bounds.
const (
	MinDuration = 30 * time.Minute
	MaxDuration = 8 * time.Hour
	MinNotice   = 2 * time.Hour
	MaxNotice   = 30 * 24 * time.Hour

	// AutoConfirmMaxDuration is the longest reservation a non-privileged
	// user gets confirmed without approval.
	AutoConfirmMaxDuration = 2 * time.Hour
)

// ViolationCode identifies which rule a candidate reservation broke.
type ViolationCode string

// Violation codes, in check order.
const (
	RoomInactive             ViolationCode = "ROOM_INACTIVE"
	StartInPast              ViolationCode = "START_IN_PAST"
	NoticeTooShort           ViolationCode = "NOTICE_TOO_SHORT"
	NoticeTooLong            ViolationCode = "NOTICE_TOO_LONG"
	DurationOutOfRange       ViolationCode = "DURATION_OUT_OF_RANGE"
	CrossesMidnight          ViolationCode = "CROSSES_MIDNIGHT"
	OutsideBusinessHours     ViolationCode = "OUTSIDE_BUSINESS_HOURS"
	CrossDepartmentForbidden ViolationCode = "CROSS_DEPARTMENT_FORBIDDEN"
)

// Violation is a structured policy failure.
type Violation struct {
	Code    ViolationCode
	Message string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Code, v.Message)
}

func violationf(code ViolationCode, format string, args ...any) *Violation {
	return &Violation{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validate runs the admission checks in order and returns the first failure,
// or nil when the candidate is admissible.
func Validate(requester *model.User, room *model.Room, start, end, now time.Time, cal *clock.Calendar) *Violation {
	if room.Status != model.RoomActive {
		return violationf(RoomInactive, "room %s is %s", room.Code, room.Status)
	}
	if !start.After(now) {
		return violationf(StartInPast, "start must be in the future")
	}
	notice := start.Sub(now)
	if notice < MinNotice {
		return violationf(NoticeTooShort, "reservations require at least %s notice", MinNotice)
	}
	if notice > MaxNotice {
		return violationf(NoticeTooLong, "reservations may be made at most 30 days ahead")
	}
	duration := end.Sub(start)
	if duration < MinDuration || duration > MaxDuration {
		return violationf(DurationOutOfRange, "duration must be between %s and %s", MinDuration, MaxDuration)
	}
	if !timeutil.SameLocalDate(start, end, cal.Location()) {
		return violationf(CrossesMidnight, "reservation must start and end on the same day")
	}
	if !cal.Open(start) {
		return violationf(OutsideBusinessHours, "room is closed on the requested day")
	}
	if !cal.WithinWindow(start, end) {
		return violationf(OutsideBusinessHours, "interval falls outside business hours")
	}
	if !requester.Role.Privileged() {
		if requester.DepartmentID == nil || *requester.DepartmentID != room.DepartmentID {
			return violationf(CrossDepartmentForbidden, "room belongs to another department")
		}
	}
	return nil
}

// InitialStatus decides the status of a freshly created reservation.
// Privileged roles are confirmed immediately; others are confirmed only for
// short reservations (at most 2h) and queue as PENDING otherwise.
func InitialStatus(role model.Role, duration time.Duration) model.ReservationStatus {
	if role.Privileged() {
		return model.StatusConfirmed
	}
	if duration <= AutoConfirmMaxDuration {
		return model.StatusConfirmed
	}
	return model.StatusPending
}
