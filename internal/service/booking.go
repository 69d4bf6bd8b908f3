package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/tolga/reserva/internal/apperror"
	"github.com/tolga/reserva/internal/clock"
	"github.com/tolga/reserva/internal/lock"
	"github.com/tolga/reserva/internal/model"
	"github.com/tolga/reserva/internal/policy"
	"github.com/tolga/reserva/internal/repository"
)

// transientRetries is how often a transient persistence failure is retried
// inside the critical section before surfacing STORAGE_UNAVAILABLE.
const transientRetries = 2

// minCancelNotice is how long before the start a non-privileged actor may
// still cancel.
const minCancelNotice = 2 * time.Hour

// reservationStoreForBooking is the coordinator's view of the reservation
// store. WithTx scopes the mutating calls to the booking transaction.
type reservationStoreForBooking interface {
	GetByID(ctx context.Context, id uint) (*model.Reservation, error)
	List(ctx context.Context, f repository.ReservationFilter) ([]model.Reservation, int64, error)
	WithTx(tx *gorm.DB) *repository.ReservationRepository
}

// roomStoreForBooking is the coordinator's view of the room store.
type roomStoreForBooking interface {
	GetByID(ctx context.Context, id uint) (*model.Room, error)
	WithTx(tx *gorm.DB) *repository.RoomRepository
}

// userLookupForBooking resolves requesters, actors and approvers.
type userLookupForBooking interface {
	GetByID(ctx context.Context, id uint) (*model.User, error)
}

// BookingService is the booking coordinator: it orchestrates create, update,
// cancel, approve and reject, holds the per-room critical section and emits
// events. All state changes go through the reservation store inside a
// transaction.
type BookingService struct {
	db           *gorm.DB
	reservations reservationStoreForBooking
	rooms        roomStoreForBooking
	users        userLookupForBooking
	locks        *lock.RoomLock
	clk          clock.Clock
	calendar     *clock.Calendar
	notifier     Notifier
	logger       zerolog.Logger
}

// NewBookingService creates the booking coordinator.
func NewBookingService(
	db *gorm.DB,
	reservations reservationStoreForBooking,
	rooms roomStoreForBooking,
	users userLookupForBooking,
	locks *lock.RoomLock,
	clk clock.Clock,
	calendar *clock.Calendar,
	notifier Notifier,
	logger zerolog.Logger,
) *BookingService {
	return &BookingService{
		db:           db,
		reservations: reservations,
		rooms:        rooms,
		users:        users,
		locks:        locks,
		clk:          clk,
		calendar:     calendar,
		notifier:     notifier,
		logger:       logger.With().Str("component", "booking").Logger(),
	}
}

// CreateReservationInput is the command to create a reservation.
type CreateReservationInput struct {
	RoomID      uint
	UserID      uint
	Title       string
	Description string
	StartAt     time.Time
	EndAt       time.Time
}

// UpdateReservationInput carries a partial update. Nil fields are unchanged.
type UpdateReservationInput struct {
	Title       *string
	Description *string
	StartAt     *time.Time
	EndAt       *time.Time
}

// Create runs the booking algorithm: policy first (no lock, no write), then
// conflict re-check and insert inside the room's critical section.
func (s *BookingService) Create(ctx context.Context, input CreateReservationInput) (*model.Reservation, error) {
	if err := validateTitle(input.Title, input.Description); err != nil {
		return nil, err
	}
	if !input.EndAt.After(input.StartAt) {
		return nil, apperror.Validation("endAt must be after startAt")
	}

	requester, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	room, err := s.rooms.GetByID(ctx, input.RoomID)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	if v := policy.Validate(requester, room, input.StartAt, input.EndAt, now, s.calendar); v != nil {
		return nil, policyError(v)
	}

	var created *model.Reservation
	err = s.withRoomTx(ctx, room.ID, func(tx *gorm.DB) error {
		txRooms := s.rooms.WithTx(tx)
		txReservations := s.reservations.WithTx(tx)

		// The room may have been deactivated since the policy check.
		current, err := txRooms.GetByID(ctx, room.ID)
		if err != nil {
			return err
		}
		if current.Status != model.RoomActive {
			return policyError(&policy.Violation{
				Code:    policy.RoomInactive,
				Message: "room is no longer active",
			})
		}

		conflicts, err := txReservations.Overlapping(ctx, room.ID, input.StartAt, input.EndAt, nil)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return apperror.Conflict(reservationIDs(conflicts))
		}

		res := &model.Reservation{
			RoomID:      room.ID,
			UserID:      requester.ID,
			Title:       input.Title,
			Description: input.Description,
			StartAt:     input.StartAt,
			EndAt:       input.EndAt,
			Status:      policy.InitialStatus(requester.Role, input.EndAt.Sub(input.StartAt)),
		}
		if res.Status == model.StatusConfirmed {
			res.ApprovedBy = &requester.ID
			approvedAt := now
			res.ApprovedAt = &approvedAt
		}
		if err := txReservations.Create(ctx, res); err != nil {
			return err
		}
		created = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Uint("reservation_id", created.ID).
		Uint("room_id", created.RoomID).
		Str("status", string(created.Status)).
		Msg("reservation created")
	s.notifier.ReservationCreated(ctx, created)
	if created.Status == model.StatusConfirmed {
		s.notifier.ReservationConfirmed(ctx, created)
	}
	return created, nil
}

// Get retrieves a reservation.
func (s *BookingService) Get(ctx context.Context, id uint) (*model.Reservation, error) {
	return s.reservations.GetByID(ctx, id)
}

// List returns reservations matching the filter plus the unpaged total.
func (s *BookingService) List(ctx context.Context, f repository.ReservationFilter) ([]model.Reservation, int64, error) {
	return s.reservations.List(ctx, f)
}

// Update applies a partial update. When a non-privileged actor changes the
// interval, the reservation is fully re-validated, returns to PENDING and
// loses its approval.
func (s *BookingService) Update(ctx context.Context, id, actorID uint, input UpdateReservationInput) (*model.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status.Terminal() {
		return nil, apperror.TerminalState(string(res.Status))
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.ID != res.UserID && !actor.Role.CanModerate() {
		return nil, apperror.Forbidden("only the requester or a manager may update this reservation")
	}

	newStart, newEnd := res.StartAt, res.EndAt
	if input.StartAt != nil {
		newStart = *input.StartAt
	}
	if input.EndAt != nil {
		newEnd = *input.EndAt
	}
	timesChanged := !newStart.Equal(res.StartAt) || !newEnd.Equal(res.EndAt)

	if input.Title != nil || input.Description != nil {
		title, desc := res.Title, res.Description
		if input.Title != nil {
			title = *input.Title
		}
		if input.Description != nil {
			desc = *input.Description
		}
		if err := validateTitle(title, desc); err != nil {
			return nil, err
		}
	}

	if timesChanged {
		if !newEnd.After(newStart) {
			return nil, apperror.Validation("endAt must be after startAt")
		}
		owner, err := s.users.GetByID(ctx, res.UserID)
		if err != nil {
			return nil, err
		}
		room, err := s.rooms.GetByID(ctx, res.RoomID)
		if err != nil {
			return nil, err
		}
		if v := policy.Validate(owner, room, newStart, newEnd, s.clk.Now(), s.calendar); v != nil {
			return nil, policyError(v)
		}
	}

	var updated *model.Reservation
	err = s.withRoomTx(ctx, res.RoomID, func(tx *gorm.DB) error {
		txReservations := s.reservations.WithTx(tx)

		current, err := txReservations.GetByIDLocked(ctx, id)
		if err != nil {
			return err
		}
		if current.Status.Terminal() {
			return apperror.TerminalState(string(current.Status))
		}

		if timesChanged {
			// The room may have been deactivated since the policy check.
			room, err := s.rooms.WithTx(tx).GetByID(ctx, current.RoomID)
			if err != nil {
				return err
			}
			if room.Status != model.RoomActive {
				return policyError(&policy.Violation{
					Code:    policy.RoomInactive,
					Message: "room is no longer active",
				})
			}

			conflicts, err := txReservations.Overlapping(ctx, current.RoomID, newStart, newEnd, &current.ID)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return apperror.Conflict(reservationIDs(conflicts))
			}
			current.StartAt = newStart
			current.EndAt = newEnd
			if !actor.Role.CanModerate() {
				current.Status = model.StatusPending
				current.ApprovedBy = nil
				current.ApprovedAt = nil
			}
		}
		if input.Title != nil {
			current.Title = *input.Title
		}
		if input.Description != nil {
			current.Description = *input.Description
		}
		if err := txReservations.Update(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Uint("reservation_id", updated.ID).Bool("rescheduled", timesChanged).Msg("reservation updated")
	return updated, nil
}

// Cancel moves a PENDING or CONFIRMED reservation to CANCELLED. Privileged
// actors may cancel at any time; the requester only with enough notice.
// Cancellation after the start requires a reason.
func (s *BookingService) Cancel(ctx context.Context, id, actorID uint, reason string) error {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := cancellableFrom(res.Status); err != nil {
		return err
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if actor.ID != res.UserID && !actor.Role.CanModerate() {
		return apperror.Forbidden("only the requester or a manager may cancel this reservation")
	}

	now := s.clk.Now()
	if !actor.Role.CanModerate() && res.StartAt.Sub(now) < minCancelNotice {
		return apperror.Forbidden("cancellations require at least 2h notice")
	}
	if !now.Before(res.StartAt) && reason == "" {
		return apperror.Validation("cancelling a started reservation requires a reason")
	}

	var cancelled *model.Reservation
	err = s.withRoomTx(ctx, res.RoomID, func(tx *gorm.DB) error {
		txReservations := s.reservations.WithTx(tx)
		current, err := txReservations.GetByIDLocked(ctx, id)
		if err != nil {
			return err
		}
		if err := cancellableFrom(current.Status); err != nil {
			return err
		}
		current.Status = model.StatusCancelled
		current.CancellationReason = reason
		if err := txReservations.Update(ctx, current); err != nil {
			return err
		}
		cancelled = current
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().Uint("reservation_id", cancelled.ID).Uint("actor_id", actorID).Msg("reservation cancelled")
	s.notifier.ReservationCancelled(ctx, cancelled)
	return nil
}

// Approve confirms a PENDING reservation after re-checking conflicts.
// Approving an already CONFIRMED reservation is a no-op.
func (s *BookingService) Approve(ctx context.Context, id, approverID uint) (*model.Reservation, error) {
	approver, err := s.users.GetByID(ctx, approverID)
	if err != nil {
		return nil, err
	}
	if !approver.Role.CanModerate() {
		return nil, apperror.Forbidden("approval requires the ADMIN or MANAGER role")
	}

	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status == model.StatusConfirmed {
		return res, nil
	}
	if res.Status != model.StatusPending {
		return nil, apperror.TerminalState(string(res.Status))
	}

	now := s.clk.Now()
	var approved *model.Reservation
	err = s.withRoomTx(ctx, res.RoomID, func(tx *gorm.DB) error {
		txReservations := s.reservations.WithTx(tx)
		current, err := txReservations.GetByIDLocked(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == model.StatusConfirmed {
			approved = current
			return nil
		}
		if current.Status != model.StatusPending {
			return apperror.TerminalState(string(current.Status))
		}

		conflicts, err := txReservations.Overlapping(ctx, current.RoomID, current.StartAt, current.EndAt, &current.ID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return apperror.Conflict(reservationIDs(conflicts))
		}

		current.Status = model.StatusConfirmed
		current.ApprovedBy = &approver.ID
		approvedAt := now
		current.ApprovedAt = &approvedAt
		if err := txReservations.Update(ctx, current); err != nil {
			return err
		}
		approved = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Uint("reservation_id", approved.ID).Uint("approver_id", approverID).Msg("reservation approved")
	s.notifier.ReservationConfirmed(ctx, approved)
	return approved, nil
}

// Reject cancels a PENDING reservation with a mandatory reason.
func (s *BookingService) Reject(ctx context.Context, id, approverID uint, reason string) (*model.Reservation, error) {
	if reason == "" {
		return nil, apperror.Validation("rejection requires a reason")
	}
	approver, err := s.users.GetByID(ctx, approverID)
	if err != nil {
		return nil, err
	}
	if !approver.Role.CanModerate() {
		return nil, apperror.Forbidden("rejection requires the ADMIN or MANAGER role")
	}

	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status.Terminal() {
		return nil, apperror.TerminalState(string(res.Status))
	}
	if res.Status != model.StatusPending {
		return nil, apperror.Validation("only pending reservations can be rejected")
	}

	var rejected *model.Reservation
	err = s.withRoomTx(ctx, res.RoomID, func(tx *gorm.DB) error {
		txReservations := s.reservations.WithTx(tx)
		current, err := txReservations.GetByIDLocked(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != model.StatusPending {
			return apperror.Validation("only pending reservations can be rejected")
		}
		current.Status = model.StatusCancelled
		current.CancellationReason = reason
		if err := txReservations.Update(ctx, current); err != nil {
			return err
		}
		rejected = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Uint("reservation_id", rejected.ID).Uint("approver_id", approverID).Msg("reservation rejected")
	s.notifier.ReservationRejected(ctx, rejected)
	return rejected, nil
}

// withRoomTx runs fn inside the room's critical section and a transaction,
// retrying transient persistence failures at most twice.
func (s *BookingService) withRoomTx(ctx context.Context, roomID uint, fn func(tx *gorm.DB) error) error {
	release, err := s.locks.Acquire(ctx, roomID)
	if err != nil {
		return err
	}
	defer release()

	return retryTransient(ctx, func(ctx context.Context) error {
		return repository.WithinTransaction(ctx, s.db, fn)
	})
}

// retryTransient runs op, retrying transient persistence failures at most
// twice before surfacing them as STORAGE_UNAVAILABLE. Typed errors and other
// failures return on the first attempt.
func retryTransient(ctx context.Context, op func(context.Context) error) error {
	backoff := retry.WithMaxRetries(transientRetries, retry.NewConstant(50*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		if err != nil && repository.IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	return mapStorageError(err)
}

// mapStorageError translates low-level failures into the typed kinds the
// API layer understands. Typed errors pass through untouched.
func mapStorageError(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperror.Error
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.DeadlineExceeded("awaiting the booking transaction")
	}
	if repository.IsTransient(err) {
		return apperror.StorageUnavailable(err)
	}
	return err
}

// cancellableFrom gates the CANCELLED transition: only PENDING and CONFIRMED
// may be cancelled. Terminal states surface as such; IN_PROGRESS is not
// terminal and gets its own message.
func cancellableFrom(status model.ReservationStatus) error {
	switch {
	case status == model.StatusPending || status == model.StatusConfirmed:
		return nil
	case status.Terminal():
		return apperror.TerminalState(string(status))
	default:
		return apperror.Validation("a reservation in progress cannot be cancelled")
	}
}

// policyError maps a policy violation onto the error taxonomy. Department
// scoping is an authorization failure; everything else is a policy failure.
func policyError(v *policy.Violation) *apperror.Error {
	if v.Code == policy.CrossDepartmentForbidden {
		return apperror.Forbidden(v.Message).
			WithDetails(map[string]any{"violation": string(v.Code)})
	}
	return apperror.PolicyViolation(string(v.Code), v.Message)
}

func validateTitle(title, description string) error {
	if n := utf8.RuneCountInString(title); n < 3 || n > 100 {
		return apperror.Validation("title must be between 3 and 100 characters")
	}
	if utf8.RuneCountInString(description) > 500 {
		return apperror.Validation("description must be at most 500 characters")
	}
	return nil
}

func reservationIDs(list []model.Reservation) []uint {
	ids := make([]uint, 0, len(list))
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	return ids
}
