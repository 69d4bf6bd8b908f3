package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tolga/reserva/internal/apperror"
	"github.com/tolga/reserva/internal/model"
)

// ReservationFilter narrows reservation listings.
type ReservationFilter struct {
	Status *model.ReservationStatus
	RoomID *uint
	UserID *uint
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// ReservationRepository handles reservation persistence, including the
// conflict-index read path.
type ReservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository creates a new ReservationRepository.
func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// WithTx returns a copy of the repository bound to tx, for use inside the
// booking transaction.
func (r *ReservationRepository) WithTx(tx *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: tx}
}

// notArchived excludes tombstoned rows from every read path.
func notArchived(db *gorm.DB) *gorm.DB {
	return db.Where("archived_at IS NULL")
}

// Create persists a new reservation.
func (r *ReservationRepository) Create(ctx context.Context, res *model.Reservation) error {
	return r.db.WithContext(ctx).Create(res).Error
}

// GetByID retrieves a reservation, excluding archived rows.
func (r *ReservationRepository) GetByID(ctx context.Context, id uint) (*model.Reservation, error) {
	var res model.Reservation
	err := notArchived(r.db.WithContext(ctx)).First(&res, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("reservation")
		}
		return nil, err
	}
	return &res, nil
}

// GetByIDLocked retrieves a reservation with a row lock for update. Only
// meaningful inside a transaction.
func (r *ReservationRepository) GetByIDLocked(ctx context.Context, id uint) (*model.Reservation, error) {
	var res model.Reservation
	err := notArchived(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})).
		First(&res, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("reservation")
		}
		return nil, err
	}
	return &res, nil
}

// Update saves all fields of the reservation.
func (r *ReservationRepository) Update(ctx context.Context, res *model.Reservation) error {
	return r.db.WithContext(ctx).Save(res).Error
}

// List returns reservations matching the filter plus the unpaged total.
func (r *ReservationRepository) List(ctx context.Context, f ReservationFilter) ([]model.Reservation, int64, error) {
	q := notArchived(r.db.WithContext(ctx).Model(&model.Reservation{}))
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.RoomID != nil {
		q = q.Where("room_id = ?", *f.RoomID)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.From != nil {
		q = q.Where("end_at > ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("start_at < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	var out []model.Reservation
	err := q.Order("start_at ASC").Limit(limit).Offset(f.Offset).Find(&out).Error
	return out, total, err
}

// ListPending returns all reservations awaiting approval.
func (r *ReservationRepository) ListPending(ctx context.Context) ([]model.Reservation, error) {
	var out []model.Reservation
	err := notArchived(r.db.WithContext(ctx)).
		Where("status = ?", model.StatusPending).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// Overlapping is the conflict-index read path: a single range scan over
// (room_id, start_at, end_at, status) returning active reservations whose
// interval intersects [start, end). excluding supports edits.
func (r *ReservationRepository) Overlapping(ctx context.Context, roomID uint, start, end time.Time, excluding *uint) ([]model.Reservation, error) {
	q := notArchived(r.db.WithContext(ctx)).
		Where("room_id = ? AND start_at < ? AND end_at > ? AND status IN ?",
			roomID, end, start, model.ActiveStatuses)
	if excluding != nil {
		q = q.Where("id <> ?", *excluding)
	}
	var out []model.Reservation
	err := q.Order("start_at ASC").Find(&out).Error
	return out, err
}

// HasActiveForRoom reports whether any active reservation references the room.
// Room deletion is refused while this holds.
func (r *ReservationRepository) HasActiveForRoom(ctx context.Context, roomID uint) (bool, error) {
	var count int64
	err := notArchived(r.db.WithContext(ctx).Model(&model.Reservation{})).
		Where("room_id = ? AND status IN ?", roomID, model.ActiveStatuses).
		Count(&count).Error
	return count > 0, err
}

// DueForStart returns CONFIRMED reservations whose interval contains now.
func (r *ReservationRepository) DueForStart(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	var out []model.Reservation
	err := notArchived(r.db.WithContext(ctx)).
		Where("status = ? AND start_at <= ? AND end_at > ?", model.StatusConfirmed, now, now).
		Find(&out).Error
	return out, err
}

// DueForFinish returns IN_PROGRESS reservations that have ended.
func (r *ReservationRepository) DueForFinish(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	var out []model.Reservation
	err := notArchived(r.db.WithContext(ctx)).
		Where("status = ? AND end_at <= ?", model.StatusInProgress, now).
		Find(&out).Error
	return out, err
}

// PendingCreatedBefore returns PENDING reservations created at or before the
// cutoff, candidates for auto-approval.
func (r *ReservationRepository) PendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]model.Reservation, error) {
	var out []model.Reservation
	err := notArchived(r.db.WithContext(ctx)).
		Where("status = ? AND created_at <= ?", model.StatusPending, cutoff).
		Find(&out).Error
	return out, err
}

// ConfirmedStartingWithin returns CONFIRMED reservations starting in
// (after, until] that have no reminder marker yet.
func (r *ReservationRepository) ConfirmedStartingWithin(ctx context.Context, after, until time.Time) ([]model.Reservation, error) {
	var out []model.Reservation
	err := notArchived(r.db.WithContext(ctx)).
		Where("status = ? AND start_at > ? AND start_at <= ?", model.StatusConfirmed, after, until).
		Where("NOT EXISTS (SELECT 1 FROM reminder_markers WHERE reminder_markers.reservation_id = reservations.id)").
		Find(&out).Error
	return out, err
}

// NoShows returns CONFIRMED reservations that started at least grace ago and
// have not ended, meaning the tick never advanced them to IN_PROGRESS.
func (r *ReservationRepository) NoShows(ctx context.Context, now time.Time, grace time.Duration) ([]model.Reservation, error) {
	var out []model.Reservation
	err := notArchived(r.db.WithContext(ctx)).
		Where("status = ? AND start_at <= ? AND end_at > ?", model.StatusConfirmed, now.Add(-grace), now).
		Find(&out).Error
	return out, err
}

// AdvanceStatus moves the given reservations to newStatus, re-checking the
// from-status predicate so the update is idempotent across ticks. Returns
// the number of rows changed.
func (r *ReservationRepository) AdvanceStatus(ctx context.Context, ids []uint, from, to model.ReservationStatus, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := notArchived(r.db.WithContext(ctx).Model(&model.Reservation{})).
		Where("id IN ? AND status = ?", ids, from).
		Updates(touchUpdatedAt(map[string]any{"status": to}, now))
	return res.RowsAffected, res.Error
}

// AutoApprove confirms a PENDING reservation on behalf of the system:
// approved_by stays NULL (the auto-approval sentinel) with approved_at set.
// The status predicate keeps repeated ticks from double-applying.
func (r *ReservationRepository) AutoApprove(ctx context.Context, id uint, now time.Time) (bool, error) {
	res := notArchived(r.db.WithContext(ctx).Model(&model.Reservation{})).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(touchUpdatedAt(map[string]any{
			"status":      model.StatusConfirmed,
			"approved_by": nil,
			"approved_at": now,
		}, now))
	return res.RowsAffected > 0, res.Error
}

// ArchiveOlderThan tombstones terminal reservations that ended at or before
// the cutoff. Returns the number of rows archived.
func (r *ReservationRepository) ArchiveOlderThan(ctx context.Context, cutoff time.Time, statuses []model.ReservationStatus, now time.Time) (int64, error) {
	res := notArchived(r.db.WithContext(ctx).Model(&model.Reservation{})).
		Where("end_at <= ? AND status IN ?", cutoff, statuses).
		Updates(touchUpdatedAt(map[string]any{"archived_at": now}, now))
	return res.RowsAffected, res.Error
}
