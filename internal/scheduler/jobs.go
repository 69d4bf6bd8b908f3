package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tolga/reserva/internal/clock"
	"github.com/tolga/reserva/internal/lock"
	"github.com/tolga/reserva/internal/model"
	"github.com/tolga/reserva/internal/repository"
	"github.com/tolga/reserva/internal/service"
)

// Job names, also the keys of the durable job store.
const (
	JobAdvanceStatuses = "advanceStatuses"
	JobAutoApprove     = "autoApprove"
	JobDetectNoShows   = "detectNoShows"
	JobArchiveOld      = "archiveOld"
	JobSendReminders   = "sendReminders"
)

// noShowGrace is how long after the start a CONFIRMED reservation counts as
// a no-show.
const noShowGrace = 30 * time.Minute

// reminderWindow is how far ahead reminders are emitted.
const reminderWindow = 24 * time.Hour

// Jobs implements the periodic maintenance tasks. Scan queries run outside
// the per-room critical section; mutations of a specific room's reservations
// take its lock first.
type Jobs struct {
	reservations *repository.ReservationRepository
	reminders    *repository.ReminderRepository
	locks        *lock.RoomLock
	clk          clock.Clock
	notifier     service.Notifier
	logger       zerolog.Logger

	autoApproveAfter time.Duration
	archiveAfter     time.Duration
}

// NewJobs wires the maintenance tasks.
func NewJobs(
	reservations *repository.ReservationRepository,
	reminders *repository.ReminderRepository,
	locks *lock.RoomLock,
	clk clock.Clock,
	notifier service.Notifier,
	logger zerolog.Logger,
	autoApproveAfter, archiveAfter time.Duration,
) *Jobs {
	if autoApproveAfter <= 0 {
		autoApproveAfter = 24 * time.Hour
	}
	if archiveAfter <= 0 {
		archiveAfter = 90 * 24 * time.Hour
	}
	return &Jobs{
		reservations:     reservations,
		reminders:        reminders,
		locks:            locks,
		clk:              clk,
		notifier:         notifier,
		logger:           logger.With().Str("component", "scheduler").Logger(),
		autoApproveAfter: autoApproveAfter,
		archiveAfter:     archiveAfter,
	}
}

// byRoom groups reservations by room so mutations can take one lock at a
// time.
func byRoom(list []model.Reservation) map[uint][]uint {
	grouped := make(map[uint][]uint)
	for _, r := range list {
		grouped[r.RoomID] = append(grouped[r.RoomID], r.ID)
	}
	return grouped
}

// AdvanceStatuses moves CONFIRMED reservations into IN_PROGRESS once their
// interval contains now, and IN_PROGRESS into FINISHED once it has passed.
// The status predicates make re-runs within the same tick no-ops.
func (j *Jobs) AdvanceStatuses(ctx context.Context) (map[string]any, error) {
	now := j.clk.Now()

	var started, finished int64
	due, err := j.reservations.DueForStart(ctx, now)
	if err != nil {
		return nil, err
	}
	for roomID, ids := range byRoom(due) {
		n, err := j.advanceRoom(ctx, roomID, ids, model.StatusConfirmed, model.StatusInProgress, now)
		if err != nil {
			return nil, err
		}
		started += n
	}

	ended, err := j.reservations.DueForFinish(ctx, now)
	if err != nil {
		return nil, err
	}
	for roomID, ids := range byRoom(ended) {
		n, err := j.advanceRoom(ctx, roomID, ids, model.StatusInProgress, model.StatusFinished, now)
		if err != nil {
			return nil, err
		}
		finished += n
	}

	return map[string]any{"started": started, "finished": finished}, nil
}

func (j *Jobs) advanceRoom(ctx context.Context, roomID uint, ids []uint, from, to model.ReservationStatus, now time.Time) (int64, error) {
	release, err := j.locks.Acquire(ctx, roomID)
	if err != nil {
		return 0, err
	}
	defer release()
	return j.reservations.AdvanceStatus(ctx, ids, from, to, now)
}

// AutoApprove confirms reservations left PENDING beyond the configured
// window. The approver stays NULL, marking system approval. No conflict
// re-check is needed: a pending reservation already holds its slot against
// the conflict index.
func (j *Jobs) AutoApprove(ctx context.Context) (map[string]any, error) {
	now := j.clk.Now()
	due, err := j.reservations.PendingCreatedBefore(ctx, now.Add(-j.autoApproveAfter))
	if err != nil {
		return nil, err
	}

	var approved int64
	for roomID, ids := range byRoom(due) {
		release, err := j.locks.Acquire(ctx, roomID)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			ok, err := j.reservations.AutoApprove(ctx, id, now)
			if err != nil {
				release()
				return nil, err
			}
			if ok {
				approved++
				if res, err := j.reservations.GetByID(ctx, id); err == nil {
					j.notifier.ReservationConfirmed(ctx, res)
				}
			}
		}
		release()
	}
	return map[string]any{"approved": approved}, nil
}

// DetectNoShows reports CONFIRMED reservations that never started. They are
// logged and emitted on the notification port; no status change is applied.
func (j *Jobs) DetectNoShows(ctx context.Context) (map[string]any, error) {
	now := j.clk.Now()
	noShows, err := j.reservations.NoShows(ctx, now, noShowGrace)
	if err != nil {
		return nil, err
	}
	for i := range noShows {
		res := &noShows[i]
		j.logger.Warn().
			Uint("reservation_id", res.ID).
			Uint("room_id", res.RoomID).
			Time("start_at", res.StartAt).
			Msg("no-show detected")
		j.notifier.NoShowDetected(ctx, res)
	}
	return map[string]any{"noShows": len(noShows)}, nil
}

// ArchiveOld tombstones FINISHED and CANCELLED reservations that ended
// beyond the retention window.
func (j *Jobs) ArchiveOld(ctx context.Context) (map[string]any, error) {
	now := j.clk.Now()
	archived, err := j.reservations.ArchiveOlderThan(ctx, now.Add(-j.archiveAfter),
		[]model.ReservationStatus{model.StatusFinished, model.StatusCancelled}, now)
	if err != nil {
		return nil, err
	}
	return map[string]any{"archived": archived}, nil
}

// SendReminders emits ReminderDue for CONFIRMED reservations starting within
// the next 24 hours. The marker row written inside the room's critical
// section guarantees each reservation is reminded once.
func (j *Jobs) SendReminders(ctx context.Context) (map[string]any, error) {
	now := j.clk.Now()
	upcoming, err := j.reservations.ConfirmedStartingWithin(ctx, now, now.Add(reminderWindow))
	if err != nil {
		return nil, err
	}

	var sent int64
	for i := range upcoming {
		res := &upcoming[i]
		release, err := j.locks.Acquire(ctx, res.RoomID)
		if err != nil {
			return nil, err
		}
		fresh, err := j.reminders.Mark(ctx, res.ID, now)
		release()
		if err != nil {
			return nil, err
		}
		if fresh {
			sent++
			j.notifier.ReminderDue(ctx, res)
		}
	}
	return map[string]any{"sent": sent}, nil
}
