package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tolga/reserva/internal/clock"
	"github.com/tolga/reserva/internal/lock"
	"github.com/tolga/reserva/internal/model"
	"github.com/tolga/reserva/internal/repository"
	"github.com/tolga/reserva/internal/service"
)

var jobNow = time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC)

type jobFixture struct {
	db           *gorm.DB
	jobs         *Jobs
	clk          *clock.Fake
	reservations *repository.ReservationRepository
	room         *model.Room
	user         *model.User
}

func newJobFixture(t *testing.T) *jobFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := repository.Open("sqlite", dsn, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))

	dept := &model.Department{Name: "Engineering", Code: "ENG"}
	require.NoError(t, db.Create(dept).Error)
	room := &model.Room{Code: "LAB-101", Name: "Lab", Capacity: 20, DepartmentID: dept.ID, Status: model.RoomActive}
	require.NoError(t, db.Create(room).Error)
	user := &model.User{Name: "Ana", Surname: "Souza", Email: "ana@example.edu", PasswordHash: "x", Role: model.RoleUser, DepartmentID: &dept.ID}
	require.NoError(t, db.Create(user).Error)

	clk := clock.NewFake(jobNow)
	reservations := repository.NewReservationRepository(db)
	jobs := NewJobs(
		reservations,
		repository.NewReminderRepository(db),
		lock.NewRoomLock(),
		clk,
		service.NewLogNotifier(zerolog.Nop()),
		zerolog.Nop(),
		24*time.Hour,
		90*24*time.Hour,
	)
	return &jobFixture{db: db, jobs: jobs, clk: clk, reservations: reservations, room: room, user: user}
}

func (f *jobFixture) seed(t *testing.T, status model.ReservationStatus, start, end time.Time) *model.Reservation {
	t.Helper()
	res := &model.Reservation{
		RoomID:  f.room.ID,
		UserID:  f.user.ID,
		Title:   "Team sync",
		StartAt: start,
		EndAt:   end,
		Status:  status,
	}
	require.NoError(t, f.db.Create(res).Error)
	return res
}

func (f *jobFixture) status(t *testing.T, id uint) model.ReservationStatus {
	t.Helper()
	res, err := f.reservations.GetByID(context.Background(), id)
	require.NoError(t, err)
	return res.Status
}

func TestAdvanceStatusesLifecycle(t *testing.T) {
	f := newJobFixture(t)

	running := f.seed(t, model.StatusConfirmed, jobNow.Add(-30*time.Minute), jobNow.Add(30*time.Minute))
	over := f.seed(t, model.StatusInProgress, jobNow.Add(-2*time.Hour), jobNow.Add(-30*time.Minute))
	future := f.seed(t, model.StatusConfirmed, jobNow.Add(2*time.Hour), jobNow.Add(3*time.Hour))
	pending := f.seed(t, model.StatusPending, jobNow.Add(-30*time.Minute), jobNow.Add(30*time.Minute))

	detail, err := f.jobs.AdvanceStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail["started"])
	assert.Equal(t, int64(1), detail["finished"])

	assert.Equal(t, model.StatusInProgress, f.status(t, running.ID))
	assert.Equal(t, model.StatusFinished, f.status(t, over.ID))
	assert.Equal(t, model.StatusConfirmed, f.status(t, future.ID))
	assert.Equal(t, model.StatusPending, f.status(t, pending.ID), "pending reservations never start")

	// A reservation progresses through both states across ticks.
	f.clk.Advance(time.Hour)
	detail, err = f.jobs.AdvanceStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail["finished"])
	assert.Equal(t, model.StatusFinished, f.status(t, running.ID))
}

func TestAdvanceStatusesRerunIsNoop(t *testing.T) {
	f := newJobFixture(t)
	f.seed(t, model.StatusConfirmed, jobNow.Add(-30*time.Minute), jobNow.Add(30*time.Minute))

	_, err := f.jobs.AdvanceStatuses(context.Background())
	require.NoError(t, err)

	detail, err := f.jobs.AdvanceStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), detail["started"])
	assert.Equal(t, int64(0), detail["finished"])
}

func TestAutoApproveAfterWindow(t *testing.T) {
	f := newJobFixture(t)

	stale := f.seed(t, model.StatusPending, jobNow.Add(48*time.Hour), jobNow.Add(52*time.Hour))
	fresh := f.seed(t, model.StatusPending, jobNow.Add(48*time.Hour), jobNow.Add(52*time.Hour))

	// Age the first one past the auto-approval window.
	require.NoError(t, f.db.Model(&model.Reservation{}).Where("id = ?", stale.ID).
		Update("created_at", jobNow.Add(-25*time.Hour)).Error)
	require.NoError(t, f.db.Model(&model.Reservation{}).Where("id = ?", fresh.ID).
		Update("created_at", jobNow.Add(-time.Hour)).Error)

	detail, err := f.jobs.AutoApprove(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail["approved"])

	got, err := f.reservations.GetByID(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)
	assert.Nil(t, got.ApprovedBy, "auto-approval records no approver")
	require.NotNil(t, got.ApprovedAt)

	assert.Equal(t, model.StatusPending, f.status(t, fresh.ID))

	// Idempotence across ticks.
	detail, err = f.jobs.AutoApprove(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), detail["approved"])
}

func TestSendRemindersOnce(t *testing.T) {
	f := newJobFixture(t)

	soon := f.seed(t, model.StatusConfirmed, jobNow.Add(3*time.Hour), jobNow.Add(4*time.Hour))
	f.seed(t, model.StatusConfirmed, jobNow.Add(48*time.Hour), jobNow.Add(49*time.Hour))
	f.seed(t, model.StatusPending, jobNow.Add(3*time.Hour), jobNow.Add(4*time.Hour))

	detail, err := f.jobs.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail["sent"])

	// The marker keeps later ticks from re-sending.
	detail, err = f.jobs.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), detail["sent"])

	exists, err := repository.NewReminderRepository(f.db).Exists(context.Background(), soon.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDetectNoShows(t *testing.T) {
	f := newJobFixture(t)

	f.seed(t, model.StatusConfirmed, jobNow.Add(-time.Hour), jobNow.Add(time.Hour))
	f.seed(t, model.StatusConfirmed, jobNow.Add(-10*time.Minute), jobNow.Add(time.Hour))
	f.seed(t, model.StatusInProgress, jobNow.Add(-time.Hour), jobNow.Add(time.Hour))

	detail, err := f.jobs.DetectNoShows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, detail["noShows"])
}

func TestArchiveOld(t *testing.T) {
	f := newJobFixture(t)

	old := f.seed(t, model.StatusFinished, jobNow.Add(-100*24*time.Hour), jobNow.Add(-100*24*time.Hour+time.Hour))
	recent := f.seed(t, model.StatusFinished, jobNow.Add(-10*24*time.Hour), jobNow.Add(-10*24*time.Hour+time.Hour))
	oldActive := f.seed(t, model.StatusConfirmed, jobNow.Add(-100*24*time.Hour), jobNow.Add(-100*24*time.Hour+time.Hour))

	detail, err := f.jobs.ArchiveOld(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail["archived"])

	_, err = f.reservations.GetByID(context.Background(), old.ID)
	require.Error(t, err)
	assert.Equal(t, model.StatusFinished, f.status(t, recent.ID))
	assert.Equal(t, model.StatusConfirmed, f.status(t, oldActive.ID))
}

func TestSchedulerRecordsJobRuns(t *testing.T) {
	f := newJobFixture(t)
	runs := repository.NewJobRunRepository(f.db)
	sched := New(time.UTC, runs, f.clk, zerolog.Nop())

	f.seed(t, model.StatusConfirmed, jobNow.Add(-30*time.Minute), jobNow.Add(30*time.Minute))
	sched.RunNow(JobAdvanceStatuses, f.jobs.AdvanceStatuses)

	last, err := runs.LastCompleted(context.Background(), JobAdvanceStatuses)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, model.JobRunSuccess, last.Status)
}
