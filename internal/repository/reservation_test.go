package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolga/reserva/internal/apperror"
	"github.com/tolga/reserva/internal/model"
)

var base = time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC)

func TestOverlappingRangeScan(t *testing.T) {
	db := testDB(t)
	repo := NewReservationRepository(db)
	dept := seedDepartment(t, db)
	room := seedRoom(t, db, dept.ID)
	other := seedRoom(t, db, dept.ID)
	user := seedUser(t, db, model.RoleUser, &dept.ID)

	// 10:00-12:00 CONFIRMED in the target room.
	held := seedReservation(t, db, room.ID, user.ID, model.StatusConfirmed, base, base.Add(2*time.Hour))
	// Same slot in another room must not count.
	seedReservation(t, db, other.ID, user.ID, model.StatusConfirmed, base, base.Add(2*time.Hour))
	// Cancelled reservations do not occupy the timeline.
	seedReservation(t, db, room.ID, user.ID, model.StatusCancelled, base, base.Add(2*time.Hour))
	// Adjacent slot: [12:00, 13:00) does not overlap [10:00, 12:00).
	seedReservation(t, db, room.ID, user.ID, model.StatusConfirmed, base.Add(2*time.Hour), base.Add(3*time.Hour))

	t.Run("intersecting interval is found", func(t *testing.T) {
		got, err := repo.Overlapping(testCtx, room.ID, base.Add(time.Hour), base.Add(3*time.Hour), nil)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, held.ID, got[0].ID)
	})

	t.Run("touching boundaries do not conflict", func(t *testing.T) {
		got, err := repo.Overlapping(testCtx, room.ID, base.Add(-time.Hour), base, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("excluding id skips the reservation being edited", func(t *testing.T) {
		got, err := repo.Overlapping(testCtx, room.ID, base, base.Add(time.Hour), &held.ID)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("pending reservations occupy the timeline", func(t *testing.T) {
		pending := seedReservation(t, db, room.ID, user.ID, model.StatusPending, base.Add(4*time.Hour), base.Add(5*time.Hour))
		got, err := repo.Overlapping(testCtx, room.ID, base.Add(4*time.Hour), base.Add(6*time.Hour), nil)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, pending.ID, got[0].ID)
	})
}

func TestArchivedRowsInvisible(t *testing.T) {
	db := testDB(t)
	repo := NewReservationRepository(db)
	dept := seedDepartment(t, db)
	room := seedRoom(t, db, dept.ID)
	user := seedUser(t, db, model.RoleUser, &dept.ID)

	res := seedReservation(t, db, room.ID, user.ID, model.StatusFinished, base, base.Add(time.Hour))

	n, err := repo.ArchiveOlderThan(testCtx, base.Add(2*time.Hour),
		[]model.ReservationStatus{model.StatusFinished, model.StatusCancelled}, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetByID(testCtx, res.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	list, total, err := repo.List(testCtx, ReservationFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)

	// A second pass finds nothing left to archive.
	n, err = repo.ArchiveOlderThan(testCtx, base.Add(2*time.Hour),
		[]model.ReservationStatus{model.StatusFinished, model.StatusCancelled}, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestArchiveSkipsActiveAndRecent(t *testing.T) {
	db := testDB(t)
	repo := NewReservationRepository(db)
	dept := seedDepartment(t, db)
	room := seedRoom(t, db, dept.ID)
	user := seedUser(t, db, model.RoleUser, &dept.ID)

	seedReservation(t, db, room.ID, user.ID, model.StatusConfirmed, base, base.Add(time.Hour))
	seedReservation(t, db, room.ID, user.ID, model.StatusFinished, base.Add(48*time.Hour), base.Add(49*time.Hour))

	n, err := repo.ArchiveOlderThan(testCtx, base.Add(2*time.Hour),
		[]model.ReservationStatus{model.StatusFinished, model.StatusCancelled}, base.Add(72*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "active and recently finished reservations stay")
}

func TestDueQueries(t *testing.T) {
	db := testDB(t)
	repo := NewReservationRepository(db)
	dept := seedDepartment(t, db)
	room := seedRoom(t, db, dept.ID)
	user := seedUser(t, db, model.RoleUser, &dept.ID)

	started := seedReservation(t, db, room.ID, user.ID, model.StatusConfirmed, base.Add(-time.Hour), base.Add(time.Hour))
	ended := seedReservation(t, db, room.ID, user.ID, model.StatusInProgress, base.Add(-3*time.Hour), base.Add(-time.Hour))
	seedReservation(t, db, room.ID, user.ID, model.StatusConfirmed, base.Add(time.Hour), base.Add(2*time.Hour))

	dueStart, err := repo.DueForStart(testCtx, base)
	require.NoError(t, err)
	require.Len(t, dueStart, 1)
	assert.Equal(t, started.ID, dueStart[0].ID)

	dueFinish, err := repo.DueForFinish(testCtx, base)
	require.NoError(t, err)
	require.Len(t, dueFinish, 1)
	assert.Equal(t, ended.ID, dueFinish[0].ID)
}

func TestAdvanceStatusIsIdempotent(t *testing.T) {
	db := testDB(t)
	repo := NewReservationRepository(db)
	dept := seedDepartment(t, db)
	room := seedRoom(t, db, dept.ID)
	user := seedUser(t, db, model.RoleUser, &dept.ID)

	res := seedReservation(t, db, room.ID, user.ID, model.StatusConfirmed, base.Add(-time.Hour), base.Add(time.Hour))

	n, err := repo.AdvanceStatus(testCtx, []uint{res.ID}, model.StatusConfirmed, model.StatusInProgress, base)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Re-running the same transition changes nothing.
	n, err = repo.AdvanceStatus(testCtx, []uint{res.ID}, model.StatusConfirmed, model.StatusInProgress, base)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := repo.GetByID(testCtx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)
}

func TestAutoApproveSetsSentinel(t *testing.T) {
	db := testDB(t)
	repo := NewReservationRepository(db)
	dept := seedDepartment(t, db)
	room := seedRoom(t, db, dept.ID)
	user := seedUser(t, db, model.RoleUser, &dept.ID)

	res := seedReservation(t, db, room.ID, user.ID, model.StatusPending, base.Add(48*time.Hour), base.Add(52*time.Hour))

	ok, err := repo.AutoApprove(testCtx, res.ID, base)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByID(testCtx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)
	assert.Nil(t, got.ApprovedBy, "system approval leaves no approver")
	require.NotNil(t, got.ApprovedAt)

	ok, err = repo.AutoApprove(testCtx, res.ID, base)
	require.NoError(t, err)
	assert.False(t, ok, "already confirmed")
}

func TestConfirmedStartingWithinSkipsReminded(t *testing.T) {
	db := testDB(t)
	repo := NewReservationRepository(db)
	reminders := NewReminderRepository(db)
	dept := seedDepartment(t, db)
	room := seedRoom(t, db, dept.ID)
	user := seedUser(t, db, model.RoleUser, &dept.ID)

	soon := seedReservation(t, db, room.ID, user.ID, model.StatusConfirmed, base.Add(3*time.Hour), base.Add(4*time.Hour))
	seedReservation(t, db, room.ID, user.ID, model.StatusConfirmed, base.Add(30*24*time.Hour), base.Add(30*24*time.Hour+time.Hour))

	due, err := repo.ConfirmedStartingWithin(testCtx, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, soon.ID, due[0].ID)

	fresh, err := reminders.Mark(testCtx, soon.ID, base)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = reminders.Mark(testCtx, soon.ID, base)
	require.NoError(t, err)
	assert.False(t, fresh, "marker insert is idempotent")

	due, err = repo.ConfirmedStartingWithin(testCtx, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestNoShows(t *testing.T) {
	db := testDB(t)
	repo := NewReservationRepository(db)
	dept := seedDepartment(t, db)
	room := seedRoom(t, db, dept.ID)
	user := seedUser(t, db, model.RoleUser, &dept.ID)

	missed := seedReservation(t, db, room.ID, user.ID, model.StatusConfirmed, base.Add(-time.Hour), base.Add(time.Hour))
	seedReservation(t, db, room.ID, user.ID, model.StatusConfirmed, base.Add(-10*time.Minute), base.Add(time.Hour))

	got, err := repo.NoShows(testCtx, base, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, missed.ID, got[0].ID)
}

func TestListFiltersAndPaginates(t *testing.T) {
	db := testDB(t)
	repo := NewReservationRepository(db)
	dept := seedDepartment(t, db)
	room := seedRoom(t, db, dept.ID)
	alice := seedUser(t, db, model.RoleUser, &dept.ID)
	bob := seedUser(t, db, model.RoleUser, &dept.ID)

	for i := 0; i < 3; i++ {
		start := base.Add(time.Duration(i) * 2 * time.Hour)
		seedReservation(t, db, room.ID, alice.ID, model.StatusConfirmed, start, start.Add(time.Hour))
	}
	seedReservation(t, db, room.ID, bob.ID, model.StatusPending, base.Add(10*time.Hour), base.Add(11*time.Hour))

	byUser, total, err := repo.List(testCtx, ReservationFilter{UserID: &alice.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, byUser, 3)

	pending := model.StatusPending
	byStatus, total, err := repo.List(testCtx, ReservationFilter{Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, byStatus, 1)
	assert.Equal(t, bob.ID, byStatus[0].UserID)

	page, total, err := repo.List(testCtx, ReservationFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, page, 2)
}
