package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolga/reserva/internal/apperror"
	"github.com/tolga/reserva/internal/model"
)

func TestRoomUniqueCode(t *testing.T) {
	db := testDB(t)
	repo := NewRoomRepository(db)
	dept := seedDepartment(t, db)

	room := &model.Room{Code: "LAB-101", Name: "Lab", Capacity: 10, DepartmentID: dept.ID, Status: model.RoomActive}
	require.NoError(t, repo.Create(testCtx, room))

	dup := &model.Room{Code: "LAB-101", Name: "Other", Capacity: 5, DepartmentID: dept.ID, Status: model.RoomActive}
	err := repo.Create(testCtx, dup)
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestRoomAvailable(t *testing.T) {
	db := testDB(t)
	repo := NewRoomRepository(db)
	dept := seedDepartment(t, db)
	user := seedUser(t, db, model.RoleUser, &dept.ID)

	free := seedRoom(t, db, dept.ID)
	busy := seedRoom(t, db, dept.ID)
	inactive := seedRoom(t, db, dept.ID)
	require.NoError(t, db.Model(inactive).Update("status", model.RoomInactive).Error)

	start := base
	end := base.Add(2 * time.Hour)
	seedReservation(t, db, busy.ID, user.ID, model.StatusConfirmed, start.Add(time.Hour), start.Add(3*time.Hour))

	rooms, err := repo.Available(testCtx, start, end, nil, nil)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, free.ID, rooms[0].ID)

	t.Run("cancelled reservations free the slot", func(t *testing.T) {
		require.NoError(t, db.Model(&model.Reservation{}).
			Where("room_id = ?", busy.ID).
			Update("status", model.StatusCancelled).Error)
		rooms, err := repo.Available(testCtx, start, end, nil, nil)
		require.NoError(t, err)
		assert.Len(t, rooms, 2)
	})

	t.Run("capacity filter", func(t *testing.T) {
		capacity := 50
		rooms, err := repo.Available(testCtx, start, end, nil, &capacity)
		require.NoError(t, err)
		assert.Empty(t, rooms)
	})
}

func TestUserEmailCaseInsensitive(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	dept := seedDepartment(t, db)

	user := &model.User{Name: "Ana", Surname: "Souza", Email: "Ana.Souza@Example.edu", PasswordHash: "x", Role: model.RoleUser, DepartmentID: &dept.ID}
	require.NoError(t, repo.Create(testCtx, user))
	assert.Equal(t, "ana.souza@example.edu", user.Email)

	found, err := repo.GetByEmail(testCtx, "ANA.SOUZA@example.EDU")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	dup := &model.User{Name: "Ana", Surname: "Souza", Email: "ana.souza@example.edu", PasswordHash: "x", Role: model.RoleUser}
	err = repo.Create(testCtx, dup)
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestDepartmentHasRooms(t *testing.T) {
	db := testDB(t)
	repo := NewDepartmentRepository(db)
	dept := seedDepartment(t, db)

	has, err := repo.HasRooms(testCtx, dept.ID)
	require.NoError(t, err)
	assert.False(t, has)

	seedRoom(t, db, dept.ID)
	has, err = repo.HasRooms(testCtx, dept.ID)
	require.NoError(t, err)
	assert.True(t, has)
}
