package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolga/reserva/internal/apperror"
	"github.com/tolga/reserva/internal/model"
	"github.com/tolga/reserva/internal/repository"
)

func newRoomService(t *testing.T) (*RoomService, *bookingFixture) {
	t.Helper()
	f := newBookingFixture(t)
	svc := NewRoomService(
		repository.NewRoomRepository(f.db),
		repository.NewReservationRepository(f.db),
		repository.NewDepartmentRepository(f.db),
	)
	return svc, f
}

func TestRoomCreateNormalizesCode(t *testing.T) {
	svc, f := newRoomService(t)

	room, err := svc.Create(context.Background(), CreateRoomInput{
		Code:         " lab-202 ",
		Name:         "Physics Lab",
		Capacity:     12,
		DepartmentID: f.dept.ID,
		Amenities:    []string{"projector", "whiteboard"},
	})
	require.NoError(t, err)
	assert.Equal(t, "LAB-202", room.Code)
	assert.Equal(t, model.RoomActive, room.Status)
	assert.NotEmpty(t, room.Amenities)
}

func TestRoomCreateValidation(t *testing.T) {
	svc, f := newRoomService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateRoomInput{Code: "!!", Name: "Bad", Capacity: 5, DepartmentID: f.dept.ID})
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = svc.Create(ctx, CreateRoomInput{Code: "OK-1", Name: "Bad", Capacity: 0, DepartmentID: f.dept.ID})
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = svc.Create(ctx, CreateRoomInput{Code: "OK-1", Name: "Bad", Capacity: 5, DepartmentID: 9999})
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestRoomDeleteRefusedWhileBooked(t *testing.T) {
	svc, f := newRoomService(t)
	ctx := context.Background()

	start := testNow.Add(5 * time.Hour)
	res, err := f.bookings.Create(ctx, f.createInput(start, start.Add(time.Hour)))
	require.NoError(t, err)

	err = svc.Delete(ctx, f.room.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	require.NoError(t, f.bookings.Cancel(ctx, res.ID, f.user.ID, ""))
	require.NoError(t, svc.Delete(ctx, f.room.ID))
}

func TestRoomAvailability(t *testing.T) {
	svc, f := newRoomService(t)
	ctx := context.Background()

	start := testNow.Add(5 * time.Hour)
	res, err := f.bookings.Create(ctx, f.createInput(start, start.Add(time.Hour)))
	require.NoError(t, err)

	busy, err := svc.Availability(ctx, f.room.ID, testNow, testNow.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, busy, 1)
	assert.Equal(t, res.ID, busy[0].ID)

	_, err = svc.Availability(ctx, f.room.ID, testNow.Add(time.Hour), testNow)
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestDepartmentDeleteRefusedWithRooms(t *testing.T) {
	_, f := newRoomService(t)
	svc := NewDepartmentService(repository.NewDepartmentRepository(f.db), repository.NewUserRepository(f.db))
	ctx := context.Background()

	err := svc.Delete(ctx, f.dept.ID)
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	empty, err := svc.Create(ctx, "History", "HIS", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, empty.ID))
}
