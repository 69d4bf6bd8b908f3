package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tolga/reserva/internal/model"
)

// testDB opens a fresh in-memory database per test. cache=shared keeps the
// schema alive across the pooled connections.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := Open("sqlite", dsn, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, role model.Role, dept *uint) *model.User {
	t.Helper()
	user := &model.User{
		Name:         "Ana",
		Surname:      "Souza",
		Email:        fmt.Sprintf("%s@example.edu", uuid.NewString()),
		PasswordHash: "x",
		Role:         role,
		DepartmentID: dept,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedDepartment(t *testing.T, db *gorm.DB) *model.Department {
	t.Helper()
	dept := &model.Department{
		Name: "Engineering",
		Code: "ENG-" + uuid.NewString()[:8],
	}
	require.NoError(t, db.Create(dept).Error)
	return dept
}

func seedRoom(t *testing.T, db *gorm.DB, deptID uint) *model.Room {
	t.Helper()
	room := &model.Room{
		Code:         "R-" + uuid.NewString()[:8],
		Name:         "Lab",
		Capacity:     20,
		DepartmentID: deptID,
		Status:       model.RoomActive,
	}
	require.NoError(t, db.Create(room).Error)
	return room
}

func seedReservation(t *testing.T, db *gorm.DB, roomID, userID uint, status model.ReservationStatus, start, end time.Time) *model.Reservation {
	t.Helper()
	res := &model.Reservation{
		RoomID:  roomID,
		UserID:  userID,
		Title:   "Team sync",
		StartAt: start,
		EndAt:   end,
		Status:  status,
	}
	require.NoError(t, db.Create(res).Error)
	return res
}

var testCtx = context.Background()
