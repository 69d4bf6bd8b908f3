package model

import (
	"time"

	"gorm.io/datatypes"
)

// RoomStatus is the administrative state of a room.
type RoomStatus string

// Room statuses. Only ACTIVE rooms accept new reservations.
const (
	RoomActive      RoomStatus = "ACTIVE"
	RoomInactive    RoomStatus = "INACTIVE"
	RoomMaintenance RoomStatus = "MAINTENANCE"
)

// Valid reports whether s is a known room status.
func (s RoomStatus) Valid() bool {
	switch s {
	case RoomActive, RoomInactive, RoomMaintenance:
		return true
	}
	return false
}

// Room is a physical, reservable room.
type Room struct {
	ID           uint           `gorm:"primaryKey"`
	Code         string         `gorm:"size:20;uniqueIndex;not null"`
	Name         string         `gorm:"size:100;not null"`
	Capacity     int            `gorm:"not null"`
	Building     string         `gorm:"size:100"`
	Floor        int            `gorm:"not null;default:0"`
	DepartmentID uint           `gorm:"not null;index"`
	Status       RoomStatus     `gorm:"size:20;not null;default:ACTIVE"`
	Responsible  string         `gorm:"size:200"`
	Description  string         `gorm:"size:500"`
	Amenities    datatypes.JSON `gorm:"type:json"`
	CreatedAt    time.Time      `gorm:"not null"`
	UpdatedAt    time.Time      `gorm:"not null"`
}

// Department groups rooms and users for authorization scoping.
type Department struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:100;not null"`
	Code      string    `gorm:"size:20;uniqueIndex;not null"`
	ManagerID *uint     `gorm:"index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
