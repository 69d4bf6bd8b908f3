package model

import "time"

// Role is the authorization level of a user.
type Role string

// User roles, from most to least privileged.
const (
	RoleAdmin        Role = "ADMIN"
	RoleManager      Role = "MANAGER"
	RoleAdvancedUser Role = "ADVANCED_USER"
	RoleUser         Role = "USER"
	RoleGuest        Role = "GUEST"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleAdvancedUser, RoleUser, RoleGuest:
		return true
	}
	return false
}

// Privileged reports whether the role bypasses the approval queue.
func (r Role) Privileged() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleAdvancedUser:
		return true
	}
	return false
}

// CanModerate reports whether the role may approve, reject or cancel on
// behalf of other users.
func (r Role) CanModerate() bool {
	return r == RoleAdmin || r == RoleManager
}

// User is an account that can request reservations.
type User struct {
	ID           uint      `gorm:"primaryKey"`
	Name         string    `gorm:"size:100;not null"`
	Surname      string    `gorm:"size:100;not null"`
	Email        string    `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	Role         Role      `gorm:"size:20;not null;default:USER"`
	DepartmentID *uint     `gorm:"index"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}
