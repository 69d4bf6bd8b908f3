package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/tolga/reserva/internal/apperror"
)

// HashPassword derives a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a candidate password against the stored hash.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return apperror.Unauthenticated("invalid credentials")
	}
	return nil
}
