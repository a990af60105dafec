package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost is the bcrypt work factor for every stored hash.
const PasswordHashCost = 10

// MaxPasswordBytes is the longest password bcrypt accepts, counted in
// bytes of its UTF-8 encoding.
const MaxPasswordBytes = 72

var ErrPasswordMismatch = errors.New("password does not match")

var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("no-such-user-placeholder"), PasswordHashCost)
	if err != nil {
		panic(err)
	}
	return h
})

func GeneratePasswordHash(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	if err != nil {
		return "", err
	}

	return string(hashedPassword), nil
}

// ComparePasswordHash reports ErrPasswordMismatch for a wrong password,
// including one too long to ever have been stored.
func ComparePasswordHash(hashedPassword []byte, password string) error {
	err := bcrypt.CompareHashAndPassword(hashedPassword, []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	// bcrypt ignores everything past the first 72 bytes
	if err == nil && len(password) > MaxPasswordBytes {
		return ErrPasswordMismatch
	}
	return err
}

// CompareDummyHash does the bcrypt work of a failed compare for a user that
// does not exist, so unknown usernames take as long to reject as wrong
// passwords.
func CompareDummyHash(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
}
