package devserver

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrMismatchedPassword is returned when a password does not match its hash.
var ErrMismatchedPassword = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(goerrors.CodeUnauthorized)

// HashPassword will generate a password hash
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", goerrors.New("password must not be empty", goerrors.CategoryBadInput)
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedPassword
		}
		return err
	}
	return nil
}

// randomPasswordHash is used for accounts that can not log in with a password.
func randomPasswordHash(cost int) string {
	h, err := HashPassword(uuid.NewString(), cost)
	if err != nil {
		return ""
	}
	return h
}
