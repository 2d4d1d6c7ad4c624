package users

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// User is a registered account. PasswordHash is a bcrypt hash; the raw
// password is never stored.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FullName     string
	Activated    bool
}

// New builds an activated user with the password hashed.
func New(email, password, fullName string) (User, error) {
	if email == "" {
		return User{}, errors.New("users: empty email")
	}
	if password == "" {
		return User{}, errors.New("users: empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
		Activated:    true,
	}, nil
}

// VerifyPassword checks a candidate password against the stored hash.
func (u User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Repository persists user accounts.
type Repository interface {
	// Create stores a new user and assigns its ID.
	Create(ctx context.Context, user *User) error

	// FindActiveByEmail returns the activated user with the given email, or
	// nil when there is none.
	FindActiveByEmail(ctx context.Context, email string) (*User, error)
}
