package users

import "time"

// Account is the backend side of a user: the public record plus credentials and verification state.
type Account struct {
	User         User
	PasswordHash string
	Verified     bool
	OTP          string
	OTPExpiresAt time.Time
	CreatedAt    time.Time
}

type AccountRepo interface {
	Upsert(account *Account) error
	Delete(email string) error
	GetByEmail(email string) (*Account, error)
	GetByID(ID string) (*Account, error)
	SetVerified(email string, verified bool) error
}
