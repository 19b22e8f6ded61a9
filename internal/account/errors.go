package account

import "errors"

var (
	// ErrUserNotFound is returned when a user ID or username does not exist.
	ErrUserNotFound = errors.New("account: user not found")

	// ErrUsernameExists is returned when creating a user whose username is taken.
	ErrUsernameExists = errors.New("account: username already exists")

	// ErrInvalidUsername is returned when a username fails format checks.
	ErrInvalidUsername = errors.New("account: invalid username")
)
