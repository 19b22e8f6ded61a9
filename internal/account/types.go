package account

import (
	"regexp"
	"time"
)

// usernamePattern allows alphanumerics, dots, hyphens and underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// IsValidUsername checks if a username meets format requirements.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// User owns devices and receives their alarm notifications.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	PushToken string    `json:"pushToken,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CanReceivePush reports whether a push token is registered.
func (u *User) CanReceivePush() bool {
	return u != nil && u.PushToken != ""
}
