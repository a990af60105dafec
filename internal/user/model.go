package user

import "time"

type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"` // bcrypt hash, never serialised
	CreatedAt time.Time `json:"created_at"`
}

// PublicUser is the part of a User returned to clients.
type PublicUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username}
}
