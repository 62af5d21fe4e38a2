package domain

import "time"

// Session describes an issued authentication token.
type Session struct {
	ID        string
	UserID    int64
	Role      Role
	LogID     int64
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
