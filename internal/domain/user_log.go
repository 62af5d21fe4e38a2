package domain

import "time"

// Activity labels recorded in user logs.
const (
	ActivityLogin          = "Login"
	ActivityAccountCreated = "Account Created"
)

// UserLog is an audit record of a sign-in or account creation.
type UserLog struct {
	ID          int64
	UserID      int64
	StaffID     string
	Department  string
	Activity    string
	SignInTime  time.Time
	SignOutTime *time.Time
	CreatedAt   time.Time
}
