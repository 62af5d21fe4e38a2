package dto

import (
	"time"

	"github.com/xl-support/helpdesk/internal/domain"
	"github.com/xl-support/helpdesk/internal/service"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ToInput converts the payload for the auth service.
func (r LoginRequest) ToInput() service.LoginInput {
	return service.LoginInput{Email: r.Email, Password: r.Password}
}

// SignUpRequest payload for self-registration.
type SignUpRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Name            string `json:"name"`
}

// ToInput converts the payload for the auth service.
func (r SignUpRequest) ToInput() service.SignUpInput {
	return service.SignUpInput{
		Email:           r.Email,
		Password:        r.Password,
		ConfirmPassword: r.ConfirmPassword,
		Name:            r.Name,
	}
}

// UpdateUserRequest is an admin patch. Absent keys stay untouched.
type UpdateUserRequest struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Password   *string `json:"password"`
	Role       *string `json:"role"`
	Department *string `json:"department"`
	Specialty  *string `json:"specialty"`
	StaffID    *string `json:"staffId"`
}

// ToInput converts the payload for the auth service.
func (r UpdateUserRequest) ToInput() service.UserUpdateInput {
	return service.UserUpdateInput{
		Name:       r.Name,
		Email:      r.Email,
		Password:   r.Password,
		Role:       r.Role,
		Department: r.Department,
		Specialty:  r.Specialty,
		StaffID:    r.StaffID,
	}
}

// UserResponse is the public view of an account. It has no password field.
type UserResponse struct {
	ID         int64       `json:"id"`
	Email      string      `json:"email"`
	Name       string      `json:"name"`
	Role       domain.Role `json:"role"`
	Department string      `json:"department"`
	Specialty  *string     `json:"specialty"`
	StaffID    string      `json:"staffId"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// NewUserResponse maps a user record.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       u.Role,
		Department: u.EffectiveDepartment(),
		Specialty:  u.Specialty,
		StaffID:    u.EffectiveStaffID(),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// NewUserListResponse maps a user listing; never nil.
func NewUserListResponse(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}

// SessionResponse carries the bearer token for subsequent requests.
type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthResponse is a user plus the session opened for it.
type AuthResponse struct {
	UserResponse
	Session SessionResponse `json:"session"`
}

// NewAuthResponse maps a login or signup result.
func NewAuthResponse(res *service.AuthResult) AuthResponse {
	return AuthResponse{
		UserResponse: NewUserResponse(res.User),
		Session: SessionResponse{
			Token:     res.Session.Token,
			ExpiresAt: res.Session.ExpiresAt,
		},
	}
}

// UserLogResponse is one sign-in record.
type UserLogResponse struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"userId"`
	StaffID     string     `json:"staffId"`
	Department  string     `json:"department"`
	Activity    string     `json:"activity"`
	SignInTime  time.Time  `json:"signInTime"`
	SignOutTime *time.Time `json:"signOutTime"`
}

// NewUserLogListResponse maps a log listing; never nil.
func NewUserLogListResponse(logs []domain.UserLog) []UserLogResponse {
	out := make([]UserLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, UserLogResponse{
			ID:          l.ID,
			UserID:      l.UserID,
			StaffID:     l.StaffID,
			Department:  l.Department,
			Activity:    l.Activity,
			SignInTime:  l.SignInTime,
			SignOutTime: l.SignOutTime,
		})
	}
	return out
}
