package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Role is the coarse authorization tag carried by every user.
type Role string

const (
	RoleSupportAgent Role = "SupportAgent"
	RoleAdmin        Role = "Admin"
)

// DefaultDepartment is assigned to users that never picked one.
const DefaultDepartment = "Support"

// ParseRole maps a wire value onto a Role. The spaced spelling used by the
// legacy store is accepted.
func ParseRole(raw string) (Role, error) {
	switch strings.TrimSpace(raw) {
	case string(RoleSupportAgent), "Support Agent":
		return RoleSupportAgent, nil
	case string(RoleAdmin):
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Valid reports whether r is one of the closed role variants.
func (r Role) Valid() bool {
	switch r {
	case RoleSupportAgent, RoleAdmin:
		return true
	default:
		return false
	}
}

// RoleForEmail grants Admin when the local part of the address contains
// "admin". The match is case-sensitive.
func RoleForEmail(email string) Role {
	local := email
	if at := strings.LastIndex(email, "@"); at >= 0 {
		local = email[:at]
	}
	if strings.Contains(local, "admin") {
		return RoleAdmin
	}
	return RoleSupportAgent
}

// User is a helpdesk account. PasswordHash never leaves the service layer.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         string
	Role         Role
	Department   string
	Specialty    *string
	StaffID      *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user holds the Admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// EffectiveStaffID returns the stored staff identifier or the fallback derived
// from the numeric id.
func (u *User) EffectiveStaffID() string {
	if u.StaffID != nil && *u.StaffID != "" {
		return *u.StaffID
	}
	return FallbackStaffID(u.ID)
}

// EffectiveDepartment returns the department, defaulting to Support.
func (u *User) EffectiveDepartment() string {
	if u.Department != "" {
		return u.Department
	}
	return DefaultDepartment
}

// FallbackStaffID renders XL followed by the id zero-padded to six digits.
func FallbackStaffID(id int64) string {
	return fmt.Sprintf("XL%06d", id)
}

// StaffIDFromTime renders XL followed by the last six digits of the unix
// millisecond timestamp. Concurrent signups within the same millisecond (or
// a million milliseconds apart) collide.
func StaffIDFromTime(t time.Time) string {
	ms := strconv.FormatInt(t.UnixMilli(), 10)
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return "XL" + ms
}

// UserPatch enumerates the fields an administrator may change. Nil fields are
// left untouched.
type UserPatch struct {
	Name       *string
	Email      *string
	Password   *string
	Role       *Role
	Department *string
	Specialty  *string
	StaffID    *string
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Password == nil && p.Role == nil &&
		p.Department == nil && p.Specialty == nil && p.StaffID == nil
}
