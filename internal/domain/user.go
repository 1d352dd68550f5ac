package domain

import (
	"strconv"
	"time"
)

const (
	RoleDealer    = "dealer"
	RoleSalesExec = "sales_exec"
)

type User struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Identity is the string form of the user id used in chat payloads and room ids.
func (u User) Identity() string {
	return FormatIdentity(u.ID)
}

func FormatIdentity(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// CounterpartRole is the role a user chats with: dealers talk to sales executives and
// the other way round.
func CounterpartRole(role string) string {
	switch role {
	case RoleDealer:
		return RoleSalesExec
	case RoleSalesExec:
		return RoleDealer
	default:
		return ""
	}
}

func ValidRole(role string) bool {
	return role == RoleDealer || role == RoleSalesExec
}
