package auth

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleReception, RoleProfessional:
		return true
	}
	return false
}
