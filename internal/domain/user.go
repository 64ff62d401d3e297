package domain

import "time"

// UserRole enumerates workflow roles.
type UserRole string

const (
	UserRoleRequester  UserRole = "REQUESTER"
	UserRoleTechnician UserRole = "TECHNICIAN"
	UserRoleSupervisor UserRole = "SUPERVISOR"
	UserRoleAdmin      UserRole = "ADMIN"
)

// User is anyone who files, works on or oversees tickets.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
