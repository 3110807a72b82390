package user

import (
	"strings"
	"time"
)

// Role is the hierarchy role a user holds within a church.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleUnitLeader Role = "unit-leader"
	RoleSubLeader  Role = "sub-leader"
)

// User is a recipient candidate: someone who may be entitled to receive
// birthday reminders about members under their oversight.
type User struct {
	ID              string
	ChurchID        string
	Email           string // optional; empty means no email channel for this user
	FirstName       string
	LastName        string
	Role            Role
	LeadsBacentaIDs []string // bacentas this user directly leads
	SupervisorID    string   // user overseeing this leader, if any
	InvitedByID     string   // admin who invited this user, if any
	InviteAccepted  bool
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.ID
	}
	return name
}

// Leads reports whether the user directly leads the given bacenta.
func (u *User) Leads(bacentaID string) bool {
	for _, id := range u.LeadsBacentaIDs {
		if id == bacentaID {
			return true
		}
	}
	return false
}
