package notification

import "birthday_reminder_service/internal/domain/user"

// Relationship tags why a recipient is entitled to a reminder about a
// specific member.
type Relationship string

const (
	RelationshipLeader     Relationship = "leader"     // leads the member's bacenta
	RelationshipSupervisor Relationship = "supervisor" // oversees that leader
	RelationshipAdmin      Relationship = "admin"      // tenant-wide admin
	RelationshipActor      Relationship = "actor"      // admin who triggered the run
	RelationshipInvitee    Relationship = "invitee"    // accepted invite of the acting admin
)

// Recipient is a resolved user entitled to receive a reminder about one
// member's birthday.
type Recipient struct {
	UserID       string
	Email        string
	DisplayName  string
	Role         user.Role
	Relationship Relationship
}
