package app

import (
	"testing"

	"birthday_reminder_service/internal/domain/group"
	"birthday_reminder_service/internal/domain/member"
	"birthday_reminder_service/internal/domain/notification"
	"birthday_reminder_service/internal/domain/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeUser(id string, role user.Role) *user.User {
	return &user.User{ID: id, FirstName: id, Role: role, IsActive: true}
}

func TestResolveRecipientsHierarchyWalk(t *testing.T) {
	leader := activeUser("leader1", user.RoleUnitLeader)
	leader.SupervisorID = "sup1"
	sup := activeUser("sup1", user.RoleSubLeader)
	admin := activeUser("admin1", user.RoleAdmin)
	unrelated := activeUser("other1", user.RoleUnitLeader)

	m := &member.Member{ID: "m1", BacentaID: "u1"}
	groups := []*group.Group{{ID: "u1", LeaderID: "leader1"}}

	recipients := ResolveRecipients(m, []*user.User{leader, sup, admin, unrelated}, groups, ResolveOptions{})

	require.Len(t, recipients, 3)
	byID := make(map[string]notification.Recipient)
	for _, r := range recipients {
		byID[r.UserID] = r
	}
	assert.Equal(t, notification.RelationshipLeader, byID["leader1"].Relationship)
	assert.Equal(t, notification.RelationshipSupervisor, byID["sup1"].Relationship)
	assert.Equal(t, notification.RelationshipAdmin, byID["admin1"].Relationship)
	assert.NotContains(t, byID, "other1")
}

func TestResolveRecipientsLeaderViaOversightList(t *testing.T) {
	// The group document has no leader recorded, but a user's oversight
	// list still names the bacenta.
	leader := activeUser("leader1", user.RoleUnitLeader)
	leader.LeadsBacentaIDs = []string{"u1"}

	m := &member.Member{ID: "m1", BacentaID: "u1"}
	groups := []*group.Group{{ID: "u1"}}

	recipients := ResolveRecipients(m, []*user.User{leader}, groups, ResolveOptions{})

	require.Len(t, recipients, 1)
	assert.Equal(t, "leader1", recipients[0].UserID)
	assert.Equal(t, notification.RelationshipLeader, recipients[0].Relationship)
}

func TestResolveRecipientsActorForceIncluded(t *testing.T) {
	leader := activeUser("leader1", user.RoleUnitLeader)
	actor := activeUser("admin1", user.RoleAdmin)
	invitee := activeUser("invitee1", user.RoleSubLeader)
	invitee.InvitedByID = "admin1"
	invitee.InviteAccepted = true
	pendingInvitee := activeUser("invitee2", user.RoleSubLeader)
	pendingInvitee.InvitedByID = "admin1"

	m := &member.Member{ID: "m1", BacentaID: "u1"}
	groups := []*group.Group{{ID: "u1", LeaderID: "leader1"}}

	recipients := ResolveRecipients(m, []*user.User{leader, actor, invitee, pendingInvitee}, groups,
		ResolveOptions{ActorID: "admin1"})

	ids := make([]string, 0, len(recipients))
	for _, r := range recipients {
		ids = append(ids, r.UserID)
	}
	assert.ElementsMatch(t, []string{"leader1", "admin1", "invitee1"}, ids)
}

func TestResolveRecipientsDedupLastTagWins(t *testing.T) {
	// A user who is both the member's leader and the triggering admin
	// appears exactly once, tagged with the later relationship.
	both := activeUser("admin1", user.RoleAdmin)
	m := &member.Member{ID: "m1", BacentaID: "u1"}
	groups := []*group.Group{{ID: "u1", LeaderID: "admin1"}}

	recipients := ResolveRecipients(m, []*user.User{both}, groups, ResolveOptions{ActorID: "admin1"})

	require.Len(t, recipients, 1)
	assert.Equal(t, "admin1", recipients[0].UserID)
	assert.Equal(t, notification.RelationshipActor, recipients[0].Relationship)
}

func TestResolveRecipientsInactiveUsersExcluded(t *testing.T) {
	leader := &user.User{ID: "leader1", Role: user.RoleUnitLeader, IsActive: false}
	m := &member.Member{ID: "m1", BacentaID: "u1"}
	groups := []*group.Group{{ID: "u1", LeaderID: "leader1"}}

	recipients := ResolveRecipients(m, []*user.User{leader}, groups, ResolveOptions{})
	assert.Empty(t, recipients)
}

func TestResolveRecipientsEmptyIsNotAnError(t *testing.T) {
	m := &member.Member{ID: "m1", BacentaID: "u-unknown"}
	recipients := ResolveRecipients(m, nil, nil, ResolveOptions{})
	assert.Empty(t, recipients)
}
