package app

import (
	"birthday_reminder_service/internal/domain/group"
	"birthday_reminder_service/internal/domain/member"
	"birthday_reminder_service/internal/domain/notification"
	"birthday_reminder_service/internal/domain/user"
)

// ResolveOptions tweaks recipient resolution for a single run.
type ResolveOptions struct {
	// ActorID is set on manual, admin-triggered runs. The acting admin
	// and their accepted invitees are force-included so the triggering
	// admin always sees the result even when hierarchy data is stale.
	ActorID string
}

// ResolveRecipients maps a member to the deduplicated set of users
// entitled to a reminder about them: the member's bacenta leader, that
// leader's supervisor, every tenant admin, plus the forced set when an
// actor is given. An empty result means "skip", not an error.
func ResolveRecipients(m *member.Member, users []*user.User, groups []*group.Group, opts ResolveOptions) []notification.Recipient {
	byID := make(map[string]*user.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	var memberGroup *group.Group
	for _, g := range groups {
		if g.ID == m.BacentaID {
			memberGroup = g
			break
		}
	}

	collector := newRecipientCollector()

	// Bacenta leaders: the group's recorded leader plus any user whose
	// oversight list names the bacenta (either side may be stale).
	var leaders []*user.User
	if memberGroup != nil && memberGroup.LeaderID != "" {
		if u, ok := byID[memberGroup.LeaderID]; ok {
			leaders = append(leaders, u)
		}
	}
	for _, u := range users {
		if u.Leads(m.BacentaID) {
			leaders = append(leaders, u)
		}
	}
	for _, leader := range leaders {
		collector.add(leader, notification.RelationshipLeader)
		if leader.SupervisorID != "" {
			if sup, ok := byID[leader.SupervisorID]; ok {
				collector.add(sup, notification.RelationshipSupervisor)
			}
		}
	}

	// Tenant admins always hear about every member.
	for _, u := range users {
		if u.Role == user.RoleAdmin {
			collector.add(u, notification.RelationshipAdmin)
		}
	}

	// Forced set for manual runs.
	if opts.ActorID != "" {
		if actor, ok := byID[opts.ActorID]; ok {
			collector.add(actor, notification.RelationshipActor)
			for _, u := range users {
				if u.InvitedByID == actor.ID && u.InviteAccepted {
					collector.add(u, notification.RelationshipInvitee)
				}
			}
		}
	}

	return collector.recipients()
}

// recipientCollector deduplicates by user id, preserving first-seen order
// while letting the last-seen relationship tag win.
type recipientCollector struct {
	order   []string
	entries map[string]notification.Recipient
}

func newRecipientCollector() *recipientCollector {
	return &recipientCollector{entries: make(map[string]notification.Recipient)}
}

func (c *recipientCollector) add(u *user.User, rel notification.Relationship) {
	if !u.IsActive {
		return
	}
	if existing, ok := c.entries[u.ID]; ok {
		existing.Relationship = rel
		c.entries[u.ID] = existing
		return
	}
	c.order = append(c.order, u.ID)
	c.entries[u.ID] = notification.Recipient{
		UserID:       u.ID,
		Email:        u.Email,
		DisplayName:  u.DisplayName(),
		Role:         u.Role,
		Relationship: rel,
	}
}

func (c *recipientCollector) recipients() []notification.Recipient {
	out := make([]notification.Recipient, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id])
	}
	return out
}
