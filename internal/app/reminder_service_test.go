package app

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"birthday_reminder_service/internal/domain/church"
	"birthday_reminder_service/internal/domain/email"
	"birthday_reminder_service/internal/domain/group"
	"birthday_reminder_service/internal/domain/inapp"
	"birthday_reminder_service/internal/domain/member"
	"birthday_reminder_service/internal/domain/notification"
	"birthday_reminder_service/internal/domain/user"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- In-memory fakes ---

type fakeLedger struct {
	entries   map[string]*notification.LedgerEntry
	order     []string
	pingErr   error
	createErr error
	existsErr map[string]error // member id -> forced error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: make(map[string]*notification.LedgerEntry), existsErr: make(map[string]error)}
}

func (f *fakeLedger) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeLedger) Exists(ctx context.Context, churchID, memberID string, daysUntil int, refDate time.Time) (bool, error) {
	if err := f.existsErr[memberID]; err != nil {
		return false, err
	}
	day := notification.DateOnly(refDate)
	for _, e := range f.entries {
		if e.ChurchID != churchID || e.MemberID != memberID || e.DaysUntilBirthday != daysUntil {
			continue
		}
		diff := e.NotificationDate.Sub(day)
		if diff >= -24*time.Hour && diff <= 24*time.Hour {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) Create(ctx context.Context, entry *notification.LedgerEntry) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.entries[entry.ID]; ok {
		return notification.ErrDuplicateEntry
	}
	cp := *entry
	f.entries[entry.ID] = &cp
	f.order = append(f.order, entry.ID)
	return nil
}

func (f *fakeLedger) MarkTerminal(ctx context.Context, churchID, id string, status notification.Status, details *notification.ChannelDetails) error {
	e, ok := f.entries[id]
	if !ok || e.ChurchID != churchID || e.Status != notification.StatusPending {
		return notification.ErrEntryNotFound
	}
	e.Status = status
	e.Details = details
	return nil
}

func (f *fakeLedger) Stats(ctx context.Context, churchID string, from, to time.Time) (*notification.Stats, error) {
	stats := &notification.Stats{}
	members := make(map[string]struct{})
	for _, e := range f.entries {
		if e.ChurchID != churchID || e.NotificationDate.Before(from) || e.NotificationDate.After(to) {
			continue
		}
		stats.Total++
		switch e.Status {
		case notification.StatusSent:
			stats.Sent++
		case notification.StatusFailed:
			stats.Failed++
		case notification.StatusPending:
			stats.Pending++
		}
		members[e.MemberID] = struct{}{}
	}
	stats.UniqueMembers = len(members)
	return stats, nil
}

func (f *fakeLedger) DeleteOlderThan(ctx context.Context, churchID string, cutoff time.Time, batchSize int) (int, error) {
	deleted := 0
	for id, e := range f.entries {
		if deleted == batchSize {
			break
		}
		if e.ChurchID == churchID && e.NotificationDate.Before(cutoff) {
			delete(f.entries, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeLedger) single(t *testing.T) *notification.LedgerEntry {
	t.Helper()
	require.Len(t, f.entries, 1)
	for _, e := range f.entries {
		return e
	}
	return nil
}

type fakeInApp struct {
	created []inapp.Notification
	err     error
}

func (f *fakeInApp) Create(ctx context.Context, churchID string, n inapp.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, n)
	return nil
}

type fakeSender struct {
	sendFn func(ctx context.Context, msgs []email.Message) ([]email.Result, error)
	sent   [][]email.Message
}

func (f *fakeSender) SendBatch(ctx context.Context, msgs []email.Message) ([]email.Result, error) {
	f.sent = append(f.sent, msgs)
	if f.sendFn != nil {
		return f.sendFn(ctx, msgs)
	}
	results := make([]email.Result, len(msgs))
	for i, m := range msgs {
		results[i] = email.Result{To: m.To, Success: true, MessageID: fmt.Sprintf("msg-%d", i)}
	}
	return results, nil
}

// --- Fixtures ---

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func groupsU1(leaderID string) []*group.Group {
	return []*group.Group{{ID: "u1", ChurchID: "c1", LeaderID: leaderID}}
}

func TestRunScenario(t *testing.T) {
	// members=[m1 b.1990-07-10 u1], offsets={7,3,1,0}, ref=2025-07-03,
	// users=[leader1 unit-leader of u1] -> processed 1, sent 1.
	ledger := newFakeLedger()
	inApp := &fakeInApp{}
	engine := NewReminderEngine(ledger, inApp, nil, testLogger())

	leader := activeUser("leader1", user.RoleUnitLeader)
	report, err := engine.Run(context.Background(),
		&church.Church{ID: "c1"},
		[]*member.Member{memberWithDOB("m1", date(1990, time.July, 10))},
		[]*user.User{leader},
		groupsU1("leader1"),
		[]int{7, 3, 1, 0},
		date(2025, time.July, 3),
		RunOptions{},
	)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 0, report.Skipped)
	assert.Empty(t, report.Errors)

	entry := ledger.single(t)
	assert.Equal(t, "m1", entry.MemberID)
	assert.Equal(t, 7, entry.DaysUntilBirthday)
	assert.Equal(t, notification.StatusSent, entry.Status)
	assert.Equal(t, []string{"leader1"}, entry.RecipientIDs)

	require.Len(t, inApp.created, 1)
	assert.Equal(t, []string{"leader1"}, inApp.created[0].RecipientIDs)
	assert.Equal(t, "birthday_reminder", inApp.created[0].Kind)
}

func TestRunIdempotence(t *testing.T) {
	ledger := newFakeLedger()
	engine := NewReminderEngine(ledger, &fakeInApp{}, nil, testLogger())
	members := []*member.Member{memberWithDOB("m1", date(1990, time.July, 10))}
	users := []*user.User{activeUser("leader1", user.RoleUnitLeader)}

	first, err := engine.Run(context.Background(), &church.Church{ID: "c1"}, members, users,
		groupsU1("leader1"), []int{7, 3, 1, 0}, date(2025, time.July, 3), RunOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, first.Sent)

	second, err := engine.Run(context.Background(), &church.Church{ID: "c1"}, members, users,
		groupsU1("leader1"), []int{7, 3, 1, 0}, date(2025, time.July, 3), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Sent)
	assert.Equal(t, first.Sent, second.Skipped)
	assert.Len(t, ledger.entries, 1)
}

func TestRunForceBypassesLedger(t *testing.T) {
	ledger := newFakeLedger()
	engine := NewReminderEngine(ledger, &fakeInApp{}, nil, testLogger())
	members := []*member.Member{memberWithDOB("m1", date(1990, time.July, 10))}
	users := []*user.User{activeUser("leader1", user.RoleUnitLeader)}

	_, err := engine.Run(context.Background(), &church.Church{ID: "c1"}, members, users,
		groupsU1("leader1"), []int{7, 3, 1, 0}, date(2025, time.July, 3), RunOptions{})
	require.NoError(t, err)

	forced, err := engine.Run(context.Background(), &church.Church{ID: "c1"}, members, users,
		groupsU1("leader1"), []int{7, 3, 1, 0}, date(2025, time.July, 3), RunOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, forced.Sent)
	// A forced re-run creates a new entry rather than reopening the old one.
	assert.Len(t, ledger.entries, 2)
}

func TestRunEmptyScanReturnsZeroReport(t *testing.T) {
	ledger := newFakeLedger()
	ledger.pingErr = fmt.Errorf("should not be called")
	engine := NewReminderEngine(ledger, &fakeInApp{}, nil, testLogger())

	report, err := engine.Run(context.Background(), &church.Church{ID: "c1"},
		[]*member.Member{memberWithDOB("m1", date(1990, time.July, 10))},
		nil, nil, []int{7}, date(2025, time.January, 1), RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, &notification.Report{Errors: []string{}}, report)
}

func TestRunFatalWhenLedgerUnreachable(t *testing.T) {
	ledger := newFakeLedger()
	ledger.pingErr = fmt.Errorf("connection refused")
	engine := NewReminderEngine(ledger, &fakeInApp{}, nil, testLogger())

	report, err := engine.Run(context.Background(), &church.Church{ID: "c1"},
		[]*member.Member{memberWithDOB("m1", date(1990, time.July, 10))},
		[]*user.User{activeUser("leader1", user.RoleUnitLeader)},
		groupsU1("leader1"), []int{7}, date(2025, time.July, 3), RunOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger store unreachable")
	assert.Equal(t, 0, report.Processed)
}

func TestRunSkipsMemberWithoutRecipients(t *testing.T) {
	ledger := newFakeLedger()
	engine := NewReminderEngine(ledger, &fakeInApp{}, nil, testLogger())

	report, err := engine.Run(context.Background(), &church.Church{ID: "c1"},
		[]*member.Member{memberWithDOB("m1", date(1990, time.July, 10))},
		nil, nil, []int{7}, date(2025, time.July, 3), RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Sent)
	assert.Equal(t, 0, report.Failed)
	assert.Empty(t, ledger.entries)
}

func TestRunFaultIsolationPerMember(t *testing.T) {
	ledger := newFakeLedger()
	ledger.existsErr["m1"] = fmt.Errorf("boom")
	engine := NewReminderEngine(ledger, &fakeInApp{}, nil, testLogger())

	report, err := engine.Run(context.Background(), &church.Church{ID: "c1"},
		[]*member.Member{
			memberWithDOB("m1", date(1990, time.July, 10)),
			memberWithDOB("m2", date(1991, time.July, 10)),
		},
		[]*user.User{activeUser("leader1", user.RoleUnitLeader)},
		groupsU1("leader1"), []int{7}, date(2025, time.July, 3), RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Sent)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "member m1")
}

func TestRunSkipsWhenConcurrentRunWonCreateRace(t *testing.T) {
	ledger := newFakeLedger()
	ledger.createErr = notification.ErrDuplicateEntry
	engine := NewReminderEngine(ledger, &fakeInApp{}, nil, testLogger())

	report, err := engine.Run(context.Background(), &church.Church{ID: "c1"},
		[]*member.Member{memberWithDOB("m1", date(1990, time.July, 10))},
		[]*user.User{activeUser("leader1", user.RoleUnitLeader)},
		groupsU1("leader1"), []int{7}, date(2025, time.July, 3), RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Sent)
	assert.Equal(t, 0, report.Failed)
}

func TestRunInAppFailureIsNonFatal(t *testing.T) {
	ledger := newFakeLedger()
	engine := NewReminderEngine(ledger, &fakeInApp{err: fmt.Errorf("bell service down")}, nil, testLogger())

	report, err := engine.Run(context.Background(), &church.Church{ID: "c1"},
		[]*member.Member{memberWithDOB("m1", date(1990, time.July, 10))},
		[]*user.User{activeUser("leader1", user.RoleUnitLeader)},
		groupsU1("leader1"), []int{7}, date(2025, time.July, 3), RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, notification.StatusSent, ledger.single(t).Status)
}

func TestRunEmailBatchAllSucceed(t *testing.T) {
	ledger := newFakeLedger()
	sender := &fakeSender{}
	engine := NewReminderEngine(ledger, &fakeInApp{}, sender, testLogger())

	leader := activeUser("leader1", user.RoleUnitLeader)
	leader.Email = "leader1@example.com"
	admin := activeUser("admin1", user.RoleAdmin)
	admin.Email = "admin1@example.com"

	report, err := engine.Run(context.Background(), &church.Church{ID: "c1", EmailEnabled: true},
		[]*member.Member{memberWithDOB("m1", date(1990, time.July, 10))},
		[]*user.User{leader, admin},
		groupsU1("leader1"), []int{7}, date(2025, time.July, 3), RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	require.Len(t, sender.sent, 1)
	assert.Len(t, sender.sent[0], 2)

	entry := ledger.single(t)
	assert.Equal(t, notification.StatusSent, entry.Status)
	require.NotNil(t, entry.Details)
	assert.Equal(t, "msg-0", entry.Details.ProviderMessageID)
	assert.NotEmpty(t, entry.Details.Subject)
	assert.False(t, entry.Details.SentAt.IsZero())
}

func TestRunEmailPartialFailureMarksFailed(t *testing.T) {
	ledger := newFakeLedger()
	sender := &fakeSender{sendFn: func(ctx context.Context, msgs []email.Message) ([]email.Result, error) {
		results := make([]email.Result, len(msgs))
		for i, m := range msgs {
			if i == 0 {
				results[i] = email.Result{To: m.To, Success: true, MessageID: "ok-1"}
			} else {
				results[i] = email.Result{To: m.To, Error: "mailbox full"}
			}
		}
		return results, nil
	}}
	engine := NewReminderEngine(ledger, &fakeInApp{}, sender, testLogger())

	leader := activeUser("leader1", user.RoleUnitLeader)
	leader.Email = "leader1@example.com"
	admin := activeUser("admin1", user.RoleAdmin)
	admin.Email = "admin1@example.com"

	report, err := engine.Run(context.Background(), &church.Church{ID: "c1", EmailEnabled: true},
		[]*member.Member{memberWithDOB("m1", date(1990, time.July, 10))},
		[]*user.User{leader, admin},
		groupsU1("leader1"), []int{7}, date(2025, time.July, 3), RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 0, report.Sent)

	entry := ledger.single(t)
	assert.Equal(t, notification.StatusFailed, entry.Status)
	require.NotNil(t, entry.Details)
	assert.Contains(t, entry.Details.FailureReason, "admin1@example.com")
	assert.Contains(t, entry.Details.FailureReason, "mailbox full")
}

func TestRunEmailDeadlineOverrunMarksFailed(t *testing.T) {
	ledger := newFakeLedger()
	sender := &fakeSender{sendFn: func(ctx context.Context, msgs []email.Message) ([]email.Result, error) {
		return nil, context.DeadlineExceeded
	}}
	engine := NewReminderEngine(ledger, &fakeInApp{}, sender, testLogger()).WithBatchTimeout(time.Second)

	leader := activeUser("leader1", user.RoleUnitLeader)
	leader.Email = "leader1@example.com"

	report, err := engine.Run(context.Background(), &church.Church{ID: "c1", EmailEnabled: true},
		[]*member.Member{memberWithDOB("m1", date(1990, time.July, 10))},
		[]*user.User{leader},
		groupsU1("leader1"), []int{7}, date(2025, time.July, 3), RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	entry := ledger.single(t)
	assert.Equal(t, notification.StatusFailed, entry.Status)
	assert.Contains(t, entry.Details.FailureReason, "deadline")
}

func TestRunEmailEnabledButNoAddressesStillSent(t *testing.T) {
	ledger := newFakeLedger()
	sender := &fakeSender{}
	engine := NewReminderEngine(ledger, &fakeInApp{}, sender, testLogger())

	report, err := engine.Run(context.Background(), &church.Church{ID: "c1", EmailEnabled: true},
		[]*member.Member{memberWithDOB("m1", date(1990, time.July, 10))},
		[]*user.User{activeUser("leader1", user.RoleUnitLeader)}, // no email address
		groupsU1("leader1"), []int{7}, date(2025, time.July, 3), RunOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Empty(t, sender.sent)
	assert.Equal(t, notification.StatusSent, ledger.single(t).Status)
}

func TestRunActingIdentityAttribution(t *testing.T) {
	tests := []struct {
		name    string
		users   func() []*user.User
		actorID string
		want    string
	}{
		{
			name: "explicit actor wins",
			users: func() []*user.User {
				actor := activeUser("admin2", user.RoleAdmin)
				return []*user.User{activeUser("leader1", user.RoleUnitLeader), activeUser("admin1", user.RoleAdmin), actor}
			},
			actorID: "admin2",
			want:    "admin2",
		},
		{
			name: "first active admin fallback",
			users: func() []*user.User {
				return []*user.User{activeUser("leader1", user.RoleUnitLeader), activeUser("admin1", user.RoleAdmin)}
			},
			want: "admin1",
		},
		{
			name: "synthetic system identity",
			users: func() []*user.User {
				return []*user.User{activeUser("leader1", user.RoleUnitLeader)}
			},
			want: SystemActorID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inApp := &fakeInApp{}
			engine := NewReminderEngine(newFakeLedger(), inApp, nil, testLogger())

			_, err := engine.Run(context.Background(), &church.Church{ID: "c1"},
				[]*member.Member{memberWithDOB("m1", date(1990, time.July, 10))},
				tt.users(), groupsU1("leader1"), []int{7}, date(2025, time.July, 3),
				RunOptions{ActorID: tt.actorID})

			require.NoError(t, err)
			require.Len(t, inApp.created, 1)
			assert.Equal(t, tt.want, inApp.created[0].ActorID)
		})
	}
}
