package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"birthday_reminder_service/internal/domain/church"
	"birthday_reminder_service/internal/domain/email"
	"birthday_reminder_service/internal/domain/group"
	"birthday_reminder_service/internal/domain/inapp"
	"birthday_reminder_service/internal/domain/member"
	"birthday_reminder_service/internal/domain/notification"
	"birthday_reminder_service/internal/domain/user"

	"github.com/sirupsen/logrus"
)

const (
	defaultBatchTimeout = 20 * time.Second

	// SystemActorID is the synthetic acting identity used when neither an
	// actor nor an active admin can be resolved for attribution.
	SystemActorID = "system"

	notificationKind = "birthday_reminder"
)

// RunOptions controls a single engine invocation.
type RunOptions struct {
	// Force bypasses the dedup ledger check entirely: a new entry is
	// always created and delivery is always attempted.
	Force bool
	// ActorID is the admin who manually triggered the run, if any.
	ActorID string
}

// EmailTemplate renders the reminder email for one member/offset pair.
// Rendering is injected so the engine stays free of HTML concerns.
type EmailTemplate func(m *member.Member, daysUntil int) (subject, html, text string)

// ReminderEngine is the birthday-reminder dispatch engine: it scans a
// roster for approaching birthdays, resolves who must be told, enforces
// at-most-once delivery through the ledger, and fans out to the in-app
// and email channels. It is stateless; everything it touches is injected.
type ReminderEngine struct {
	ledger       notification.Repository
	inApp        inapp.Notifier
	emailSender  email.Sender // nil disables the email channel globally
	template     EmailTemplate
	batchTimeout time.Duration
	log          logrus.FieldLogger
}

func NewReminderEngine(
	ledger notification.Repository,
	inApp inapp.Notifier,
	emailSender email.Sender,
	log logrus.FieldLogger,
) *ReminderEngine {
	return &ReminderEngine{
		ledger:       ledger,
		inApp:        inApp,
		emailSender:  emailSender,
		template:     DefaultEmailTemplate,
		batchTimeout: defaultBatchTimeout,
		log:          log,
	}
}

// WithTemplate replaces the default email template.
func (e *ReminderEngine) WithTemplate(t EmailTemplate) *ReminderEngine {
	e.template = t
	return e
}

// WithBatchTimeout sets the deadline covering one member's email batch.
func (e *ReminderEngine) WithBatchTimeout(d time.Duration) *ReminderEngine {
	e.batchTimeout = d
	return e
}

// Run executes one engine invocation for one church. Members are
// processed sequentially with per-member fault isolation; only an
// unreachable ledger store before the loop starts fails the run itself.
func (e *ReminderEngine) Run(
	ctx context.Context,
	ch *church.Church,
	members []*member.Member,
	users []*user.User,
	groups []*group.Group,
	offsets []int,
	refDate time.Time,
	opts RunOptions,
) (*notification.Report, error) {
	report := &notification.Report{Errors: []string{}}
	log := e.log.WithFields(logrus.Fields{"church_id": ch.ID, "force": opts.Force})

	actorID := resolveActingIdentity(users, opts.ActorID)
	log.WithField("actor_id", actorID).Debug("Acting identity resolved for run attribution.")

	upcoming := UpcomingBirthdays(members, NewOffsetSet(offsets), refDate)
	if len(upcoming) == 0 {
		log.Debug("No members with upcoming birthdays at configured offsets. Nothing to do.")
		return report, nil
	}
	log.WithField("qualifying", len(upcoming)).Info("Birthday scan complete.")

	if err := e.ledger.Ping(ctx); err != nil {
		return report, fmt.Errorf("ledger store unreachable: %w", err)
	}

	for _, up := range upcoming {
		report.Processed++
		outcome, err := e.processMember(ctx, ch, up, users, groups, refDate, opts, actorID)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("member %s: %v", up.Member.ID, err))
			log.WithError(err).WithField("member_id", up.Member.ID).Error("Unexpected error while processing member.")
			continue
		}
		switch outcome {
		case outcomeSent:
			report.Sent++
		case outcomeFailed:
			report.Failed++
		case outcomeSkipped:
			report.Skipped++
		}
	}

	log.WithFields(logrus.Fields{
		"processed": report.Processed,
		"sent":      report.Sent,
		"failed":    report.Failed,
		"skipped":   report.Skipped,
	}).Info("Birthday reminder run finished.")
	return report, nil
}

type runOutcome int

const (
	outcomeSent runOutcome = iota
	outcomeFailed
	outcomeSkipped
)

// processMember handles one qualifying member end to end. A panic inside
// a single member's processing is converted into its error so the loop
// keeps going.
func (e *ReminderEngine) processMember(
	ctx context.Context,
	ch *church.Church,
	up UpcomingBirthday,
	users []*user.User,
	groups []*group.Group,
	refDate time.Time,
	opts RunOptions,
	actorID string,
) (outcome runOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = outcomeFailed
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	recipients := ResolveRecipients(up.Member, users, groups, ResolveOptions{ActorID: opts.ActorID})
	if len(recipients) == 0 {
		e.log.WithField("member_id", up.Member.ID).Debug("No recipients resolved. Skipping member.")
		return outcomeSkipped, nil
	}

	if !opts.Force {
		exists, err := e.ledger.Exists(ctx, ch.ID, up.Member.ID, up.DaysUntil, refDate)
		if err != nil {
			return outcomeFailed, fmt.Errorf("ledger existence check: %w", err)
		}
		if exists {
			e.log.WithFields(logrus.Fields{"member_id": up.Member.ID, "days_until": up.DaysUntil}).
				Debug("Reminder already recorded for this member/offset window. Skipping.")
			return outcomeSkipped, nil
		}
	}

	return e.dispatch(ctx, ch, up, recipients, refDate, opts.Force, actorID)
}

// dispatch creates the ledger entry and fans out to both channels.
func (e *ReminderEngine) dispatch(
	ctx context.Context,
	ch *church.Church,
	up UpcomingBirthday,
	recipients []notification.Recipient,
	refDate time.Time,
	force bool,
	actorID string,
) (runOutcome, error) {
	date := notification.DateOnly(refDate)
	id := notification.EntryID(up.Member.ID, up.DaysUntil, date)
	if force {
		id = notification.ForcedEntryID(up.Member.ID, up.DaysUntil, date)
	}

	recipientIDs := make([]string, len(recipients))
	for i, r := range recipients {
		recipientIDs[i] = r.UserID
	}

	entry := &notification.LedgerEntry{
		ID:                id,
		ChurchID:          ch.ID,
		MemberID:          up.Member.ID,
		NotificationDate:  date,
		DaysUntilBirthday: up.DaysUntil,
		RecipientIDs:      recipientIDs,
		Status:            notification.StatusPending,
	}
	if err := e.ledger.Create(ctx, entry); err != nil {
		if errors.Is(err, notification.ErrDuplicateEntry) && !force {
			// A concurrent run won the create race for this key.
			return outcomeSkipped, nil
		}
		return outcomeFailed, fmt.Errorf("ledger create: %w", err)
	}

	subject, html, text := e.template(up.Member, up.DaysUntil)

	// In-app channel is unconditional and best-effort.
	inAppErr := e.inApp.Create(ctx, ch.ID, inapp.Notification{
		RecipientIDs: recipientIDs,
		Kind:         notificationKind,
		Title:        subject,
		Description:  inAppDescription(up.Member, up.DaysUntil),
		Payload: map[string]string{
			"memberId":          up.Member.ID,
			"daysUntilBirthday": fmt.Sprintf("%d", up.DaysUntil),
		},
		ActorID: actorID,
	})
	if inAppErr != nil {
		e.log.WithError(inAppErr).WithField("member_id", up.Member.ID).
			Warn("In-app notification creation failed; continuing.")
	}

	if !ch.EmailEnabled || e.emailSender == nil {
		e.markTerminal(ctx, ch.ID, entry.ID, notification.StatusSent, &notification.ChannelDetails{
			Subject: subject,
			SentAt:  time.Now().UTC(),
		})
		return outcomeSent, nil
	}

	return e.sendEmailBatch(ctx, ch, entry, recipients, subject, html, text)
}

// sendEmailBatch delivers one email per recipient with an address, under
// a single deadline covering the whole batch. The entry goes to sent only
// when every send succeeded; any failure or a deadline overrun marks it
// failed.
func (e *ReminderEngine) sendEmailBatch(
	ctx context.Context,
	ch *church.Church,
	entry *notification.LedgerEntry,
	recipients []notification.Recipient,
	subject, html, text string,
) (runOutcome, error) {
	messages := make([]email.Message, 0, len(recipients))
	for _, r := range recipients {
		if r.Email == "" {
			continue
		}
		messages = append(messages, email.Message{
			To:      r.Email,
			ToName:  r.DisplayName,
			Subject: subject,
			HTML:    html,
			Text:    text,
		})
	}
	if len(messages) == 0 {
		// Nobody to email; in-app delivery alone carries the entry.
		e.markTerminal(ctx, ch.ID, entry.ID, notification.StatusSent, &notification.ChannelDetails{
			Subject: subject,
			SentAt:  time.Now().UTC(),
		})
		return outcomeSent, nil
	}

	batchCtx, cancel := context.WithTimeout(ctx, e.batchTimeout)
	defer cancel()

	results, batchErr := e.emailSender.SendBatch(batchCtx, messages)

	var failures []string
	var firstSuccess *email.Result
	for i := range results {
		if results[i].Success {
			if firstSuccess == nil {
				firstSuccess = &results[i]
			}
			continue
		}
		failures = append(failures, fmt.Sprintf("%s: %s", results[i].To, results[i].Error))
	}
	if batchErr != nil {
		reason := batchErr.Error()
		if errors.Is(batchErr, context.DeadlineExceeded) {
			reason = fmt.Sprintf("email batch exceeded %s deadline", e.batchTimeout)
		}
		failures = append(failures, reason)
	}

	if len(failures) > 0 {
		e.markTerminal(ctx, ch.ID, entry.ID, notification.StatusFailed, &notification.ChannelDetails{
			Subject:       subject,
			FailureReason: strings.Join(failures, "; "),
		})
		return outcomeFailed, nil
	}

	e.markTerminal(ctx, ch.ID, entry.ID, notification.StatusSent, &notification.ChannelDetails{
		Subject:           subject,
		SentAt:            time.Now().UTC(),
		ProviderMessageID: firstSuccess.MessageID,
	})
	return outcomeSent, nil
}

// markTerminal records the one-shot terminal transition. A failure here is
// logged but does not change the member's outcome: delivery has already
// happened (or not) by the time we get here.
func (e *ReminderEngine) markTerminal(ctx context.Context, churchID, id string, status notification.Status, details *notification.ChannelDetails) {
	if err := e.ledger.MarkTerminal(ctx, churchID, id, status, details); err != nil {
		e.log.WithError(err).WithFields(logrus.Fields{"entry_id": id, "status": status}).
			Error("Failed to mark ledger entry terminal.")
	}
}

// resolveActingIdentity picks the identity attached to in-app
// notifications for attribution: the explicit actor when known, else the
// first active admin, else a synthetic system identity.
func resolveActingIdentity(users []*user.User, actorID string) string {
	if actorID != "" {
		for _, u := range users {
			if u.ID == actorID {
				return u.ID
			}
		}
	}
	for _, u := range users {
		if u.Role == user.RoleAdmin && u.IsActive {
			return u.ID
		}
	}
	return SystemActorID
}

// DefaultEmailTemplate is the built-in reminder rendering.
func DefaultEmailTemplate(m *member.Member, daysUntil int) (subject, html, text string) {
	name := m.FullName()
	switch daysUntil {
	case 0:
		subject = fmt.Sprintf("🎉 It's %s's birthday today!", name)
		text = fmt.Sprintf("%s is celebrating their birthday today. Don't forget to reach out!", name)
	case 1:
		subject = fmt.Sprintf("🎂 %s's birthday is tomorrow", name)
		text = fmt.Sprintf("%s is celebrating their birthday tomorrow.", name)
	default:
		subject = fmt.Sprintf("🎂 %s's birthday is in %d days", name, daysUntil)
		text = fmt.Sprintf("%s is celebrating their birthday in %d days.", name, daysUntil)
	}
	html = fmt.Sprintf("<p>%s</p>", text)
	return subject, html, text
}

func inAppDescription(m *member.Member, daysUntil int) string {
	switch daysUntil {
	case 0:
		return fmt.Sprintf("%s has a birthday today.", m.FullName())
	case 1:
		return fmt.Sprintf("%s has a birthday tomorrow.", m.FullName())
	default:
		return fmt.Sprintf("%s has a birthday in %d days.", m.FullName(), daysUntil)
	}
}
