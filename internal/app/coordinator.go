package app

import (
	"context"
	"fmt"
	"time"

	"birthday_reminder_service/internal/domain/church"
	"birthday_reminder_service/internal/domain/group"
	"birthday_reminder_service/internal/domain/member"
	"birthday_reminder_service/internal/domain/notification"
	"birthday_reminder_service/internal/domain/user"

	"github.com/sirupsen/logrus"
)

// Coordinator loads a church's rosters and hands them to the engine.
// Both trigger paths (the cron job and the HTTP admin endpoint) go
// through here so they share one code path.
type Coordinator struct {
	churches church.Repository
	members  member.Repository
	users    user.Repository
	groups   group.Repository
	engine   *ReminderEngine
	offsets  []int
	log      logrus.FieldLogger
}

func NewCoordinator(
	churches church.Repository,
	members member.Repository,
	users user.Repository,
	groups group.Repository,
	engine *ReminderEngine,
	offsets []int,
	log logrus.FieldLogger,
) *Coordinator {
	return &Coordinator{
		churches: churches,
		members:  members,
		users:    users,
		groups:   groups,
		engine:   engine,
		offsets:  offsets,
		log:      log,
	}
}

// RunForChurch loads the rosters for one church and executes the engine
// against today's date in the church's timezone.
func (c *Coordinator) RunForChurch(ctx context.Context, churchID string, opts RunOptions) (*notification.Report, error) {
	ch, err := c.churches.GetByID(ctx, churchID)
	if err != nil {
		return nil, fmt.Errorf("load church %s: %w", churchID, err)
	}

	members, err := c.members.ListByChurch(ctx, ch.ID)
	if err != nil {
		return nil, fmt.Errorf("load members for church %s: %w", ch.ID, err)
	}
	users, err := c.users.ListByChurch(ctx, ch.ID)
	if err != nil {
		return nil, fmt.Errorf("load users for church %s: %w", ch.ID, err)
	}
	groups, err := c.groups.ListByChurch(ctx, ch.ID)
	if err != nil {
		return nil, fmt.Errorf("load groups for church %s: %w", ch.ID, err)
	}

	refDate := time.Now().In(c.locationFor(ch))
	return c.engine.Run(ctx, ch, members, users, groups, c.offsets, refDate, opts)
}

// ChurchRunResult pairs one tenant with its run outcome.
type ChurchRunResult struct {
	ChurchID   string
	ChurchName string
	Report     *notification.Report
	Err        error
}

// RunAll executes a scheduled run for every active church, one tenant at
// a time. A failed tenant does not stop the others.
func (c *Coordinator) RunAll(ctx context.Context) ([]ChurchRunResult, error) {
	churches, err := c.churches.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active churches: %w", err)
	}

	results := make([]ChurchRunResult, 0, len(churches))
	for _, ch := range churches {
		report, err := c.RunForChurch(ctx, ch.ID, RunOptions{})
		if err != nil {
			c.log.WithError(err).WithField("church_id", ch.ID).Error("Scheduled run failed for church.")
		} else {
			c.log.WithField("church_id", ch.ID).Infof("Scheduled run: %s", report.Summary())
		}
		results = append(results, ChurchRunResult{ChurchID: ch.ID, ChurchName: ch.Name, Report: report, Err: err})
	}
	return results, nil
}

func (c *Coordinator) locationFor(ch *church.Church) *time.Location {
	if ch.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(ch.Timezone)
	if err != nil {
		c.log.WithField("church_id", ch.ID).Warnf("Unknown timezone %q, falling back to UTC.", ch.Timezone)
		return time.UTC
	}
	return loc
}
