package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"birthday_reminder_service/internal/app"
	"birthday_reminder_service/internal/domain/telegram"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const runAllTimeout = 10 * time.Minute

// ReminderScheduler drives the daily scheduled runs. It is the external
// orchestrator: the engine itself never decides when it runs or which
// churches to iterate.
type ReminderScheduler struct {
	cronEngine    *cron.Cron
	coordinator   *app.Coordinator
	opsClient     telegram.Client // nil disables ops reporting
	opsChatID     int64
	cronSpecDaily string
	log           logrus.FieldLogger
}

func NewReminderScheduler(
	coordinator *app.Coordinator,
	opsClient telegram.Client,
	opsChatID int64,
	cronSpecDaily string,
	log logrus.FieldLogger,
) *ReminderScheduler {
	return &ReminderScheduler{
		cronEngine:    cron.New(cron.WithLocation(time.Local)),
		coordinator:   coordinator,
		opsClient:     opsClient,
		opsChatID:     opsChatID,
		cronSpecDaily: cronSpecDaily,
		log:           log,
	}
}

func (s *ReminderScheduler) Start() error {
	_, err := s.cronEngine.AddFunc(s.cronSpecDaily, s.runScheduled)
	if err != nil {
		return fmt.Errorf("could not add daily birthday cron job: %w", err)
	}
	s.cronEngine.Start()
	s.log.WithField("spec", s.cronSpecDaily).Info("Birthday reminder scheduler started.")
	return nil
}

func (s *ReminderScheduler) runScheduled() {
	s.log.Info("Cron job triggered for daily birthday reminder runs.")
	ctx, cancel := context.WithTimeout(context.Background(), runAllTimeout)
	defer cancel()

	results, err := s.coordinator.RunAll(ctx)
	if err != nil {
		s.log.WithError(err).Error("Scheduled birthday reminder runs failed.")
		s.reportToOps(fmt.Sprintf("Birthday reminder runs failed: %v", err))
		return
	}
	s.reportToOps(formatRunResults(results))
}

// reportToOps posts the aggregate report to the operations chat when one
// is configured; a delivery failure is logged and swallowed.
func (s *ReminderScheduler) reportToOps(text string) {
	if s.opsClient == nil || s.opsChatID == 0 || text == "" {
		return
	}
	if err := s.opsClient.SendMessage(s.opsChatID, text, nil); err != nil {
		s.log.WithError(err).Warn("Failed to deliver run report to ops chat.")
	}
}

func formatRunResults(results []app.ChurchRunResult) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Birthday reminder runs:\n")
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(&b, "• %s: run failed: %v\n", res.ChurchName, res.Err)
			continue
		}
		fmt.Fprintf(&b, "• %s: %s\n", res.ChurchName, res.Report.Summary())
	}
	return b.String()
}

func (s *ReminderScheduler) Stop() {
	s.log.Info("Stopping birthday reminder scheduler...")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.log.Info("Birthday reminder scheduler gracefully stopped.")
}
