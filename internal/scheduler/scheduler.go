package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"BasketRisk/internal/analytics"
	"BasketRisk/internal/collector"
	"BasketRisk/internal/model"
	"BasketRisk/internal/notifier"
	"BasketRisk/internal/recorder"
)

const (
	sendRetries  = 3
	historyLimit = 10
)

// Scheduler runs the risk report on a cron schedule and answers chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Runner    *analytics.Runner
	Notifier  notifier.Notifier
	Recorder  recorder.Recorder
	Ctx       context.Context
	log       zerolog.Logger
}

// NewScheduler creates a new Scheduler. Overlapping report runs are skipped.
func NewScheduler(ctx context.Context, col *collector.Collector, runner *analytics.Runner, n notifier.Notifier, rec recorder.Recorder, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		Collector: col,
		Runner:    runner,
		Notifier:  n,
		Recorder:  rec,
		Ctx:       ctx,
		log:       log,
	}
}

// Register adds the report job.
func (s *Scheduler) Register(reportCron string) error {
	if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running report to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunNow collects, prices, records and returns one report.
func (s *Scheduler) RunNow(ctx context.Context) (*model.RiskReport, error) {
	series, err := s.Collector.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	report, err := s.Runner.Run(ctx, series)
	if err != nil {
		return nil, err
	}
	if err := s.Recorder.RecordReport(ctx, report); err != nil {
		s.log.Error().Err(err).Str("run_id", report.RunID).Msg("record report")
	}
	return report, nil
}

func (s *Scheduler) reportTask() {
	s.log.Info().Msg("running risk report")
	report, err := s.RunNow(s.Ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("risk report")
		s.trySend(fmt.Sprintf("❌ Risk report failed: %v", err))
		return
	}
	s.trySend(notifier.FormatRiskReport(report))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	// Telegram appends @botname in group chats.
	cmd, _, _ := strings.Cut(fields[0], "@")
	switch cmd {
	case "/report":
		s.reportTask()
		return ""
	case "/greeks":
		series, err := s.Collector.Collect(ctx)
		if err != nil {
			return fmt.Sprintf("❌ collect: %v", err)
		}
		g, err := s.Runner.RunGreeks(ctx, series)
		if err != nil {
			return fmt.Sprintf("❌ greeks: %v", err)
		}
		return notifier.FormatGreeks(g)
	case "/scenarios":
		series, err := s.Collector.Collect(ctx)
		if err != nil {
			return fmt.Sprintf("❌ collect: %v", err)
		}
		res, err := s.Runner.RunScenarios(ctx, series)
		if err != nil {
			return fmt.Sprintf("❌ scenarios: %v", err)
		}
		return notifier.FormatScenarios(res)
	case "/history":
		rows, err := s.Recorder.RecentPricing(ctx, historyLimit)
		if err != nil {
			return fmt.Sprintf("❌ history: %v", err)
		}
		return notifier.FormatHistory(rows)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, sendRetries); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
