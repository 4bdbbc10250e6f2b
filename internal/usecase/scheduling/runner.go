package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runner drives the batch jobs of a SchedulingService on fixed intervals
type Runner struct {
	Service          *SchedulingService
	Logger           *zap.Logger
	ExecuteInterval  time.Duration
	ReminderInterval time.Duration
}

// NewRunner creates a new Runner instance
func NewRunner(service *SchedulingService, logger *zap.Logger, executeInterval, reminderInterval time.Duration) *Runner {
	return &Runner{
		Service:          service,
		Logger:           logger,
		ExecuteInterval:  executeInterval,
		ReminderInterval: reminderInterval,
	}
}

// Run executes due payments once immediately, then on every tick, until ctx is done
func (r *Runner) Run(ctx context.Context) {
	executeTicker := time.NewTicker(r.ExecuteInterval)
	defer executeTicker.Stop()
	reminderTicker := time.NewTicker(r.ReminderInterval)
	defer reminderTicker.Stop()

	r.executeDue(ctx)
	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("scheduler stopped")
			return
		case <-executeTicker.C:
			r.executeDue(ctx)
		case <-reminderTicker.C:
			r.sendReminders(ctx)
		}
	}
}

func (r *Runner) executeDue(ctx context.Context) {
	logger := r.Logger.With(zap.String("run_id", uuid.NewString()))
	logger.Info("starting scheduled payment execution")

	report, err := r.Service.ExecuteDuePayments(ctx)
	if err != nil {
		logger.Error("scheduled payment execution failed", zap.Error(err))
		return
	}
	logger.Info("scheduled payment execution done",
		zap.Int("due", report.Due),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", len(report.Failures)),
	)
}

func (r *Runner) sendReminders(ctx context.Context) {
	sent, err := r.Service.SendReminders(ctx)
	if err != nil {
		r.Logger.Error("payment reminders failed", zap.Error(err))
		return
	}
	r.Logger.Info("payment reminders sent", zap.Int("sent", sent))
}
