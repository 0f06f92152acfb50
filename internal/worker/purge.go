package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type trashPurger interface {
	PurgeTrash(ctx context.Context, retention time.Duration) (int, error)
}

// PurgeJob periodically removes events that have been in the trash longer
// than the retention period.
type PurgeJob struct {
	svc       trashPurger
	retention time.Duration
	timeout   time.Duration
	log       *slog.Logger
	cron      *cron.Cron
}

// NewPurgeJob schedules the purge with a standard five-field cron expression. An
// empty schedule returns a job whose Start and Stop do nothing.
func NewPurgeJob(svc trashPurger, schedule string, retention time.Duration, log *slog.Logger) (*PurgeJob, error) {
	if log == nil {
		log = slog.Default()
	}
	j := &PurgeJob{
		svc:       svc,
		retention: retention,
		timeout:   time.Minute,
		log:       log.With(slog.String("component", "worker.purge")),
	}
	if schedule == "" {
		j.log.Info("trash purge disabled")
		return j, nil
	}

	c := cron.New(cron.WithLogger(cronLogger{log: j.log}), cron.WithChain(
		cron.Recover(cronLogger{log: j.log}),
		cron.SkipIfStillRunning(cronLogger{log: j.log}),
	))
	if _, err := c.AddFunc(schedule, j.run); err != nil {
		return nil, err
	}
	j.cron = c
	return j, nil
}

func (j *PurgeJob) Start() {
	if j.cron == nil {
		return
	}
	j.cron.Start()
	j.log.Info("trash purge scheduled", slog.Duration("retention", j.retention))
}

// Stop prevents further runs and waits for a running purge, bounded by ctx.
func (j *PurgeJob) Stop(ctx context.Context) {
	if j.cron == nil {
		return
	}
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		j.log.Warn("trash purge still running at shutdown")
	}
}

// RunOnce purges immediately and reports how many events were removed.
func (j *PurgeJob) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	start := time.Now()
	n, err := j.svc.PurgeTrash(ctx, j.retention)
	if err != nil {
		j.log.Error("trash purge failed", slog.Any("err", err))
		return 0, err
	}
	j.log.Info("trash purged", slog.Int("purged", n), slog.Duration("elapsed", time.Since(start)))
	return n, nil
}

func (j *PurgeJob) run() {
	_, _ = j.RunOnce(context.Background())
}

// cronLogger routes cron's own logging through slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append([]any{slog.Any("err", err)}, keysAndValues...)...)
}
