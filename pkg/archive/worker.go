package archive

import (
	"context"
	"log/slog"
	"time"
)

// Worker runs archival once a day at a configured wall-clock time.
type Worker struct {
	storage   *ColdStorage
	hour      int
	minute    int
	days      int
	keep      int
	errorWait time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWorker creates the daily archival worker. days and keep are passed
// through to Archive on each run.
func NewWorker(storage *ColdStorage, hour, minute, days, keep int) *Worker {
	return &Worker{
		storage:   storage,
		hour:      hour,
		minute:    minute,
		days:      days,
		keep:      keep,
		errorWait: time.Hour,
	}
}

// Start launches the background archival loop.
func (w *Worker) Start(ctx context.Context) {
	if w.cancel != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})

	go w.run(ctx)

	slog.Info("Memory archival worker started",
		"schedule", time.Date(0, 1, 1, w.hour, w.minute, 0, 0, time.Local).Format("15:04"),
		"older_than_days", w.days,
		"keep_recent", w.keep)
}

// Stop signals the loop to exit and waits for it to finish.
func (w *Worker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	slog.Info("Memory archival worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	for {
		wait := w.untilNextRun(time.Now())
		slog.Info("Next memory archival scheduled",
			"in", wait.Round(time.Minute).String())

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		stats, err := w.storage.Archive(ctx, w.days, w.keep)
		if err != nil {
			slog.Error("Scheduled archival failed", "error", err)
			// Back off before rescheduling so a broken Redis doesn't spin.
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.errorWait):
			}
			continue
		}
		slog.Info("Scheduled archival complete",
			"archived", stats.Archived,
			"kept_in_redis", stats.KeptInRedis,
			"files_created", stats.FilesCreated)
	}
}

// untilNextRun returns the wait until the next occurrence of the configured
// wall-clock time.
func (w *Worker) untilNextRun(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), w.hour, w.minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
