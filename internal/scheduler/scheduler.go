// Package scheduler provides background job scheduling for the intake bot.
//
// Jobs run on a shared cron instance with a recovery chain: a panic in one
// job is logged and the schedule keeps running, so a single fault cannot
// silently stop the liveness loops.
package scheduler

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs recurring background jobs.
type Scheduler struct {
	cron *cron.Cron
}

// New creates and starts the scheduler.
func New() *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(slogCronLogger{})))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task with a 5-field cron expression. Returns an error
// if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// AddEvery schedules a task at a fixed interval. The first run happens one
// interval after registration.
func (s *Scheduler) AddEvery(interval time.Duration, task func()) {
	s.cron.Schedule(cron.Every(interval), cron.FuncJob(task))
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// slogCronLogger adapts slog to the cron logger interface so recovered
// panics land in the structured log.
type slogCronLogger struct{}

func (slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("Scheduler: "+msg, keysAndValues...)
}

func (slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]interface{}{"error", err}, keysAndValues...)
	slog.Error("Scheduler: "+msg, args...)
}
