package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/enrollment"
	"github.com/manabi/lms/core/progress"
	"github.com/manabi/lms/core/user"
)

const (
	streakReminderSpec = "0 20 * * *"
	expireOrdersSpec   = "*/15 * * * *"

	streakReminderText = "You are on a %d-day learning streak! Study a lesson today to keep it going."
)

type (
	StreakTracker interface {
		StreakAtRisk(ctx context.Context) ([]string, error)
		Streak(ctx context.Context, usr user.User) (progress.Streak, error)
	}

	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	EnrollmentLister interface {
		ListMine(ctx context.Context, actor user.User, status string, page core.Pagination) ([]enrollment.Enrollment, int, error)
	}

	OrderExpirer interface {
		ExpirePending(ctx context.Context) (int, error)
	}

	jobs struct {
		streaks     StreakTracker
		users       UserGetter
		enrollments EnrollmentLister
		orders      OrderExpirer
		notifier    core.Notifier
		logger      core.Logger
	}
)

// remindStreaks pushes a LINE reminder to actively enrolled learners who studied yesterday
// but not yet today. Returns the number of reminders sent.
func (j *jobs) remindStreaks(ctx context.Context) (int, error) {
	ids, err := j.streaks.StreakAtRisk(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "listing streaks at risk")
	}

	sent := 0
	for _, id := range ids {
		usr, err := j.users.GetByID(ctx, id)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return sent, errors.Wrap(err, "getting user")
		}
		if !usr.IsActive || usr.LineUserID == "" {
			continue
		}

		_, active, err := j.enrollments.ListMine(ctx, usr, enrollment.StatusActive, core.Pagination{Page: 1, PageSize: 1})
		if err != nil {
			return sent, errors.Wrap(err, "listing active enrollments")
		}
		if active == 0 {
			continue
		}

		streak, err := j.streaks.Streak(ctx, usr)
		if err != nil {
			return sent, errors.Wrap(err, "computing streak")
		}
		if err := j.notifier.Notify(ctx, usr.LineUserID, fmt.Sprintf(streakReminderText, streak.Current)); err != nil {
			j.logger.Error("sending streak reminder", err, usr)
			continue
		}
		sent++
	}
	return sent, nil
}

func (j *jobs) expireOrders(ctx context.Context) (int, error) {
	n, err := j.orders.ExpirePending(ctx)
	return n, errors.Wrap(err, "expiring pending orders")
}

// run executes a job, logging its outcome.
func (j *jobs) run(name string, job func(ctx context.Context) (int, error)) func() {
	return func() {
		n, err := job(context.Background())
		if err != nil {
			j.logger.Error(name+" failed", err, map[string]interface{}{"processed": n})
			return
		}
		j.logger.Info(name+" done", map[string]interface{}{"processed": n})
	}
}

// newScheduler registers the jobs on a cron running in the configured timezone.
func newScheduler(conf *core.Config, j *jobs) (*cron.Cron, error) {
	cl := cronLogger{logger: j.logger}
	c := cron.New(
		cron.WithLocation(conf.Location()),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(streakReminderSpec, j.run("streak reminder", j.remindStreaks)); err != nil {
		return nil, errors.Wrap(err, "scheduling streak reminder")
	}
	if _, err := c.AddFunc(expireOrdersSpec, j.run("order expiry", j.expireOrders)); err != nil {
		return nil, errors.Wrap(err, "scheduling order expiry")
	}
	return c, nil
}

// cronLogger adapts core.Logger to cron.Logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, fields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, err, fields(keysAndValues))
}

func fields(keysAndValues []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		m[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return m
}
