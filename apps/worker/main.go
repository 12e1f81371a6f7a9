// Command worker runs the scheduled jobs: streak reminders and pending order expiry.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/manabi/lms/apps/api/di"
	"github.com/manabi/lms/core"
)

func main() {
	c := di.New()

	must(c.Invoke(func(svcs di.Services, shutdown chan os.Signal) {
		conf := svcs.Conf
		logger := svcs.Logger
		defer logger.Close()
		defer func() {
			if err := svcs.DB.Close(); err != nil {
				logger.Error("failed to close database", err)
			}
		}()

		core.ParseEmailTemplates(logger)

		j := &jobs{
			streaks:     svcs.ProgressSvc,
			users:       svcs.UserSvc,
			enrollments: svcs.EnrollmentSvc,
			orders:      svcs.PaymentSvc,
			notifier:    svcs.Notifier,
			logger:      logger,
		}
		scheduler, err := newScheduler(conf, j)
		if err != nil {
			logger.Fatal("setting up scheduler", err)
			return
		}

		scheduler.Start()
		logger.Info(fmt.Sprintf("Worker started : version %q, timezone %s", conf.Build, conf.Location()))

		sig := <-shutdown
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// wait for running jobs
		<-scheduler.Stop().Done()
		logger.Info("Worker stopped")
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
