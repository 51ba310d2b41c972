package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"moviecat/internal/domain"
	"moviecat/internal/mail"
	"moviecat/internal/repository"
)

// DefaultReleaseSpec runs the job every day at 08:00.
const DefaultReleaseSpec = "0 8 * * *"

// ReleaseSummary counts the outcome of one run.
type ReleaseSummary struct {
	Sent    int
	Skipped int
	Failed  int
}

// ReleaseJob mails the owner of every movie released today, once per day.
type ReleaseJob struct {
	movies   repository.MovieRepository
	mail     mail.Sender
	logger   *logrus.Logger
	spec     string
	location *time.Location
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewReleaseJob validates spec as a standard five-field cron expression.
func NewReleaseJob(movies repository.MovieRepository, sender mail.Sender, logger *logrus.Logger, spec string, location *time.Location) (*ReleaseJob, error) {
	if spec == "" {
		spec = DefaultReleaseSpec
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parse release cron %q: %w", spec, err)
	}
	if location == nil {
		location = time.Local
	}
	return &ReleaseJob{
		movies:   movies,
		mail:     sender,
		logger:   logger,
		spec:     spec,
		location: location,
		now:      time.Now,
	}, nil
}

// Run notifies owners of movies released on the current day in the job's
// location. A failed send is logged and counted; the batch continues.
func (j *ReleaseJob) Run(ctx context.Context) (ReleaseSummary, error) {
	var summary ReleaseSummary
	today := j.now().In(j.location).Format(domain.DateLayout)

	releasing, err := j.movies.ListReleasingOn(ctx, today)
	if err != nil {
		return summary, fmt.Errorf("list movies releasing %s: %w", today, err)
	}

	for _, rm := range releasing {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		movie := rm.Movie
		log := j.logger.WithFields(logrus.Fields{"movie_id": movie.ID, "to": rm.OwnerEmail})

		if movie.ReleaseNotifiedOn != nil && *movie.ReleaseNotifiedOn == today {
			summary.Skipped++
			continue
		}

		err := j.mail.Send(ctx, mail.Message{
			To:      rm.OwnerEmail,
			Subject: fmt.Sprintf("Release day: %q", movie.Title),
			Text:    fmt.Sprintf("The movie %q is released today!", movie.Title),
		})
		if err != nil {
			summary.Failed++
			log.WithError(err).Warn("release notice failed")
			continue
		}
		summary.Sent++

		if err := j.movies.MarkReleaseNotified(ctx, movie.ID, today); err != nil {
			log.WithError(err).Warn("mark release notified")
		}
	}

	return summary, nil
}

// Start schedules Run on the cron spec. Runs that overlap a still-running
// one are skipped.
func (j *ReleaseJob) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron != nil {
		return nil
	}

	cronLog := cron.PrintfLogger(j.logger)
	c := cron.New(
		cron.WithLocation(j.location),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	if _, err := c.AddFunc(j.spec, func() { j.runScheduled(ctx) }); err != nil {
		return fmt.Errorf("schedule release job: %w", err)
	}
	c.Start()
	j.cron = c

	j.logger.Infof("release job scheduled %q (%s)", j.spec, j.location)
	return nil
}

func (j *ReleaseJob) runScheduled(ctx context.Context) {
	start := time.Now()
	summary, err := j.Run(ctx)
	log := j.logger.WithFields(logrus.Fields{
		"sent":    summary.Sent,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
		"elapsed": time.Since(start).String(),
	})
	if err != nil {
		log.WithError(err).Error("release job failed")
		return
	}
	log.Info("release job finished")
}

// Stop unschedules the job and waits for a running batch to finish.
func (j *ReleaseJob) Stop() {
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	j.logger.Info("release job stopped")
}
