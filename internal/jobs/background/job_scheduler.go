package background

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"rentdesk/internal/caching"
	"rentdesk/internal/models"
	"rentdesk/internal/repositories"
	"rentdesk/internal/services"
)

// digestMarkerKey stores the date the daily digest was last sent, so a
// restart (or a second instance) does not mail operations twice.
const digestMarkerKey = "digest:last_sent"

// JobScheduler manages the recurring maintenance jobs: sweeping stale form
// sessions and mailing the daily submissions digest to operations.
type JobScheduler struct {
	scheduler gocron.Scheduler
	sessions  *services.FormSessionService
	appRepo   repositories.ApplicationRepository
	mailer    services.Mailer
	cache     caching.CacheService
	opsEmail  string
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
}

// NewJobScheduler creates a new job scheduler
func NewJobScheduler(sessions *services.FormSessionService, appRepo repositories.ApplicationRepository,
	mailer services.Mailer, cache caching.CacheService, opsEmail string) *JobScheduler {

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	js := &JobScheduler{
		scheduler: scheduler,
		sessions:  sessions,
		appRepo:   appRepo,
		mailer:    mailer,
		cache:     cache,
		opsEmail:  opsEmail,
		jobs:      make(map[string]gocron.Job),
	}

	js.registerJobs()

	return js
}

// Start starts the job scheduler
func (js *JobScheduler) Start() error {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
	return nil
}

// Stop stops the job scheduler
func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// registerJobs registers all background jobs
func (js *JobScheduler) registerJobs() {
	sweepJob, err := js.scheduler.NewJob(
		gocron.DurationJob(15*time.Minute),
		gocron.NewTask(js.sweepStaleSessions),
		gocron.WithName("session-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create session sweep job: %v", err)
	} else {
		js.jobs["session-sweep"] = sweepJob
	}

	digestJob, err := js.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(7, 0, 0))),
		gocron.NewTask(js.sendDailyDigest, context.Background()),
		gocron.WithName("daily-digest"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create daily digest job: %v", err)
	} else {
		js.jobs["daily-digest"] = digestJob
	}

	log.Printf("Registered %d background jobs", len(js.jobs))
}

// sweepStaleSessions drops in-memory form sessions idle past their TTL.
func (js *JobScheduler) sweepStaleSessions() {
	removed := js.sessions.SweepExpired()
	if removed > 0 {
		log.Printf("Session sweep removed %d stale sessions (%d active)", removed, js.sessions.ActiveSessions())
	}
}

// sendDailyDigest mails operations a count of yesterday's submissions.
func (js *JobScheduler) sendDailyDigest(ctx context.Context) error {
	if js.opsEmail == "" {
		return nil
	}

	now := time.Now()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	from := to.AddDate(0, 0, -1)
	day := from.Format("2006-01-02")

	if last, err := js.cache.GetString(ctx, digestMarkerKey); err == nil && last == day {
		log.Printf("Daily digest for %s already sent, skipping", day)
		return nil
	}

	filter := &models.ApplicationSearchFilter{From: &from, To: &to}

	count, err := js.appRepo.Count(ctx, filter)
	if err != nil {
		log.Printf("Failed to count applications for daily digest: %v", err)
		return err
	}

	msg := &services.Message{
		To:      []string{js.opsEmail},
		Subject: fmt.Sprintf("Tenancy applications digest for %s", day),
		HTML: fmt.Sprintf("<p><strong>%d</strong> application(s) were submitted on %s.</p>",
			count, from.Format("Monday 2 January 2006")),
	}
	if err := js.mailer.Send(ctx, msg); err != nil {
		log.Printf("Failed to send daily digest: %v", err)
		return err
	}

	if err := js.cache.SetString(ctx, digestMarkerKey, day, 48*time.Hour); err != nil {
		log.Printf("Failed to record digest marker: %v", err)
	}

	log.Printf("Sent daily digest: %d submissions on %s", count, day)
	return nil
}

// GetJobStatus returns information about scheduled jobs
func (js *JobScheduler) GetJobStatus() map[string]interface{} {
	js.mu.RLock()
	defer js.mu.RUnlock()

	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	return map[string]interface{}{
		"total_jobs": len(js.jobs),
		"jobs":       names,
	}
}
