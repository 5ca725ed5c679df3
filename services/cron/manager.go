package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sahilchouksey/course-market-api/database"
	"github.com/sahilchouksey/course-market-api/services"
	"github.com/sahilchouksey/course-market-api/utils/auth"
	"github.com/sahilchouksey/course-market-api/utils/logger"
	"github.com/sahilchouksey/course-market-api/utils/metrics"
)

// Job names, also used as metric labels
const (
	JobReconcileCourseStats = "reconcile_course_stats"
	JobExpirePendingPayment = "expire_pending_enrollments"
	JobCleanupBlacklist     = "cleanup_token_blacklist"
)

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron        *cron.Cron
	store       database.Storage
	enrollments *services.EnrollmentService
	blacklist   *auth.BlacklistService
	log         *logger.Logger
	pendingTTL  time.Duration
}

// NewCronManager creates a new cron manager
func NewCronManager(store database.Storage, enrollments *services.EnrollmentService, blacklist *auth.BlacklistService, log *logger.Logger) *CronManager {
	cronLog := cronLogger{log: log}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	return &CronManager{
		cron:        c,
		store:       store,
		enrollments: enrollments,
		blacklist:   blacklist,
		log:         log,
		pendingTTL:  services.DefaultPendingTTL,
	}
}

// Start registers all jobs and starts the scheduler
func (m *CronManager) Start() error {
	m.log.Info("starting cron jobs")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	m.log.Info("cron jobs started", "jobs", len(m.cron.Entries()))
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (m *CronManager) Stop() {
	m.log.Info("stopping cron jobs")
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info("cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	// Every hour: repair course counters left behind by interrupted cascades
	if _, err := m.cron.AddFunc("0 0 * * * *", func() {
		m.runJob(JobReconcileCourseStats, 10*time.Minute, m.ReconcileCourseStats)
	}); err != nil {
		return err
	}

	// Every 15 minutes: expire abandoned checkouts
	if _, err := m.cron.AddFunc("0 */15 * * * *", func() {
		m.runJob(JobExpirePendingPayment, 5*time.Minute, m.ExpirePendingEnrollments)
	}); err != nil {
		return err
	}

	// Every 30 minutes: drop expired blacklist entries
	if _, err := m.cron.AddFunc("0 */30 * * * *", func() {
		m.runJob(JobCleanupBlacklist, time.Minute, m.CleanupTokenBlacklist)
	}); err != nil {
		return err
	}

	return nil
}

func (m *CronManager) runJob(name string, timeout time.Duration, job func(ctx context.Context) (int, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	started := time.Now()
	m.log.Info("cron job started", "job", name)

	affected, err := job(ctx)
	metrics.ObserveCronRun(name, err)
	if err != nil {
		m.log.Error("cron job failed", "job", name, "affected", affected, "error", err.Error())
		return
	}
	m.log.Info("cron job completed", "job", name, "affected", affected, "duration", time.Since(started))
}

// cronLogger adapts Logger to cron.Logger
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err.Error())...)
}
