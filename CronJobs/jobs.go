package CronJobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DailyFanout runs the materializer on a cron schedule evaluated in the
// materializer's zone.
type DailyFanout struct {
	cronScheduler  *cron.Cron
	materializer   *Materializer
	schedule       string
	runImmediately bool
	timeout        time.Duration
	log            *logrus.Logger

	mu    sync.Mutex
	jobID cron.EntryID
}

// NewDailyFanout creates a scheduler. A zero timeout leaves runs unbounded.
func NewDailyFanout(m *Materializer, schedule string, runImmediately bool, timeout time.Duration) *DailyFanout {
	return &DailyFanout{
		cronScheduler:  cron.New(cron.WithLocation(m.Location())),
		materializer:   m,
		schedule:       schedule,
		runImmediately: runImmediately,
		timeout:        timeout,
		log:            m.log,
	}
}

// Start registers the job and starts the scheduler.
func (d *DailyFanout) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	d.jobID, err = d.cronScheduler.AddFunc(d.schedule, d.runScheduled)
	if err != nil {
		return fmt.Errorf("error scheduling fan-out job: %w", err)
	}

	d.cronScheduler.Start()
	d.log.WithFields(logrus.Fields{
		"schedule": d.schedule,
		"timezone": d.materializer.Location().String(),
		"next":     d.cronScheduler.Entry(d.jobID).Next,
	}).Info("fan-out scheduler started")

	if d.runImmediately {
		go d.runScheduled()
	}
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (d *DailyFanout) Stop() {
	if d.cronScheduler == nil {
		return
	}
	<-d.cronScheduler.Stop().Done()
	d.log.Info("fan-out scheduler stopped")
}

// UpdateSchedule replaces the cron expression of the running job.
func (d *DailyFanout) UpdateSchedule(schedule string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := d.cronScheduler.AddFunc(schedule, d.runScheduled)
	if err != nil {
		return fmt.Errorf("error updating schedule: %w", err)
	}
	d.cronScheduler.Remove(d.jobID)
	d.jobID = id
	d.schedule = schedule

	d.log.WithField("schedule", schedule).Info("fan-out schedule updated")
	return nil
}

// Next is the next time the job fires.
func (d *DailyFanout) Next() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cronScheduler.Entry(d.jobID).Next
}

// RunManual executes a fan-out for now outside the schedule.
func (d *DailyFanout) RunManual(ctx context.Context) Report {
	d.log.Info("running manual fan-out")
	return d.materializer.Run(ctx)
}

func (d *DailyFanout) runScheduled() {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	d.materializer.Run(ctx)
}
