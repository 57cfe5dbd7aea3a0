package CronJobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"Barista/Models"
)

// TaskStore is the part of the store the fan-out needs.
type TaskStore interface {
	ListCoffeeshops(ctx context.Context) ([]Models.Coffeeshop, error)
	ActiveTasks(ctx context.Context, shopID string) ([]Models.Task, error)
	MaterializeResults(ctx context.Context, shopID string, results []Models.TaskResult) (int, error)
}

// Notifier is told about every finished run.
type Notifier interface {
	Notify(ctx context.Context, report Report) error
}

// ShopOutcome is what happened to one coffeeshop during a run.
type ShopOutcome struct {
	ShopID   string `json:"coffeeshop_id"`
	Due      int    `json:"due"`
	Created  int    `json:"created"`
	Existing int    `json:"existing"`
	Error    string `json:"error,omitempty"`
}

type Report struct {
	Date       string        `json:"date"`
	Weekday    int           `json:"weekday"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Shops      []ShopOutcome `json:"shops"`
	Error      string        `json:"error,omitempty"`
}

// Failed lists the coffeeshops whose materialization did not complete.
func (r Report) Failed() []string {
	var failed []string
	for _, s := range r.Shops {
		if s.Error != "" {
			failed = append(failed, s.ShopID)
		}
	}
	return failed
}

func (r Report) Created() int {
	total := 0
	for _, s := range r.Shops {
		total += s.Created
	}
	return total
}

// Materializer turns active task definitions into the day's task results.
// It holds no state between runs.
type Materializer struct {
	store    TaskStore
	location *time.Location
	workers  int
	now      func() time.Time
	log      *logrus.Logger
	notifier Notifier
}

type Option func(*Materializer)

func WithWorkers(n int) Option {
	return func(m *Materializer) {
		if n > 0 {
			m.workers = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Materializer) { m.now = now }
}

func WithLogger(log *logrus.Logger) Option {
	return func(m *Materializer) { m.log = log }
}

func WithNotifier(n Notifier) Option {
	return func(m *Materializer) { m.notifier = n }
}

func NewMaterializer(store TaskStore, location *time.Location, opts ...Option) *Materializer {
	m := &Materializer{
		store:    store,
		location: location,
		workers:  1,
		now:      time.Now,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.location == nil {
		m.location = time.UTC
	}
	return m
}

func (m *Materializer) Location() *time.Location {
	return m.location
}

// Run materializes results for the current day.
func (m *Materializer) Run(ctx context.Context) Report {
	return m.RunFor(ctx, m.now())
}

// RunFor materializes results for the calendar day containing t, as seen
// in the materializer's zone. A coffeeshop that fails is recorded in the
// report and does not stop the others.
func (m *Materializer) RunFor(ctx context.Context, t time.Time) Report {
	local := t.In(m.location)
	report := Report{
		Date:      local.Format(Models.DateLayout),
		Weekday:   Models.ISOWeekday(local),
		StartedAt: m.now(),
	}
	log := m.log.WithFields(logrus.Fields{"date": report.Date, "weekday": report.Weekday})

	shops, err := m.store.ListCoffeeshops(ctx)
	if err != nil {
		log.WithError(err).Error("fan-out aborted: cannot list coffeeshops")
		report.Error = err.Error()
		report.FinishedAt = m.now()
		m.notify(ctx, log, report)
		return report
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for _, shop := range shops {
		shopID := shop.ID
		g.Go(func() error {
			outcome := m.materializeShop(gctx, shopID, report.Date, report.Weekday)
			mu.Lock()
			report.Shops = append(report.Shops, outcome)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Shops, func(i, j int) bool { return report.Shops[i].ShopID < report.Shops[j].ShopID })
	report.FinishedAt = m.now()

	log.WithFields(logrus.Fields{
		"coffeeshops": len(report.Shops),
		"created":     report.Created(),
		"failed":      len(report.Failed()),
	}).Info("daily fan-out finished")

	m.notify(ctx, log, report)
	return report
}

func (m *Materializer) notify(ctx context.Context, log *logrus.Entry, report Report) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, report); err != nil {
		log.WithError(err).Warn("fan-out notification failed")
	}
}

func (m *Materializer) materializeShop(ctx context.Context, shopID, date string, weekday int) ShopOutcome {
	outcome := ShopOutcome{ShopID: shopID}
	log := m.log.WithFields(logrus.Fields{"coffeeshop_id": shopID, "date": date})

	tasks, err := m.store.ActiveTasks(ctx, shopID)
	if err != nil {
		log.WithError(err).Error("cannot read tasks")
		outcome.Error = err.Error()
		return outcome
	}

	results := DueResults(tasks, date, weekday)
	outcome.Due = len(results)
	if len(results) == 0 {
		return outcome
	}

	created, err := m.store.MaterializeResults(ctx, shopID, results)
	if err != nil {
		log.WithError(err).Error("cannot commit task results")
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Created = created
	outcome.Existing = len(results) - created
	log.WithFields(logrus.Fields{"due": outcome.Due, "created": created}).Debug("coffeeshop materialized")
	return outcome
}

// DueResults builds the results of every task due on date.
func DueResults(tasks []Models.Task, date string, weekday int) []Models.TaskResult {
	var results []Models.TaskResult
	for _, t := range tasks {
		if t.DueOn(date, weekday) {
			results = append(results, Models.NewTaskResult(t, date))
		}
	}
	return results
}
