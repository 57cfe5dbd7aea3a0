package CronJobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Barista/CronJobs"
	"Barista/Models"
)

func TestDailyFanout_Schedule(t *testing.T) {
	s := setupStore(t)
	almaty := time.FixedZone("UTC+5", 5*60*60)
	m := CronJobs.NewMaterializer(s, almaty, CronJobs.WithLogger(quietLogger()))
	fanout := CronJobs.NewDailyFanout(m, "1 0 * * *", false, time.Minute)

	require.NoError(t, fanout.Start())
	defer fanout.Stop()

	next := fanout.Next().In(almaty)
	assert.Equal(t, 0, next.Hour())
	assert.Equal(t, 1, next.Minute())

	assert.Error(t, fanout.UpdateSchedule("not a schedule"))
	require.NoError(t, fanout.UpdateSchedule("30 6 * * *"))
	next = fanout.Next().In(almaty)
	assert.Equal(t, 6, next.Hour())
	assert.Equal(t, 30, next.Minute())
}

func TestDailyFanout_RunManual(t *testing.T) {
	s := setupStore(t)
	seedShop1(t, s)
	wednesday := time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC)
	m := CronJobs.NewMaterializer(s, time.UTC,
		CronJobs.WithLogger(quietLogger()),
		CronJobs.WithClock(func() time.Time { return wednesday }),
	)
	fanout := CronJobs.NewDailyFanout(m, "1 0 * * *", false, 0)

	report := fanout.RunManual(context.Background())

	assert.Equal(t, "2024-06-05", report.Date)
	assert.Equal(t, 1, report.Created())
	result, err := s.GetResult(context.Background(), "shop1", Models.ResultID("t1", "2024-06-05"))
	require.NoError(t, err)
	assert.Equal(t, Models.StatusNotDone, result.Status)
}
