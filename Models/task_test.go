package Models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskFromFields_Defaults(t *testing.T) {
	task := TaskFromFields("t1", map[string]interface{}{
		"title":  "Clean espresso machine",
		"active": true,
	})

	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, TaskTypeCheckbox, task.Type)
	assert.Equal(t, RepeatWeekly, task.RepeatType)
	assert.Empty(t, task.Days)
	assert.NotNil(t, task.Days)
	assert.Nil(t, task.ExpectedFinishTime)
}

func TestTaskFromFields_UnknownKindsFallBack(t *testing.T) {
	task := TaskFromFields("t1", map[string]interface{}{
		"type":        "video",
		"repeat_type": "monthly",
	})

	assert.Equal(t, TaskTypeCheckbox, task.Type)
	assert.Equal(t, RepeatWeekly, task.RepeatType)
	assert.False(t, task.Active)
}

func TestTaskFromFields_Days(t *testing.T) {
	task := TaskFromFields("t1", map[string]interface{}{
		"days": []interface{}{int64(1), float64(3), 3.5, "5", 9, 0, int64(3), 7},
	})
	assert.Equal(t, []int{1, 3, 7}, task.Days)

	task = TaskFromFields("t2", map[string]interface{}{"days": []int{2, 2, 4}})
	assert.Equal(t, []int{2, 4}, task.Days)
}

func TestTaskFromFields_OptionalStrings(t *testing.T) {
	task := TaskFromFields("t1", map[string]interface{}{
		"repeat_type":          "one_time",
		"scheduled_date":       "2024-06-10",
		"expected_finish_time": "09:30",
	})

	assert.Equal(t, RepeatOneTime, task.RepeatType)
	assert.Equal(t, "2024-06-10", task.ScheduledDate)
	require.NotNil(t, task.ExpectedFinishTime)
	assert.Equal(t, "09:30", *task.ExpectedFinishTime)
}

func TestTask_DueOn(t *testing.T) {
	weekly := Task{ID: "t1", Active: true, RepeatType: RepeatWeekly, Days: []int{1, 3, 5}}
	oneTime := Task{ID: "t2", Active: true, RepeatType: RepeatOneTime, ScheduledDate: "2024-06-10"}

	tests := []struct {
		name    string
		task    Task
		date    string
		weekday int
		want    bool
	}{
		{"weekly on listed day", weekly, "2024-06-05", 3, true},
		{"weekly on other day", weekly, "2024-06-06", 4, false},
		{"one time on its date", oneTime, "2024-06-10", 1, true},
		{"one time elsewhere", oneTime, "2024-06-05", 3, false},
		{"one time without date", Task{Active: true, RepeatType: RepeatOneTime}, "2024-06-05", 3, false},
		{"inactive", Task{Active: false, RepeatType: RepeatWeekly, Days: []int{3}}, "2024-06-05", 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.DueOn(tt.date, tt.weekday))
		})
	}
}

func TestISOWeekday(t *testing.T) {
	sunday := time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC)
	monday := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 7, ISOWeekday(sunday))
	assert.Equal(t, 1, ISOWeekday(monday))
}

func TestDateIn_UsesZone(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	// 20:30 UTC is already the next day at UTC+5
	instant := time.Date(2024, 6, 4, 20, 30, 0, 0, time.UTC)

	assert.Equal(t, "2024-06-05", DateIn(instant, loc))
	assert.Equal(t, "2024-06-04", DateIn(instant, time.UTC))
}

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)

	day, err := ParseDate("2024-06-05", loc)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-05", DateIn(day, loc))
	assert.Equal(t, 3, ISOWeekday(day.In(loc)))

	_, err = ParseDate("05/06/2024", loc)
	assert.Error(t, err)
}

func TestTaskInput_Task(t *testing.T) {
	in := TaskInput{Title: "Restock cups", Days: []int{5, 1, 5}}
	task := in.Task("t9")

	assert.True(t, task.Active)
	assert.Equal(t, TaskTypeCheckbox, task.Type)
	assert.Equal(t, RepeatWeekly, task.RepeatType)
	assert.Equal(t, []int{5, 1}, task.Days)

	assert.False(t, TaskInput{Title: "x", RepeatType: "one_time"}.ScheduleComplete())
	assert.True(t, TaskInput{Title: "x", RepeatType: "one_time", ScheduledDate: "2024-06-10"}.ScheduleComplete())
}
