package Models

import (
	"fmt"
	"math"
	"time"
)

type RepeatType string

const (
	RepeatWeekly  RepeatType = "weekly"
	RepeatOneTime RepeatType = "one_time"
)

type TaskType string

const (
	TaskTypeCheckbox TaskType = "checkbox"
	TaskTypePhoto    TaskType = "photo"
)

const DateLayout = "2006-01-02"

// Task is a task definition after defaults have been applied. Nothing
// downstream of TaskFromFields re-derives a default.
type Task struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Type               TaskType   `json:"type"`
	Active             bool       `json:"active"`
	RepeatType         RepeatType `json:"repeat_type"`
	Days               []int      `json:"days"`
	ScheduledDate      string     `json:"scheduled_date,omitempty"`
	ExpectedFinishTime *string    `json:"expected_finish_time"`
}

// TaskInput is the admin-facing payload for creating or replacing a task.
type TaskInput struct {
	Title              string  `json:"title" validate:"required"`
	Type               string  `json:"type" validate:"omitempty,oneof=checkbox photo"`
	Active             *bool   `json:"active"`
	RepeatType         string  `json:"repeat_type" validate:"omitempty,oneof=weekly one_time"`
	Days               []int   `json:"days" validate:"dive,min=1,max=7"`
	ScheduledDate      string  `json:"scheduled_date" validate:"omitempty,datetime=2006-01-02"`
	ExpectedFinishTime *string `json:"expected_finish_time" validate:"omitempty,datetime=15:04"`
}

// ScheduleComplete reports whether a one-time task carries its date.
func (in TaskInput) ScheduleComplete() bool {
	return normalizeRepeatType(in.RepeatType) != RepeatOneTime || in.ScheduledDate != ""
}

// Task converts the input into a normalized task with the given id.
func (in TaskInput) Task(id string) Task {
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return Task{
		ID:                 id,
		Title:              in.Title,
		Type:               normalizeTaskType(in.Type),
		Active:             active,
		RepeatType:         normalizeRepeatType(in.RepeatType),
		Days:               normalizeDays(in.Days),
		ScheduledDate:      in.ScheduledDate,
		ExpectedFinishTime: in.ExpectedFinishTime,
	}
}

// TaskFromFields builds a Task from a raw document. Malformed fields fall
// back to defaults so one bad document never blocks its siblings.
func TaskFromFields(id string, data map[string]interface{}) Task {
	t := Task{
		ID:         id,
		Title:      stringField(data["title"]),
		Type:       normalizeTaskType(stringField(data["type"])),
		RepeatType: normalizeRepeatType(stringField(data["repeat_type"])),
	}
	if active, ok := data["active"].(bool); ok {
		t.Active = active
	}
	if raw, ok := data["days"].([]interface{}); ok {
		days := make([]int, 0, len(raw))
		for _, v := range raw {
			if d, ok := intField(v); ok {
				days = append(days, d)
			}
		}
		t.Days = normalizeDays(days)
	} else if raw, ok := data["days"].([]int); ok {
		t.Days = normalizeDays(raw)
	} else {
		t.Days = []int{}
	}
	if s, ok := data["scheduled_date"].(string); ok {
		t.ScheduledDate = s
	}
	if s, ok := data["expected_finish_time"].(string); ok {
		t.ExpectedFinishTime = &s
	}
	return t
}

// Fields is the document representation written back to the store.
func (t Task) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"title":                t.Title,
		"type":                 string(t.Type),
		"active":               t.Active,
		"repeat_type":          string(t.RepeatType),
		"days":                 t.Days,
		"scheduled_date":       t.ScheduledDate,
		"expected_finish_time": nil,
	}
	if t.ExpectedFinishTime != nil {
		fields["expected_finish_time"] = *t.ExpectedFinishTime
	}
	return fields
}

// DueOn reports whether the task produces a result on date (YYYY-MM-DD)
// whose ISO weekday is isoWeekday.
func (t Task) DueOn(date string, isoWeekday int) bool {
	if !t.Active {
		return false
	}
	switch t.RepeatType {
	case RepeatOneTime:
		return t.ScheduledDate != "" && t.ScheduledDate == date
	default:
		for _, d := range t.Days {
			if d == isoWeekday {
				return true
			}
		}
		return false
	}
}

// ISOWeekday maps Go's Sunday=0 numbering onto 1=Monday..7=Sunday.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// DateIn formats the calendar day of t as seen in loc.
func DateIn(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// ParseDate validates a YYYY-MM-DD string and returns noon of that day in
// loc, which is safely inside the day regardless of DST shifts.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d.Add(12 * time.Hour), nil
}

func normalizeTaskType(s string) TaskType {
	switch TaskType(s) {
	case TaskTypePhoto:
		return TaskTypePhoto
	}
	return TaskTypeCheckbox
}

func normalizeRepeatType(s string) RepeatType {
	if RepeatType(s) == RepeatOneTime {
		return RepeatOneTime
	}
	return RepeatWeekly
}

func normalizeDays(days []int) []int {
	out := make([]int, 0, len(days))
	seen := make(map[int]bool, len(days))
	for _, d := range days {
		if d < 1 || d > 7 || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

func stringField(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}

func intField(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
