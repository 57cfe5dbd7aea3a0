package Models

import (
	"fmt"
	"time"
)

type TaskResultStatus string

const (
	StatusNotDone  TaskResultStatus = "Not_Done"
	StatusInReview TaskResultStatus = "In_Review"
	StatusApproved TaskResultStatus = "Approved"
	StatusRejected TaskResultStatus = "Rejected"
	StatusDone     TaskResultStatus = "Done"
	StatusMissed   TaskResultStatus = "Missed"
)

// resultIDSeparator joins task id and date in a result id.
const resultIDSeparator = "_"

// TaskResult is one task materialized for one calendar day.
type TaskResult struct {
	ID                 string           `json:"id"`
	TaskID             string           `json:"task_id"`
	Title              string           `json:"title"`
	Type               TaskType         `json:"type"`
	Status             TaskResultStatus `json:"status"`
	Date               string           `json:"date"`
	ExpectedFinishTime *string          `json:"expected_finish_time"`
	CreatedAt          time.Time        `json:"created_at"`

	UserID           *string    `json:"user_id"`
	PhotoURL         *string    `json:"photo_url"`
	ReviewComment    *string    `json:"review_comment"`
	ActualFinishTime *time.Time `json:"actual_finish_time"`
}

// ResultID is the idempotency key of the result of taskID on date.
func ResultID(taskID, date string) string {
	return taskID + resultIDSeparator + date
}

// NewTaskResult snapshots the task for date. CreatedAt is left to the store.
func NewTaskResult(t Task, date string) TaskResult {
	return TaskResult{
		ID:                 ResultID(t.ID, date),
		TaskID:             t.ID,
		Title:              t.Title,
		Type:               t.Type,
		Status:             StatusNotDone,
		Date:               date,
		ExpectedFinishTime: t.ExpectedFinishTime,
	}
}

var staffTransitions = map[TaskResultStatus][]TaskResultStatus{
	StatusNotDone:  {StatusDone, StatusInReview},
	StatusRejected: {StatusDone, StatusInReview},
}

var adminTransitions = map[TaskResultStatus][]TaskResultStatus{
	StatusNotDone:  {StatusDone, StatusInReview, StatusMissed},
	StatusInReview: {StatusApproved, StatusRejected},
	StatusRejected: {StatusDone, StatusInReview, StatusMissed},
	StatusDone:     {StatusNotDone},
}

// Transition validates moving r to next on behalf of a caller with role.
func (r TaskResult) Transition(role Role, next TaskResultStatus) error {
	table := staffTransitions
	if role.Level() >= RoleAdmin.Level() {
		table = adminTransitions
	}
	for _, allowed := range table[r.Status] {
		if allowed == next {
			return nil
		}
	}
	return fmt.Errorf("cannot move task result from %s to %s as %s", r.Status, next, role)
}

// ManualTransition is Transition for status changes made without evidence.
// Staff finish photo tasks only by uploading the photo.
func (r TaskResult) ManualTransition(role Role, next TaskResultStatus) error {
	if r.Type == TaskTypePhoto && role.Level() < RoleAdmin.Level() &&
		(next == StatusDone || next == StatusInReview) {
		return fmt.Errorf("photo task %s is completed by uploading a photo", r.ID)
	}
	return r.Transition(role, next)
}

type StatusUpdateRequest struct {
	Status        string `json:"status" validate:"required,oneof=Not_Done In_Review Approved Rejected Done Missed"`
	ReviewComment string `json:"review_comment"`
}
