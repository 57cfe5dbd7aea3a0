// Package Notifications tells people that the day's tasks are ready.
package Notifications

import (
	"context"
	"errors"

	"Barista/CronJobs"
)

// Multi fans a report out to several notifiers and joins their errors.
type Multi []CronJobs.Notifier

func (m Multi) Notify(ctx context.Context, report CronJobs.Report) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
