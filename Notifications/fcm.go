package Notifications

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"firebase.google.com/go/v4/messaging"

	"Barista/CronJobs"
)

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error)
}

// FCMNotifier pushes a "tasks ready" message to the topic of every
// coffeeshop that received new task results. Staff devices subscribe to
// coffeeshop_<id>.
type FCMNotifier struct {
	client messageSender
}

func NewFCMNotifier(client *messaging.Client) *FCMNotifier {
	return &FCMNotifier{client: client}
}

func Topic(shopID string) string {
	return "coffeeshop_" + shopID
}

func (f *FCMNotifier) Notify(ctx context.Context, report CronJobs.Report) error {
	var errs []error
	for _, shop := range report.Shops {
		if shop.Error != "" || shop.Created == 0 {
			continue
		}
		message := &messaging.Message{
			Topic: Topic(shop.ShopID),
			Data: map[string]string{
				"coffeeshop_id": shop.ShopID,
				"date":          report.Date,
				"created":       strconv.Itoa(shop.Created),
			},
			Notification: &messaging.Notification{
				Title: "Today's tasks are ready",
				Body:  fmt.Sprintf("%d new tasks for %s", shop.Created, report.Date),
			},
			Android: &messaging.AndroidConfig{
				Priority: "high",
			},
		}
		if _, err := f.client.Send(ctx, message); err != nil {
			errs = append(errs, fmt.Errorf("error sending FCM message to %s: %w", message.Topic, err))
		}
	}
	return errors.Join(errs...)
}

// Subscribe adds a device to the topic of its coffeeshop.
func (f *FCMNotifier) Subscribe(ctx context.Context, token, shopID string) error {
	resp, err := f.client.SubscribeToTopic(ctx, []string{token}, Topic(shopID))
	if err != nil {
		return fmt.Errorf("error subscribing device to %s: %w", Topic(shopID), err)
	}
	if resp.FailureCount > 0 && len(resp.Errors) > 0 {
		return fmt.Errorf("device rejected by FCM: %s", resp.Errors[0].Reason)
	}
	return nil
}
