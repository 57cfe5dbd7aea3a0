package Notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"Barista/CronJobs"
)

type slackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts a summary of every fan-out run to one channel.
// Required bot scope: chat:write.
type SlackNotifier struct {
	client    slackPoster
	channelID string
}

func NewSlackNotifier(token, channelID string) *SlackNotifier {
	return &SlackNotifier{client: slack.New(token), channelID: channelID}
}

func (s *SlackNotifier) Notify(ctx context.Context, report CronJobs.Report) error {
	_, _, err := s.client.PostMessageContext(ctx, s.channelID, slack.MsgOptionText(SlackSummary(report), false))
	if err != nil {
		return fmt.Errorf("error posting fan-out summary to slack: %w", err)
	}
	return nil
}

// SlackSummary renders a report as a Slack message.
func SlackSummary(r CronJobs.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Daily tasks for %s*\n", r.Date)
	if r.Error != "" {
		fmt.Fprintf(&b, ":x: Fan-out aborted: %s\n", r.Error)
		return b.String()
	}
	fmt.Fprintf(&b, "Coffeeshops: %d | New task results: %d\n", len(r.Shops), r.Created())
	for _, s := range r.Shops {
		if s.Error != "" {
			fmt.Fprintf(&b, ":warning: `%s` failed: %s\n", s.ShopID, s.Error)
			continue
		}
		fmt.Fprintf(&b, ":white_check_mark: `%s` due %d, created %d\n", s.ShopID, s.Due, s.Created)
	}
	return b.String()
}
