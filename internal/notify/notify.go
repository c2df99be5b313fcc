// Package notify pushes ticket settlement announcements to Slack.
// It is outbound-only: fixdeckd never reads from the channel.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/slack-go/slack"

	"github.com/fixdeck-io/fixdeck/pkg/model"
)

// Poster is the slice of the Slack client the notifier uses.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier announces settled tickets in one channel.
type SlackNotifier struct {
	api     Poster
	channel string
	logger  *slog.Logger
}

// New creates a notifier posting as the given bot token.
func New(token, channel string, logger *slog.Logger) (*SlackNotifier, error) {
	if token == "" {
		return nil, fmt.Errorf("notify: slack token is required")
	}
	if channel == "" {
		return nil, fmt.Errorf("notify: slack channel is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SlackNotifier{api: slack.New(token), channel: channel, logger: logger}, nil
}

// NewWithPoster creates a notifier on an existing client (for testing).
func NewWithPoster(api Poster, channel string, logger *slog.Logger) *SlackNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlackNotifier{api: api, channel: channel, logger: logger}
}

// TicketSettled posts one message for a ticket that reached a
// terminal status. Delivery failures are logged and dropped; the
// pipeline never blocks on Slack.
func (n *SlackNotifier) TicketSettled(ctx context.Context, t model.Ticket) {
	_, _, err := n.api.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(settleMessage(t), false))
	if err != nil {
		n.logger.Warn("slack notification failed", "ticket", t.ID, "error", err)
		return
	}
	n.logger.Debug("slack notification sent", "ticket", t.ID, "status", t.Status)
}

func settleMessage(t model.Ticket) string {
	took := time.Duration(t.ProcessingTimeMs) * time.Millisecond
	switch t.Status {
	case model.TicketCompleted:
		msg := fmt.Sprintf(":white_check_mark: *%s* %s fixed in %s", t.TicketNumber, t.Subject, took.Round(time.Second))
		if t.PullRequestURL != "" {
			msg += fmt.Sprintf("\n<%s|Review the merge request>", t.PullRequestURL)
		}
		return msg
	case model.TicketFailed:
		return fmt.Sprintf(":x: *%s* %s failed after %s, needs a human", t.TicketNumber, t.Subject, took.Round(time.Second))
	}
	return fmt.Sprintf("*%s* %s is now %s", t.TicketNumber, t.Subject, t.Status)
}
