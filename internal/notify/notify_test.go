package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/slack-go/slack"

	"github.com/fixdeck-io/fixdeck/pkg/model"
)

type fakePoster struct {
	channels []string
	err      error
}

func (f *fakePoster) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	f.channels = append(f.channels, channelID)
	return channelID, "ts", f.err
}

func TestTicketSettledPostsToChannel(t *testing.T) {
	p := &fakePoster{}
	n := NewWithPoster(p, "#fixdeck-ops", nil)

	n.TicketSettled(context.Background(), model.Ticket{ID: "t1", Status: model.TicketCompleted})

	if len(p.channels) != 1 || p.channels[0] != "#fixdeck-ops" {
		t.Errorf("posts = %v, want one to #fixdeck-ops", p.channels)
	}
}

func TestTicketSettledSwallowsDeliveryErrors(t *testing.T) {
	p := &fakePoster{err: errors.New("channel_not_found")}
	n := NewWithPoster(p, "#ghost", nil)

	// Must not panic or propagate; the pipeline does not care.
	n.TicketSettled(context.Background(), model.Ticket{ID: "t1", Status: model.TicketFailed})
}

func TestSettleMessageCompleted(t *testing.T) {
	msg := settleMessage(model.Ticket{
		TicketNumber:     "#1042",
		Subject:          "Login page 500s",
		Status:           model.TicketCompleted,
		PullRequestURL:   "https://gitlab.internal/mr/7",
		ProcessingTimeMs: 61000,
	})
	if !strings.Contains(msg, "#1042") || !strings.Contains(msg, "1m1s") {
		t.Errorf("message = %q", msg)
	}
	if !strings.Contains(msg, "https://gitlab.internal/mr/7") {
		t.Errorf("message missing merge request link: %q", msg)
	}
}

func TestSettleMessageFailed(t *testing.T) {
	msg := settleMessage(model.Ticket{
		TicketNumber: "#7", Subject: "Export timeout", Status: model.TicketFailed,
	})
	if !strings.Contains(msg, "needs a human") {
		t.Errorf("message = %q", msg)
	}
}

func TestNewRequiresTokenAndChannel(t *testing.T) {
	if _, err := New("", "#ops", nil); err == nil {
		t.Error("empty token accepted")
	}
	if _, err := New("xoxb-1", "", nil); err == nil {
		t.Error("empty channel accepted")
	}
}
