package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gigflow/internal/events"
	"gigflow/internal/pushtokens"
	"gigflow/internal/scheduler"

	"github.com/9ssi7/exponent"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

var ErrNoPushTokens = errors.New("no push tokens")

const (
	maxPushRetries    = 3
	pushMaxElapsed    = 30 * time.Second
	reviewPromptTitle = "How did it go?"
)

// PromptNotifier pushes a rating reminder to each participant of a session the
// scheduler has promoted to review_prompted.
type PromptNotifier struct {
	push   PushSender
	tokens pushtokens.Store
	logger *zap.SugaredLogger

	newBackOff func() backoff.BackOff
}

func NewPromptNotifier(push PushSender, tokens pushtokens.Store, logger *zap.SugaredLogger) *PromptNotifier {
	return &PromptNotifier{
		push:   push,
		tokens: tokens,
		logger: logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = pushMaxElapsed
			return backoff.WithMaxRetries(b, maxPushRetries)
		},
	}
}

// Handle is an events.Handler for prompt.available.
func (n *PromptNotifier) Handle(ctx context.Context, e events.Event) {
	p, ok := e.Payload.(scheduler.PromptPayload)
	if !ok || e.UserID == "" {
		n.logger.Warnw("ignoring malformed prompt event", "topic", e.Topic, "user_id", e.UserID)
		return
	}
	err := n.SendReviewPrompt(ctx, e.UserID, p)
	switch {
	case errors.Is(err, ErrNoPushTokens):
		n.logger.Debugw("no push tokens for review prompt", "user_id", e.UserID)
	case err != nil:
		n.logger.Errorw("failed to push review prompt", "user_id", e.UserID, "session_id", p.Session.ID, "error", err)
	}
}

// SendReviewPrompt sends one message per registered device of userID.
func (n *PromptNotifier) SendReviewPrompt(ctx context.Context, userID string, p scheduler.PromptPayload) error {
	tokensMap, err := n.tokens.GetTokensByUserIDs(ctx, []string{userID})
	if err != nil {
		return err
	}
	tokens := dedupe(tokensMap[userID])
	if len(tokens) == 0 {
		return ErrNoPushTokens
	}

	body := "Your service has wrapped up. Tap to rate your experience."
	if p.Role == "provider" {
		body = "Your job has wrapped up. Tap to rate your customer."
	}

	msgs := make([]*exponent.Message, 0, len(tokens))
	for _, t := range tokens {
		token := exponent.Token(t)
		msgs = append(msgs, &exponent.Message{
			To:    []*exponent.Token{&token},
			Title: reviewPromptTitle,
			Body:  body,
			// client does router.push(`/${data.screen}`)
			Data: map[string]string{
				"type":       "review_prompt",
				"session_id": p.Session.ID.String(),
				"gig_id":     p.Session.GigID,
				"role":       p.Role,
				"screen":     fmt.Sprintf("gigs/%s/review", p.Session.GigID),
			},
		})
	}

	op := func() error {
		_, err := n.push.Publish(ctx, msgs)
		return err
	}
	return backoff.Retry(op, backoff.WithContext(n.newBackOff(), ctx))
}
