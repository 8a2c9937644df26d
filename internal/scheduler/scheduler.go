package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"gigflow/internal/events"
	"gigflow/internal/metrics"
	"gigflow/internal/sessions"

	"go.uber.org/zap"
)

var ErrAlreadyStarted = errors.New("scheduler already started")

const (
	DefaultInterval = time.Hour
	DefaultDwell    = 24 * time.Hour
)

type Config struct {
	// Interval between scans.
	Interval time.Duration
	// Dwell is how long a session sits in pending_review before it is prompted.
	Dwell time.Duration
}

// PromptPayload is published on prompt.available for each participant of a promoted session.
type PromptPayload struct {
	Session sessions.ServiceSession `json:"session"`
	Role    string                  `json:"role"`
}

// Scheduler promotes sessions past the dwell time to review_prompted.
type Scheduler struct {
	tracker *sessions.Tracker
	events  events.Publisher
	logger  *zap.SugaredLogger
	cfg     Config
	now     func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(tracker *sessions.Tracker, pub events.Publisher, logger *zap.SugaredLogger, cfg Config, opts ...Option) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Dwell <= 0 {
		cfg.Dwell = DefaultDwell
	}
	s := &Scheduler{
		tracker: tracker,
		events:  pub,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs one scan immediately, then one every Interval until Stop or ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)

	s.logger.Infow("review prompt scheduler started", "interval", s.cfg.Interval, "dwell", s.cfg.Dwell)
	return nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.runTick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runTick(ctx)
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	n, err := s.Tick(ctx)
	if err != nil {
		s.logger.Errorf("Error promoting review prompts: %v", err)
		return
	}
	s.logger.Infof("Promoted %d session(s) to review_prompted at %s", n, s.now().Format(time.RFC1123))
}

// Stop cancels future scans and waits for an in-flight scan to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Tick promotes every pending session whose age has reached Dwell. A session
// created exactly Dwell ago is promoted.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	now := s.now()
	promoted, err := s.tracker.PromoteDue(ctx, now.Add(-s.cfg.Dwell))
	if err != nil {
		return 0, err
	}

	for _, sess := range promoted {
		s.events.Publish(ctx, events.Event{
			Topic:   events.TopicPromptAvailable,
			UserID:  sess.CustomerID,
			Payload: PromptPayload{Session: sess, Role: "customer"},
		})
		if sess.ProviderID != sess.CustomerID {
			s.events.Publish(ctx, events.Event{
				Topic:   events.TopicPromptAvailable,
				UserID:  sess.ProviderID,
				Payload: PromptPayload{Session: sess, Role: "provider"},
			})
		}
	}

	metrics.SessionsPromoted.Add(float64(len(promoted)))
	metrics.SchedulerLastTick.Set(float64(now.Unix()))
	return len(promoted), nil
}

// PendingPromptsForUser lists review_prompted sessions involving userID. Clients
// poll this to decide whether to show a rating dialog.
func (s *Scheduler) PendingPromptsForUser(ctx context.Context, userID string) ([]sessions.ServiceSession, error) {
	return s.tracker.PromptedForUser(ctx, userID)
}
