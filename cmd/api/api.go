package main

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gigflow/internal/auth"
	"gigflow/internal/events"
	"gigflow/internal/followers"
	"gigflow/internal/infra/dbx"
	"gigflow/internal/mailer"
	"gigflow/internal/moderation"
	"gigflow/internal/pushtokens"
	"gigflow/internal/ratelimiter"
	"gigflow/internal/reviews"
	"gigflow/internal/rules"
	"gigflow/internal/scheduler"
	"gigflow/internal/sessions"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type application struct {
	config        config
	logger        *zap.SugaredLogger
	authenticator auth.Authenticator
	rateLimiter   ratelimiter.Limiter
	classifier    *moderation.Classifier
	audit         moderation.AuditLog
	tracker       *sessions.Tracker
	scheduler     *scheduler.Scheduler
	reviews       *reviews.Service
	followers     followers.Store
	pushTokens    pushtokens.Store
	events        *events.Bus
	now           func() time.Time
}

type config struct {
	addr        string
	env         string
	db          dbConfig
	auth        authConfig
	rateLimiter ratelimiter.Config
	rulesFile   string
	review      reviewConfig
	natsURL     string
	safety      mailer.Config
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}

type tokenConfig struct {
	secret string
	iss    string
}

type basicConfig struct {
	user string
	pass string
}

type dbConfig struct {
	addr         string
	maxOpenConns int
	maxIdleTime  string
}

type reviewConfig struct {
	dwell        time.Duration
	tickInterval time.Duration
}

// stores groups the persistence the core runs on. Memory and PostgreSQL
// variants are interchangeable.
type stores struct {
	sessions   sessions.Store
	reviews    reviews.Store
	audit      moderation.AuditLog
	followers  followers.Store
	pushTokens pushtokens.Store
}

func memoryStores() stores {
	return stores{
		sessions:   sessions.NewMemoryStore(),
		reviews:    reviews.NewMemoryStore(),
		audit:      moderation.NewMemoryAuditLog(),
		followers:  followers.NewMemoryStore(),
		pushTokens: pushtokens.NewMemoryStore(),
	}
}

func postgresStores(q dbx.Querier) stores {
	return stores{
		sessions:   sessions.NewRepository(q),
		reviews:    reviews.NewRepository(q),
		audit:      moderation.NewAuditRepository(q),
		followers:  followers.NewRepository(q),
		pushTokens: pushtokens.NewRepository(q),
	}
}

func newApplication(cfg config, logger *zap.SugaredLogger, st stores, provider *rules.Provider, bus *events.Bus, now func() time.Time) *application {
	tracker := sessions.NewTracker(st.sessions, provider, bus, logger, sessions.WithClock(now))

	return &application{
		config:        cfg,
		logger:        logger,
		authenticator: auth.NewJWTAuthenticator(cfg.auth.token.secret, cfg.auth.token.iss, cfg.auth.token.iss),
		rateLimiter: ratelimiter.NewFixedWindowLimiter(
			cfg.rateLimiter.RequestsPerTimeFrame,
			cfg.rateLimiter.TimeFrame,
		),
		classifier: moderation.NewClassifier(provider),
		audit:      st.audit,
		tracker:    tracker,
		scheduler: scheduler.New(tracker, bus, logger, scheduler.Config{
			Interval: cfg.review.tickInterval,
			Dwell:    cfg.review.dwell,
		}, scheduler.WithClock(now)),
		reviews:    reviews.NewService(st.reviews, bus, logger, reviews.WithClock(now)),
		followers:  st.followers,
		pushTokens: st.pushTokens,
		events:     bus,
		now:        now,
	}
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	//Set a timeout value on the request context (ctx), that will signal through ctx.Done() that the request has timed out and further processing should be stopped
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", app.healthCheckHandler)

		r.Group(func(r chi.Router) {
			r.Use(app.BasicAuthMiddleware())
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
			r.Handle("/metrics", promhttp.Handler())
			r.Get("/moderation/audit", app.getModerationAuditHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)

			r.With(app.RateLimiterMiddleware).Post("/messages", app.sendMessageHandler)
			r.With(app.RateLimiterMiddleware).Post("/calls/{gigID}/transcripts", app.postTranscriptHandler)

			r.Route("/sessions", func(r chi.Router) {
				r.Get("/pending", app.getPendingSessionsHandler)
				r.Route("/{sessionID}", func(r chi.Router) {
					r.Get("/", app.getSessionHandler)
					r.Post("/prompted", app.markPromptedHandler)
					r.Post("/complete", app.completeSessionHandler)
					r.Post("/cancel", app.cancelSessionHandler)
				})
			})
			r.Get("/prompts", app.getPromptsHandler)

			r.Post("/reviews", app.submitReviewHandler)
			r.Get("/gigs/{gigID}/reviews", app.getGigReviewsHandler)

			r.Route("/users", func(r chi.Router) {
				r.Post("/push-tokens", app.savePushTokenHandler)
				r.Delete("/push-tokens", app.removePushTokenHandler)

				r.Route("/{userID}", func(r chi.Router) {
					r.Get("/reviews", app.getUserReviewsHandler)
					r.Get("/rating", app.getUserRatingHandler)
					r.Put("/follow", app.followUserHandler)
					r.Put("/unfollow", app.unfollowUserHandler)
				})
			})
		})
	})
	return r
}

func (app *application) run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.scheduler.Stop()

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
