package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"time"

	"gigflow/internal/db"
	"gigflow/internal/events"
	"gigflow/internal/mailer"
	"gigflow/internal/notifications"
	"gigflow/internal/ratelimiter"
	"gigflow/internal/rules"
	"gigflow/internal/scheduler"

	"github.com/9ssi7/exponent"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func envString(key, fallback string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	val, exists := os.LookupEnv(key)
	if !exists || val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		fmt.Printf("Invalid %s, defaulting to %d\n", key, fallback)
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	val, exists := os.LookupEnv(key)
	if !exists || val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		fmt.Printf("Invalid %s, defaulting to %t\n", key, fallback)
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists || val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil || parsed <= 0 {
		fmt.Printf("Invalid %s, defaulting to %s\n", key, fallback)
		return fallback
	}
	return parsed
}

// LoadRateLimiterConfig retrieves rate limiter settings from environment variables
func LoadRateLimiterConfig() ratelimiter.Config {
	return ratelimiter.Config{
		RequestsPerTimeFrame: envInt("RATELIMITER_REQUESTS_COUNT", 200),
		TimeFrame:            5 * time.Second,
		Enabled:              envBool("RATE_LIMITER_ENABLED", false),
	}
}

func loadConfig() config {
	return config{
		addr: envString("ADDR", ":8080"),
		env:  envString("ENV", "development"),
		db: dbConfig{
			addr:         os.Getenv("DB_ADDR"),
			maxOpenConns: envInt("DB_MAX_OPEN_CONNS", 30),
			maxIdleTime:  envString("DB_MAX_IDLE_TIME", "15m"),
		},
		auth: authConfig{
			basic: basicConfig{
				user: os.Getenv("AUTH_BASIC_USER"),
				pass: os.Getenv("AUTH_BASIC_PASS"),
			},
			token: tokenConfig{
				secret: os.Getenv("AUTH_TOKEN_SECRET"),
				iss:    envString("AUTH_TOKEN_ISS", "gigflow"),
			},
		},
		rateLimiter: LoadRateLimiterConfig(),
		rulesFile:   os.Getenv("RULES_FILE"),
		review: reviewConfig{
			dwell:        envDuration("REVIEW_DWELL", scheduler.DefaultDwell),
			tickInterval: envDuration("REVIEW_TICK_INTERVAL", scheduler.DefaultInterval),
		},
		natsURL: os.Getenv("NATS_URL"),
		safety: mailer.Config{
			Host:      os.Getenv("SAFETY_SMTP_HOST"),
			Port:      envInt("SAFETY_SMTP_PORT", 587),
			Username:  os.Getenv("SAFETY_SMTP_USER"),
			Password:  os.Getenv("SAFETY_SMTP_PASS"),
			FromEmail: os.Getenv("SAFETY_FROM_EMAIL"),
			ToEmail:   os.Getenv("SAFETY_TO_EMAIL"),
			AuditURL:  os.Getenv("SAFETY_AUDIT_URL"),
		},
	}
}

// NewLogger creates a new zap logger with color.
func NewLogger(env string) (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)

	level := zapcore.InfoLevel
	if env == "development" {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level)

	return zap.New(core).Sugar(), nil
}

var version = "0.1.0"

//	@title			Gigflow API
//	@description	Content screening, service completion detection and two-sided reviews for the gig marketplace.

//	@BasePath					/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@securityDefinitions.basic	BasicAuth

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded (%v), using process environment", err)
	}
	cfg := loadConfig()

	logger, err := NewLogger(cfg.env)
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	if cfg.auth.token.secret == "" {
		logger.Fatal("AUTH_TOKEN_SECRET must be set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Rules
	rs, err := rules.LoadFile(cfg.rulesFile)
	if err != nil {
		logger.Fatalw("failed to load rules", "file", cfg.rulesFile, "error", err)
	}
	provider := rules.NewProvider(rs)
	if cfg.rulesFile != "" {
		watcher, err := rules.NewWatcher(logger, provider, cfg.rulesFile)
		if err != nil {
			logger.Fatal(err)
		}
		if err := watcher.Start(ctx); err != nil {
			logger.Fatal(err)
		}
		defer watcher.Stop()
	}

	// Storage
	st := memoryStores()
	if cfg.db.addr != "" {
		pool, err := db.New(db.Config{
			Addr:         cfg.db.addr,
			MaxOpenConns: int32(cfg.db.maxOpenConns),
			MaxIdleTime:  cfg.db.maxIdleTime,
		})
		if err != nil {
			logger.Fatal(err)
		}
		defer pool.Close()
		logger.Info("database connection pool established")

		if err := db.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal(err)
		}
		st = postgresStores(pool)

		expvar.Publish("database", expvar.Func(func() any {
			return pool.Stat().TotalConns()
		}))
	} else {
		logger.Warn("DB_ADDR is empty, sessions and reviews are kept in memory")
	}

	// Events
	bus := events.NewBus(logger)

	push := notifications.NewPromptNotifier(notifications.NewExpoAdapter(exponent.NewClient()), st.pushTokens, logger)
	bus.Subscribe(events.TopicPromptAvailable, push.Handle)

	if cfg.safety.ToEmail != "" {
		safety, err := mailer.NewSafetyMailer(cfg.safety, logger)
		if err != nil {
			logger.Fatal(err)
		}
		bus.Subscribe(events.TopicContentReported, safety.Handle)
	} else {
		logger.Warn("SAFETY_TO_EMAIL is empty, reported content is only audited")
	}

	if cfg.natsURL != "" {
		conn, err := events.ConnectNATS(cfg.natsURL)
		if err != nil {
			logger.Fatal(err)
		}
		defer conn.Drain()
		bus.SubscribeAll(events.NewNATSForwarder(conn, logger).Handle)
		logger.Infow("forwarding events to NATS", "url", cfg.natsURL)
	}

	// Handlers may still write to NATS and the database while the bus drains.
	defer bus.Close()

	app := newApplication(cfg, logger, st, provider, bus, time.Now)

	if err := app.scheduler.Start(ctx); err != nil {
		logger.Fatal(err)
	}
	defer app.scheduler.Stop()

	app.pruneStalePushTokensDaily(ctx)
	app.sweepRateLimiterEveryMinute(ctx)

	//Metrics collected http://localhost:8080/v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.mount()

	if err := app.run(mux); err != nil {
		logger.Error(err)
	}
}
