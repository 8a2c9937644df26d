package main

import (
	"context"
	"time"
)

const pushTokenMaxAge = 60 * 24 * time.Hour

func (app *application) pruneStalePushTokensDaily(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		// Run once immediately, then once a day
		for {
			if err := app.pushTokens.PruneStaleTokens(ctx, pushTokenMaxAge); err != nil {
				app.logger.Errorf("Error pruning stale push tokens: %v", err)
			} else {
				app.logger.Infof("Pruned push tokens older than %s at %s", pushTokenMaxAge, app.now().Format(time.RFC1123))
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (app *application) sweepRateLimiterEveryMinute(ctx context.Context) {
	if !app.config.rateLimiter.Enabled {
		return
	}
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := app.rateLimiter.Sweep(); n > 0 {
					app.logger.Debugf("Rate limiter dropped %d expired window(s)", n)
				}
			}
		}
	}()
}
