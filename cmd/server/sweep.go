package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	notificationservice "rostersync/internal/notification/service"
	"rostersync/pkg/requestcontext"
)

type sweeper interface {
	Sweep(ctx context.Context) (*notificationservice.Result, error)
}

// runSweeps triggers a notification sweep every interval until ctx ends.
// A zero interval disables the loop; sweeps can still be triggered over HTTP.
func runSweeps(ctx context.Context, s sweeper, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		log.Info("periodic notification sweep disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepOnce(ctx, s, interval, log)
		}
	}
}

func sweepOnce(ctx context.Context, s sweeper, interval time.Duration, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, interval)
	defer cancel()
	ctx = requestcontext.WithRequestID(ctx, "sweep-"+uuid.NewString())

	res, err := s.Sweep(ctx)
	if err != nil {
		log.ErrorContext(ctx, "scheduled sweep failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return
	}
	if res.Processed > 0 {
		log.InfoContext(ctx, "scheduled sweep finished",
			"request_id", requestcontext.RequestID(ctx),
			"processed", res.Processed,
		)
	}
}
