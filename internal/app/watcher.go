package app

import (
	"context"
	"log/slog"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Watcher pings the endpoint periodically and calls onOnline on every
// offline to online transition.
type Watcher struct {
	log      *slog.Logger
	pinger   Pinger
	interval time.Duration
	onOnline func(ctx context.Context)

	online bool
}

func NewWatcher(log *slog.Logger, pinger Pinger, interval time.Duration, onOnline func(ctx context.Context)) *Watcher {
	return &Watcher{
		log:      log,
		pinger:   pinger,
		interval: interval,
		onOnline: onOnline,
		online:   true,
	}
}

// Run blocks until ctx is cancelled. A non-positive interval disables the
// watcher and Run returns at once.
func (w *Watcher) Run(ctx context.Context) error {
	if w.interval <= 0 {
		w.log.Info("connectivity watcher disabled", slog.Duration("interval", w.interval))
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *Watcher) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()

	err := w.pinger.Ping(pingCtx)
	switch {
	case err != nil && w.online:
		w.online = false
		w.log.Warn("remote endpoint unreachable", slog.String("error", err.Error()))
	case err == nil && !w.online:
		w.online = true
		w.log.Info("remote endpoint reachable again")
		w.onOnline(ctx)
	}
}
