package provider

import (
	"context"
	"time"
)

// WaitReady polls the provider status until it reports up, the settle
// timeout expires or ctx is done. The interval starts at cfg.Interval and
// doubles after each miss. A status call that fails counts as a miss.
// It returns true once the provider is up.
func (a *Adapter) WaitReady(ctx context.Context, p Provider, cfg SettleConfig) bool {
	if cfg.Timeout <= 0 {
		return false
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = a.settle.Interval
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			a.log.Debug("%s: not up after %d checks", p.Name, attempt-1)
			return false
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return false
		}

		status, err := a.Status(ctx, p)
		if err == nil && status == StatusUp {
			a.log.Debug("%s: up after %d checks", p.Name, attempt)
			return true
		}

		interval *= 2
		timer.Reset(interval)
	}
}
