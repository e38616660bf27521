package provider

import (
	"context"
	"strings"
	"time"

	"github.com/yllada/vpn-provider-cli/common"
)

// SettleConfig bounds the readiness polling that follows a connect.
type SettleConfig struct {
	// Timeout is the longest wait for the provider to report "up".
	// Zero disables settling.
	Timeout time.Duration
	// Interval is the first polling interval; it doubles after each miss.
	Interval time.Duration
}

// Options configures an Adapter. Zero values select defaults.
type Options struct {
	Overrides      Overrides
	Runner         Runner
	CommandTimeout time.Duration
	ConnectTimeout time.Duration
	Settle         SettleConfig
	Logger         common.Logger
}

// Adapter runs the uniform operations against any provider.
// It is safe for concurrent use.
type Adapter struct {
	overrides      Overrides
	runner         Runner
	commandTimeout time.Duration
	connectTimeout time.Duration
	settle         SettleConfig
	locks          *providerLocks
	log            common.Logger
}

// New creates an Adapter.
func New(opts Options) *Adapter {
	a := &Adapter{
		overrides:      opts.Overrides,
		runner:         opts.Runner,
		commandTimeout: opts.CommandTimeout,
		connectTimeout: opts.ConnectTimeout,
		settle:         opts.Settle,
		locks:          newProviderLocks(),
		log:            opts.Logger,
	}
	if a.overrides == nil {
		a.overrides = Table{}
	}
	if a.runner == nil {
		a.runner = NewExecRunner(common.DefaultElevation)
	}
	if a.commandTimeout <= 0 {
		a.commandTimeout = common.CommandTimeout
	}
	if a.connectTimeout <= 0 {
		a.connectTimeout = common.ConnectTimeout
	}
	if a.settle.Timeout < 0 {
		a.settle.Timeout = 0
	}
	if a.settle.Interval <= 0 {
		a.settle.Interval = common.SettleInterval
	}
	if a.log == nil {
		a.log = common.GetLogger()
	}
	return a
}

// run resolves the subcommand for item and invokes it with extra arguments.
func (a *Adapter) run(ctx context.Context, p Provider, item string, timeout time.Duration, extra ...string) (*Output, error) {
	sub := a.overrides.Resolve(p.ID, common.GroupCommands, item)
	return a.invoke(ctx, p, item, sub, timeout, extra...)
}

// invoke runs "<bin> <sub...> <extra...>". Extra arguments are never
// logged since they may carry credentials.
func (a *Adapter) invoke(ctx context.Context, p Provider, item, sub string, timeout time.Duration, extra ...string) (*Output, error) {
	args := append(strings.Fields(sub), extra...)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	a.log.Debug("%s: running %s %s", p.Name, p.BinPath, sub)
	start := time.Now()
	out, err := a.runner.Run(ctx, p.BinPath, args...)
	if out == nil {
		out = &Output{}
	}
	if err != nil {
		a.log.Warn("%s: %s failed after %v: %v", p.Name, item, time.Since(start).Round(time.Millisecond), err)
		return out, err
	}
	a.log.Debug("%s: %s returned %d lines in %v", p.Name, item, len(out.Lines), time.Since(start).Round(time.Millisecond))
	return out, nil
}

// Version returns the provider CLI version string. Without an override the
// binary is asked with "-v".
func (a *Adapter) Version(ctx context.Context, p Provider) (string, error) {
	sub := a.overrides.ResolveOr(p.ID, common.GroupCommands, common.ItemVersion, "-v")
	out, err := a.invoke(ctx, p, common.ItemVersion, sub, a.commandTimeout)
	return strings.TrimSpace(strings.Join(out.Lines, "\n")), err
}
