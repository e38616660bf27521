package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/yllada/vpn-provider-cli/common"
)

// NotReadyMessage is the warning added when a provider does not come up
// within the settle timeout after a connect.
func NotReadyMessage(p Provider) Message {
	return Warning(fmt.Sprintf("%s is still connecting, check the status again shortly", p.Name))
}

// Connect runs the connect command and waits for the provider to settle.
// Every sanitized output line becomes an informational message.
func (a *Adapter) Connect(ctx context.Context, p Provider) ([]Message, error) {
	return a.connect(ctx, p)
}

// ConnectToCountry connects to the given country code. A blank country is
// rejected with common.ErrValidation before anything is invoked.
func (a *Adapter) ConnectToCountry(ctx context.Context, p Provider, country string) ([]Message, error) {
	country = strings.TrimSpace(country)
	if country == "" {
		return nil, fmt.Errorf("%w: no country selected", common.ErrValidation)
	}
	return a.connect(ctx, p, country)
}

func (a *Adapter) connect(ctx context.Context, p Provider, extra ...string) ([]Message, error) {
	unlock := a.locks.lock(p.ID)
	defer unlock()

	out, err := a.run(ctx, p, common.ItemConnect, a.connectTimeout, extra...)
	msgs := infoLines(SanitizeLines(out.Lines, ""))
	if err != nil {
		return append(msgs, FailureMessage(p, err)), err
	}

	if a.settle.Timeout > 0 && !a.WaitReady(ctx, p, a.settle) {
		msgs = append(msgs, NotReadyMessage(p))
	}
	return msgs, nil
}

// Disconnect runs the disconnect command. Every output line becomes an
// informational message.
func (a *Adapter) Disconnect(ctx context.Context, p Provider) ([]Message, error) {
	unlock := a.locks.lock(p.ID)
	defer unlock()

	out, err := a.run(ctx, p, common.ItemDisconnect, a.commandTimeout)
	msgs := infoLines(SanitizeLines(out.Lines, ""))
	if err != nil {
		return append(msgs, FailureMessage(p, err)), err
	}
	return msgs, nil
}

// Login passes token to the provider login command. Providers without a
// login override are asked with "login".
func (a *Adapter) Login(ctx context.Context, p Provider, token string) ([]Message, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty login token", common.ErrValidation)
	}

	unlock := a.locks.lock(p.ID)
	defer unlock()

	sub := a.overrides.ResolveOr(p.ID, common.GroupCommands, common.ItemLogin, "login")
	out, err := a.invoke(ctx, p, common.ItemLogin, sub, a.commandTimeout, token)
	msgs := infoLines(SanitizeLines(out.Lines, ""))
	if err != nil {
		return append(msgs, FailureMessage(p, err)), err
	}
	return msgs, nil
}
