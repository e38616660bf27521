package provider

import (
	"context"
	"fmt"

	"github.com/yllada/vpn-provider-cli/common"
)

// AccountUnavailable is the message shown when a provider reports nothing
// for its account command.
func AccountUnavailable(providerName string) string {
	return fmt.Sprintf("Account details not available from %s's Linux CLI.", providerName)
}

// AccountInfo runs the account command and returns its sanitized lines.
// Empty output is expected for providers without an account command and
// yields a single explanatory line.
func (a *Adapter) AccountInfo(ctx context.Context, p Provider) ([]string, error) {
	out, err := a.run(ctx, p, common.ItemAccount, a.commandTimeout)

	info := SanitizeLines(out.Lines, "")
	if len(info) == 0 {
		info = []string{AccountUnavailable(p.Name)}
	}
	return info, err
}
