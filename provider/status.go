package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/yllada/vpn-provider-cli/common"
)

// Status runs the status command and classifies the provider.
//
// Only the first output line is inspected: it is sanitized, lower-cased and
// matched against the provider's status pattern. A match means the provider
// is down; no match means it is up. Provider patterns are written to detect
// the disconnected state, so this polarity must not be inverted.
//
// A provider without a status pattern never matches, so it reads as up.
// A process failure is returned alongside the classification of whatever
// output was captured.
func (a *Adapter) Status(ctx context.Context, p Provider) (Status, error) {
	out, runErr := a.run(ctx, p, common.ItemStatus, a.commandTimeout)

	pattern := a.overrides.ResolveOr(p.ID, common.GroupRegex, common.ItemStatus, "")
	if pattern == "" {
		return StatusUp, runErr
	}
	re, err := compilePattern(pattern)
	if err != nil {
		return StatusDown, fmt.Errorf("%s status: %w", p.Name, err)
	}

	var first string
	if len(out.Lines) > 0 {
		first = out.Lines[0]
	}
	line := strings.ToLower(Sanitize(first, ""))

	if re.MatchString(line) {
		return StatusDown, runErr
	}
	return StatusUp, runErr
}
