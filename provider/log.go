package provider

import (
	"context"
	"regexp"
	"strings"

	"github.com/yllada/vpn-provider-cli/common"
)

var connectedCountry = regexp.MustCompile(`Country: (\w+)`)

// LogResult is the parsed provider log.
type LogResult struct {
	// Text is the sanitized log, one line per output line.
	Text string
	// Country is the currently connected country, empty when not reported.
	Country string
}

// Log runs the log command. Each line is sanitized on its own; the last
// "Country: <word>" line names the connected country.
func (a *Adapter) Log(ctx context.Context, p Provider) (LogResult, error) {
	out, err := a.run(ctx, p, common.ItemLog, a.commandTimeout)

	var result LogResult
	lines := make([]string, 0, len(out.Lines))
	for _, line := range SanitizeLines(out.Lines, "") {
		if m := connectedCountry.FindStringSubmatch(line); m != nil {
			result.Country = m[1]
		}
		lines = append(lines, strings.TrimLeft(line, " \t\n\r\x00\x0B"))
	}
	result.Text = strings.Join(lines, "\n")
	return result, err
}
