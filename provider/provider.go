package provider

import "github.com/yllada/vpn-provider-cli/common"

// Provider identifies a VPN vendor CLI. Providers are immutable and loaded
// once from static configuration.
type Provider struct {
	// ID is unique and 1-based.
	ID          int
	Name        string
	BinPath     string
	InstallPage string
	// Parser is the declared country parser kind.
	Parser string
}

// Installed reports whether the provider binary exists.
func (p Provider) Installed() bool {
	return common.FileExists(p.BinPath)
}

// Status is the derived service state of a provider.
type Status int

const (
	StatusDown Status = iota
	StatusUp
)

// String returns "up" or "down".
func (s Status) String() string {
	if s == StatusUp {
		return "up"
	}
	return "down"
}

// Display returns the label shown to users.
func (s Status) Display() string {
	if s == StatusUp {
		return "active"
	}
	return "inactive"
}
