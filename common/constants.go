// Package common provides shared constants, types, and utilities
// used across the VPN provider CLI adapter.
package common

import "time"

// Application metadata.
const (
	// AppID is the unique identifier for the application.
	AppID = "com.vpnprovidercli.app"
	// AppName is the display name of the application.
	AppName = "VPN Provider CLI"
	// ConfigDirName is the name of the configuration directory.
	ConfigDirName = "vpn-provider-cli"
)

// File names used by the application.
const (
	ConfigFileName      = "config.yaml"
	ProvidersFileName   = "providers.json"
	HistoryFileName     = "history.db"
	CredentialsFileName = ".credentials"
	LogFileName         = "vpn-provider-cli.log"
)

// Default timeouts and intervals.
const (
	// CommandTimeout bounds a single provider CLI invocation.
	CommandTimeout = 30 * time.Second
	// ConnectTimeout bounds connect invocations, which may try many servers.
	ConnectTimeout = 60 * time.Second
	// SettleTimeout is how long to wait for a provider to report "up" after connect.
	SettleTimeout = 3 * time.Second
	// SettleInterval is the first polling interval while settling.
	SettleInterval = 500 * time.Millisecond
	// PublicIPTimeout bounds the public IP lookup.
	PublicIPTimeout = 5 * time.Second
	// OverrideReloadDebounce collapses bursts of writes to the override document.
	OverrideReloadDebounce = 150 * time.Millisecond
)

// Provider process defaults.
const (
	// DefaultElevation is the privilege prefix placed before every provider binary.
	DefaultElevation = "sudo"
	// DefaultPublicIPURL returns the caller's public address as plain text.
	DefaultPublicIPURL = "https://ipinfo.io/ip"
)

// Override groups and items of the provider override document.
const (
	GroupCommands = "cmd_overrides"
	GroupRegex    = "regex"

	ItemStatus     = "status"
	ItemConnect    = "connect"
	ItemDisconnect = "disconnect"
	ItemCountries  = "countries"
	ItemLog        = "log"
	ItemAccount    = "account"
	ItemLogin      = "login"
	ItemVersion    = "version"
	ItemPattern    = "pattern"
	ItemReplace    = "replace"
	ItemSlice      = "slice"
)

// Country parser kinds a provider may declare.
const (
	ParserCSV    = "csv"
	ParserTokens = "tokens"
)
