// Package provider drives third-party VPN command-line clients through one
// uniform interface: status, countries, log, account, connect, disconnect,
// connect-to-country and login.
//
// Vendor differences are described declaratively by the provider override
// document (see OverrideStore) rather than by per-provider code paths:
//
//   - cmd_overrides maps an operation name to the vendor subcommand
//   - regex holds the status pattern and the country parsing rules
//
// An item missing from the document resolves to its own name, so a vendor
// whose CLI already uses "status", "connect", ... needs no entry at all.
//
// # Output handling
//
// Every invocation captures stdout as lines. Lines are sanitized (see
// Sanitize) before they are parsed or shown. Country parsing is the only
// place where vendor formats diverge beyond what a regex can express; it is
// delegated to a CountryParser chosen by the provider's declared parser kind.
//
// # Processes
//
// Commands are executed as a discrete argv ("sudo <bin> <subcommand...>"),
// never through a shell, with a per-call timeout. Control operations on the
// same provider are serialized.
package provider
