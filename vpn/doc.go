// Package vpn provides the action layer of the VPN provider CLI.
//
// This package turns user actions into provider adapter calls:
//
//   - Status bundle: status, log, version, account details, countries and public IP
//   - Control actions: start, stop, connect to a country and login
//   - Monitoring: periodic status polling with optional reconnect
//
// # Architecture
//
// The package is organized around two types:
//
//   - Manager: answers the status bundle and control actions for any provider
//   - Monitor: polls one provider and reports state changes
//
// # Action Flow
//
// A typical control action:
//
//  1. The CLI or dashboard calls Manager.Start() with a provider id
//  2. Manager checks the provider binary exists
//  3. The provider adapter resolves the connect subcommand and runs it
//  4. Output lines come back as leveled messages
//  5. The action is journaled and a desktop notification is shown
//
// Every outcome, including process failures and validation errors, is
// reported as messages; errors are returned alongside for callers that
// need to branch on them.
//
// # Thread Safety
//
// Manager and Monitor are safe for concurrent use. Control actions on the
// same provider are serialized by the adapter.
package vpn
