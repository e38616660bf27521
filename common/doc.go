// Package common provides shared constants, types, utilities, and interfaces
// used throughout the VPN provider CLI adapter.
//
// This package serves as the foundation for cross-cutting concerns:
//
//   - Constants: override groups and items, timeouts, file names
//   - Errors: the adapter's error taxonomy as sentinel errors
//   - Interfaces: abstractions for logging and desktop notifications
//   - Logger: leveled logging with optional rotated file output
//   - Utils: configuration directory and file helpers
//
// # Usage
//
//	common.LogInfo("Connecting %s to %s", providerName, country)
//
//	if errors.Is(err, common.ErrProcessFailure) {
//	    // provider binary crashed or timed out
//	}
package common
