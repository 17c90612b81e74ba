// Package config defines the per-environment service configuration consumed
// by the installer and health checker.
//
// A configuration file holds one top-level key per environment. [LoadFile]
// selects an environment, decodes it into an [Environment], applies
// defaults and validates it. The result is read-only for the rest of a run.
//
// The package also carries the process-level knobs that are not part of the
// file: CLI [Settings] bound through viper and transport [Timeouts] read
// from environment variables.
package config
