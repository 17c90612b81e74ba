// Package handlers implements the business logic for CLI commands.
//
// Each handler resolves settings from flags and environment variables, loads
// the selected environment from the services file, opens an SSH transport and
// runs the requested orchestration. Progress goes to stdout, logs to stderr.
package handlers
