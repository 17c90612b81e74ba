// Package main is the entry point for the boringsvc CLI.
//
// boringsvc installs and manages memcached, redis, haproxy and nginx on
// remote hosts over SSH, driven by a per-environment YAML file
// (config/services.yml by default).
//
// Commands: setup, install, uninstall, restart, status.
//
// For detailed usage information, run:
//
//	boringsvc --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/boringsvc/cmd/boringsvc/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
