package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Setup installs every enabled service of the selected environment.
func Setup(ctx context.Context, flags *pflag.FlagSet) error {
	return withSession(ctx, flags, func(ctx context.Context, s *session) error {
		fmt.Fprintf(stdout, "Setting up services for %s...\n", s.env.Name)

		report, err := s.installer().InstallAll(ctx)
		if report == nil {
			return err
		}

		for _, o := range report.Outcomes {
			if o.Err != nil {
				fmt.Fprintf(stdout, "  ✗ %s: %v\n", o.Service, o.Err)
				continue
			}
			fmt.Fprintf(stdout, "  ✓ %s installed (%s)\n", o.Service, o.Duration.Round(time.Millisecond))
		}

		if failed := len(report.Failed()); failed > 0 {
			return fmt.Errorf("%d of %d services failed to install", failed, len(report.Outcomes))
		}
		fmt.Fprintln(stdout, "All services installed.")
		return nil
	})
}

// Install installs one service.
func Install(ctx context.Context, flags *pflag.FlagSet, name string) error {
	return runServiceOperation(ctx, flags, name, "Installing", "installed", func(ctx context.Context, s *session) error {
		return s.installer().InstallService(ctx, name)
	})
}

// Uninstall stops and removes one service.
func Uninstall(ctx context.Context, flags *pflag.FlagSet, name string) error {
	return runServiceOperation(ctx, flags, name, "Uninstalling", "uninstalled", func(ctx context.Context, s *session) error {
		return s.installer().UninstallService(ctx, name)
	})
}

// Restart restarts one service.
func Restart(ctx context.Context, flags *pflag.FlagSet, name string) error {
	return runServiceOperation(ctx, flags, name, "Restarting", "restarted", func(ctx context.Context, s *session) error {
		return s.installer().RestartService(ctx, name)
	})
}

func runServiceOperation(ctx context.Context, flags *pflag.FlagSet, name, progress, done string, fn func(context.Context, *session) error) error {
	return withSession(ctx, flags, func(ctx context.Context, s *session) error {
		fmt.Fprintf(stdout, "%s %s...\n", progress, name)
		if err := fn(ctx, s); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "✓ %s %s\n", name, done)
		return nil
	})
}
