package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"github.com/imamik/boringsvc/internal/orchestration"
)

var (
	statusGreenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	statusRedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	statusDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	statusTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f9fafb"))
)

// isInteractiveTTY can be replaced in tests.
var isInteractiveTTY = func() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// Status prints the health of every configured service.
func Status(ctx context.Context, flags *pflag.FlagSet, jsonOutput bool) error {
	return withSession(ctx, flags, func(ctx context.Context, s *session) error {
		results := s.checker().CheckAll(ctx)

		if jsonOutput {
			return printStatusJSON(results)
		}
		fmt.Fprint(stdout, renderStatus(s.env.Name, results, isInteractiveTTY()))
		return nil
	})
}

// printStatusJSON outputs health results as JSON.
func printStatusJSON(results []orchestration.HealthResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	fmt.Fprintln(stdout, string(data))
	return nil
}

// renderStatus renders one table row per service host. styled adds colors.
func renderStatus(environment string, results []orchestration.HealthResult, styled bool) string {
	paint := func(style lipgloss.Style, s string) string {
		if !styled {
			return s
		}
		return style.Render(s)
	}

	t := table.NewWriter()
	if styled {
		t.SetStyle(table.StyleRounded)
	} else {
		t.SetStyle(table.StyleLight)
	}
	t.AppendHeader(table.Row{"SERVICE", "HOST", "STATUS", "DETAIL"})

	for _, r := range results {
		if r.Status == orchestration.StatusNoHost {
			t.AppendRow(table.Row{r.Service, paint(statusDimStyle, "-"), paint(statusDimStyle, "no host"), ""})
			continue
		}

		hosts := make([]string, 0, len(r.Hosts))
		for h := range r.Hosts {
			hosts = append(hosts, h)
		}
		sort.Strings(hosts)

		for _, h := range hosts {
			health := r.Hosts[h]
			state := paint(statusGreenStyle, "✓ running")
			if !health.Running {
				state = paint(statusRedStyle, "✗ stopped")
			}
			t.AppendRow(table.Row{r.Service, h, state, health.Message})
		}
	}

	return paint(statusTitleStyle, "Services in "+environment) + "\n" + t.Render() + "\n"
}
