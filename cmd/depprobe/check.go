package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/depprobe/internal/checker"
	"github.com/hazz-dev/depprobe/internal/config"
	"github.com/hazz-dev/depprobe/internal/health"
)

func executeCheck(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	return runChecks(cmd.Context(), cmd.OutOrStdout(), cfg, logger)
}

func runChecks(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	reg := health.NewRegistry(logger)
	defer reg.Close()

	types := make(map[string]string, len(cfg.Checks))
	setupErrs := make(map[string]error)
	for _, c := range cfg.Checks {
		types[c.Name] = c.Type
		if err := checker.Register(reg, c, logger); err != nil {
			setupErrs[c.Name] = err
		}
	}

	report := reg.RunAll(ctx)
	byName := make(map[string]health.Result, len(report.Results))
	for _, r := range report.Results {
		byName[r.Name] = r
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHECK\tTYPE\tSTATUS\tDURATION\tMESSAGE\tERROR")
	allHealthy := true
	for _, c := range cfg.Checks {
		r, ok := byName[c.Name]
		if !ok {
			r = health.Unhealthy("not registered", setupErrs[c.Name])
		}
		dur := "—"
		if r.Duration > 0 {
			dur = r.Duration.Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Name,
			types[c.Name],
			r.Status,
			dur,
			r.Message,
			r.Error(),
		)
		if r.Status == health.StatusUnhealthy {
			allHealthy = false
		}
	}
	w.Flush()

	if !allHealthy {
		return fmt.Errorf("one or more checks are unhealthy")
	}
	return nil
}
