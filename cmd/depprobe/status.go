package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/depprobe/internal/server"
)

type reportEnvelope struct {
	Data  server.ReportView `json:"data"`
	Error string            `json:"error"`
}

func executeStatus(cmd *cobra.Command, client *http.Client, baseURL string) error {
	out := cmd.OutOrStdout()
	url := strings.TrimRight(baseURL, "/") + "/api/checks"

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("querying status: %w", err)
	}
	defer resp.Body.Close()

	// 503 still carries the report.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return fmt.Errorf("querying status: unexpected status %d", resp.StatusCode)
	}

	var env reportEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding status: %w", err)
	}
	if env.Error != "" {
		return fmt.Errorf("querying status: %s", env.Error)
	}

	report := env.Data
	if len(report.Checks) == 0 {
		fmt.Fprintln(out, "No checks registered. Add checks to the config and restart 'depprobe serve'.")
		return nil
	}

	fmt.Fprintf(out, "Overall: %s\n", report.Status)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHECK\tTYPE\tSTATUS\tDURATION\tLAST CHECKED\tMESSAGE\tERROR")
	for _, c := range report.Checks {
		dur := "—"
		if c.DurationMs > 0 {
			dur = (time.Duration(c.DurationMs) * time.Millisecond).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Name,
			c.Type,
			c.Status,
			dur,
			c.CheckedAt.Local().Format("2006-01-02 15:04:05"),
			c.Message,
			c.Error,
		)
	}
	w.Flush()
	return nil
}
