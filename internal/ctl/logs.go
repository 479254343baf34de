package ctl

import (
	"fmt"
	"strings"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

// LogsOptions configures the logs command.
type LogsOptions struct {
	Limit int
	Tail  bool
	JSON  bool
}

// Logs shows the current timing log view, or streams pushes live with --tail.
func Logs(baseURL string, opts LogsOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	if opts.Tail {
		return Watch(baseURL, WatchOptions{
			Filter: []string{"log", "logs"},
			JSON:   opts.JSON,
		})
	}

	path := "/api/logs"
	if opts.Limit > 0 {
		path += fmt.Sprintf("?limit=%d", opts.Limit)
	}

	var resp struct {
		Logs []wire.LogEntry `json:"logs"`
	}
	if err := getJSON(baseURL, path, &resp); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(resp)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, header("  TIMING LOGS"))
	fmt.Fprintln(out, rule(70))

	if len(resp.Logs) == 0 {
		fmt.Fprintln(out, "  No log entries.")
	} else {
		for _, e := range resp.Logs {
			printLogEntry("", e)
		}
	}

	fmt.Fprintln(out)
	return nil
}

// printLogEntry prints one log row.
func printLogEntry(prefix string, e wire.LogEntry) {
	fmt.Fprintf(out, "  %s%s  %s  %s\n",
		prefix,
		colorize(dim, e.StoredAt),
		colorize(cyan, padRight(e.NameKey, 24)),
		truncate(e.Data, 80),
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
