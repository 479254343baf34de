package ctl

import (
	"fmt"
	"os"
	"strings"
)

// Image prints metadata of the last display frame and, when path is set,
// saves its bytes there.
func Image(baseURL, path string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var meta ImageMeta
	if err := getJSON(baseURL, "/api/image?meta=1", &meta); err != nil {
		return err
	}

	if path != "" {
		status, body, err := getRaw(baseURL, "/api/image")
		if err != nil {
			return err
		}
		if status != 200 {
			return fmt.Errorf("HTTP %d from /api/image", status)
		}
		if err := os.WriteFile(path, body, 0o644); err != nil {
			return fmt.Errorf("save frame: %w", err)
		}
	}

	if jsonOutput {
		return printJSON(map[string]any{"image": meta, "saved_to": path})
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, header("  LAST FRAME"))
	fmt.Fprintln(out, rule(38))
	fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Format:"), meta.Format)
	fmt.Fprintf(out, "  %-12s %dx%d\n", colorize(dim, "Size:"), meta.Width, meta.Height)
	fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Bytes:"), formatBytes(int64(meta.Size)))
	fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Received:"), meta.ReceivedAt.Local().Format("15:04:05"))
	if path != "" {
		fmt.Fprintf(out, "  %-12s %s\n", colorize(dim, "Saved:"), path)
	}
	fmt.Fprintln(out)
	return nil
}
