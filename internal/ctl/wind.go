package ctl

import (
	"fmt"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

// Wind prints the wind measurements of the last wind value request.
func Wind(baseURL string, jsonOutput bool) error {
	var resp struct {
		Measurements []wire.WindMeasurement `json:"measurements"`
	}
	if err := getJSON(baseURL, "/api/wind", &resp); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, header("  WIND MEASUREMENTS"))
	fmt.Fprintln(out, rule(50))
	if len(resp.Measurements) == 0 {
		fmt.Fprintln(out, "  No measurements. Request some with wind-values.")
		fmt.Fprintln(out)
		return nil
	}
	for _, m := range resp.Measurements {
		ts := "--:--:--"
		if m.Time != nil {
			ts = m.Time.String()
		}
		fmt.Fprintf(out, "  %s  %s  %s\n",
			padRight(ts, 14),
			padRight(m.Wind.String(), 8),
			colorize(dim, string(m.ProbableMeasurementType)),
		)
	}
	fmt.Fprintln(out)
	return nil
}
