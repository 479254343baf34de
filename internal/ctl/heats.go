package ctl

import (
	"encoding/json"
	"fmt"

	"github.com/jonas-kell/jta-display-wall-adapter/internal/wire"
)

// Heats lists the heats in scheduled start order.
func Heats(baseURL string, jsonOutput bool) error {
	var resp struct {
		Heats []wire.HeatMeta `json:"heats"`
	}
	if err := getJSON(baseURL, "/api/heats", &resp); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	var sel StateResponse
	_ = getJSON(baseURL, "/api/state", &sel)

	fmt.Fprintln(out)
	fmt.Fprintln(out, header("  HEATS"))
	fmt.Fprintln(out, rule(76))
	if len(resp.Heats) == 0 {
		fmt.Fprintln(out, "  No heats received yet.")
		fmt.Fprintln(out)
		return nil
	}
	fmt.Fprintf(out, "  %s  %s  %s  %s\n",
		" ",
		colorize(dim, padRight("START", 20)),
		colorize(dim, padRight("NO", 5)),
		colorize(dim, "NAME / ID"),
	)
	for _, h := range resp.Heats {
		mark := " "
		if h.ID == sel.SelectedHeatID {
			mark = colorize(green, "*")
		}
		fmt.Fprintf(out, "  %s  %s  %s  %s %s\n",
			mark,
			padRight(h.ScheduledStartTimeString, 20),
			padRight(fmt.Sprint(h.Number), 5),
			h.Name,
			colorize(dim, h.ID),
		)
	}
	fmt.Fprintln(out)
	return nil
}

// Heat prints the data of the selected heat.
func Heat(baseURL string, jsonOutput bool) error {
	var resp struct {
		ID   string          `json:"id"`
		Data json.RawMessage `json:"data"`
	}
	if err := getJSON(baseURL, "/api/heat", &resp); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %s %s\n", header("HEAT"), colorize(dim, resp.ID))
	fmt.Fprintln(out, rule(50))
	if len(resp.Data) == 0 {
		fmt.Fprintln(out, "  No heat data received yet.")
		fmt.Fprintln(out)
		return nil
	}
	var v any
	if err := json.Unmarshal(resp.Data, &v); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "  ", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  %s\n\n", b)
	return nil
}
