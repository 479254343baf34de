package ctl

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HealthResponse mirrors the detailed JSON of GET /healthz.
type HealthResponse struct {
	OK     bool `json:"ok"`
	Checks struct {
		Upstream struct {
			OK    bool   `json:"ok"`
			State string `json:"state"`
			URL   string `json:"url"`
		} `json:"upstream"`
		Display struct {
			OK bool `json:"ok"`
		} `json:"display"`
		WindServer struct {
			OK           bool      `json:"ok"`
			LastSignalAt time.Time `json:"last_signal_at"`
		} `json:"wind_server"`
		Websocket struct {
			Clients int `json:"clients"`
		} `json:"websocket"`
	} `json:"checks"`
}

// Health checks daemon liveness via GET /healthz and reports the upstream,
// display client and wind server checks behind it.
func Health(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	h, status, err := fetchHealth(baseURL)
	if err != nil {
		if jsonOutput {
			return printJSON(map[string]any{"healthy": false, "url": baseURL, "error": err.Error()})
		}
		return err
	}
	reachable := status == http.StatusOK

	if jsonOutput {
		return printJSON(map[string]any{"healthy": reachable && h.OK, "reachable": reachable, "url": baseURL, "checks": h.Checks})
	}

	fmt.Fprintln(out)
	if !reachable {
		fmt.Fprintf(out, "  %s  jtacontrold returned HTTP %d at %s\n\n", colorize(red, "UNHEALTHY"), status, colorize(dim, baseURL))
		return nil
	}
	label := colorize(green, "HEALTHY")
	if !h.OK {
		label = colorize(yellow, "DEGRADED")
	}
	fmt.Fprintf(out, "  %s  jtacontrold is reachable at %s\n", label, colorize(dim, baseURL))
	fmt.Fprintln(out, rule(50))

	up := h.Checks.Upstream
	fmt.Fprintf(out, "  %-14s %s %s\n", colorize(dim, "Upstream:"), colorize(stateColor(up.State), up.State), colorize(dim, up.URL))
	fmt.Fprintf(out, "  %-14s %s\n", colorize(dim, "Display:"), yesNo(h.Checks.Display.OK))
	wind := yesNo(h.Checks.WindServer.OK)
	if last := h.Checks.WindServer.LastSignalAt; !last.IsZero() {
		wind += colorize(dim, " (last signal "+last.Local().Format("15:04:05")+")")
	}
	fmt.Fprintf(out, "  %-14s %s\n", colorize(dim, "Wind server:"), wind)
	fmt.Fprintf(out, "  %-14s %d\n", colorize(dim, "Watchers:"), h.Checks.Websocket.Clients)
	fmt.Fprintln(out)

	return nil
}

func fetchHealth(baseURL string) (HealthResponse, int, error) {
	var h HealthResponse
	req, err := http.NewRequest(http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return h, 0, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return h, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return h, resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return h, resp.StatusCode, fmt.Errorf("decode /healthz: %w", err)
	}
	return h, resp.StatusCode, nil
}
