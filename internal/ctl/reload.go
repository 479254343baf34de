package ctl

import (
	"fmt"
	"strings"
)

type okResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Reload tells the daemon to re-read its config file from disk.
func Reload(baseURL string, jsonOutput bool) error {
	return postSimple(baseURL, "/api/reload", "RELOADED", jsonOutput)
}

// Reconnect asks the daemon to re-establish the upstream connection.
func Reconnect(baseURL string, jsonOutput bool) error {
	return postSimple(baseURL, "/api/reconnect", "RECONNECT", jsonOutput)
}

func postSimple(baseURL, path, label string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var result okResponse
	if err := postJSON(baseURL, path, nil, &result); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(result)
	}

	if result.OK {
		fmt.Fprintf(out, "\n  %s  %s\n\n", colorize(green, label), result.Message)
	} else {
		fmt.Fprintf(out, "\n  %s  %s\n\n", colorize(red, "ERROR"), result.Error)
	}
	return nil
}
