package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode controls whether directory checks run under the live progress
// view. Auto resolves against whether stdout is a terminal.
type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return uiModeAuto, nil
	}
	mode := uiMode(normalized)
	switch mode {
	case uiModeAuto, uiModeOn, uiModeOff:
		return mode, nil
	}
	return "", fmt.Errorf("unknown --ui value %q (want auto, on, or off)", value)
}

func shouldUseTUI(mode uiMode) bool {
	if mode == uiModeAuto {
		return isTerminal(os.Stdout)
	}
	return mode == uiModeOn
}
