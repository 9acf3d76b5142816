package main

import (
	"fmt"
	"os"
	"strings"
)

// autoSwitch is the value of an auto|on|off flag such as --ui or --color.
type autoSwitch uint8

const (
	switchAuto autoSwitch = iota
	switchOn
	switchOff
)

func parseAutoSwitch(flag, value string) (autoSwitch, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return switchAuto, nil
	case "on":
		return switchOn, nil
	case "off":
		return switchOff, nil
	}
	return switchAuto, fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
}

// enabled resolves the switch; auto follows whether f is a terminal.
func (s autoSwitch) enabled(f *os.File) bool {
	switch s {
	case switchOn:
		return true
	case switchOff:
		return false
	}
	return isTerminal(f)
}
