// Package ui prints leveled, printf style log lines through pterm.
package ui

import (
	"io"
	"os"

	"github.com/pterm/pterm"
)

// SetDebug toggles debug output, driven by the --verbose flag.
func SetDebug(enabled bool) {
	pterm.PrintDebugMessages = enabled
}

// SetOutput redirects every level to w. Passing nil restores stdout.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	pterm.SetDefaultOutput(w)
}

// Debug lines carry gate decisions and skipped commands; hidden unless
// SetDebug(true).
func Debug(format string, a ...any) {
	pterm.Debug.Printfln(format, a...)
}

func Info(format string, a ...any) {
	pterm.Info.Printfln(format, a...)
}

// Warning is for degraded but running states: restore fallbacks, missing
// sensor, lost broker connection.
func Warning(format string, a ...any) {
	pterm.Warning.Printfln(format, a...)
}

func Error(format string, a ...any) {
	pterm.Error.Printfln(format, a...)
}

// Fatal logs and exits the process with status 1.
func Fatal(format string, a ...any) {
	pterm.Fatal.Printfln(format, a...)
}
