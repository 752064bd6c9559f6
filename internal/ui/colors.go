// Package ui styles terminal output.
package ui

import "os"

// ANSI color and style constants for CLI output
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[97m"
	ColorRed    = "\033[31m"
)

var enabled = os.Getenv("NO_COLOR") == ""

// SetEnabled turns styling on or off for the helpers below.
func SetEnabled(on bool) { enabled = on }

// Enabled reports whether the helpers emit escape codes.
func Enabled() bool { return enabled }

func paint(code, s string) string {
	if !enabled {
		return s
	}
	return code + s + ColorReset
}

func Bold(s string) string { return paint(ColorBold, s) }

func Success(s string) string { return paint(ColorGreen, s) }

func Info(s string) string { return paint(ColorDim+ColorYellow, s) }

func Warn(s string) string { return paint(ColorYellow, s) }

func Error(s string) string { return paint(ColorRed, s) }

func Dim(s string) string { return paint(ColorDim, s) }

func Accent(s string) string { return paint(ColorCyan, s) }
