// Package ui prints colored status lines and download progress for the CLI.
package ui

import (
	"fmt"
	"io"
	"os"
)

// Banner is printed at the top of interactive commands
const Banner = `
  ┏━┓┏━╸┏━╸╻  ┏━┓┏━┓┏━┓╻ ╻╻ ╻
  ┣┳┛┣╸ ┣╸ ┃  ┣━┛┣┳┛┃ ┃┏╋┛┗┳┛
  ╹┗╸┗━╸┗━╸┗━╸╹  ╹┗╸┗━┛╹ ╹ ╹
`

// Output is where the Print helpers write
var Output io.Writer = os.Stdout

var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func colorize(format string) func(string) string {
	return func(text string) string {
		if NoColor {
			return text
		}
		return fmt.Sprintf(format, text)
	}
}

// NoColor disables ANSI escapes, set from NO_COLOR at startup
var NoColor = os.Getenv("NO_COLOR") != ""

func PrintBanner() {
	fmt.Fprint(Output, Cyan(Banner))
}

// PrintError prints msg in red, followed by err when given
func PrintError(msg string, err ...error) {
	if len(err) > 0 && err[0] != nil {
		msg = msg + ": " + err[0].Error()
	}
	fmt.Fprintln(Output, Red(msg))
}

func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green(msg))
}

// PrintInfo prints a "label: value" pair
func PrintInfo(label, value string) {
	fmt.Fprintf(Output, "%s: %s\n", Cyan(label), Yellow(value))
}

func PrintWarning(msg string) {
	fmt.Fprintln(Output, Yellow(msg))
}

func PrintHighlight(msg string) {
	fmt.Fprintln(Output, Magenta(msg))
}
