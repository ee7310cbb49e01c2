package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"  ___  ___ _ __ ___   ___  _ __", "#818cf8"},
	{" / __|/ _ \\ '_ ` _ \\ / _ \\| '_ \\", "#a78bfa"},
	{" \\__ \\  __/ | | | | | (_) | |_) |", "#c084fc"},
	{" |___/\\___|_| |_| |_|\\___/| .__/", "#e879f9"},
	{"                          | |", "#f472b6"},
	{"                          |_|", "#fb7185"},
}

// PrintBanner writes the ASCII banner and the version to w. Colors follow the
// environment (NO_COLOR, CLICOLOR_FORCE) and the terminal profile.
func PrintBanner(w io.Writer, version string) {
	p := termenv.EnvColorProfile()

	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, p.String(line.text).Foreground(p.Color(line.color)))
	}
	fmt.Fprintf(w, "%s\n\n", p.String("  version "+version).Faint())
}
