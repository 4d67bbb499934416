package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	"   ___ ___  _ __   __| |_   _(_) |_",
	"  / __/ _ \\| '_ \\ / _` | | | | | __|",
	" | (_| (_) | | | | (_| | |_| | | |_",
	"  \\___\\___/|_| |_|\\__,_|\\__,_|_|\\__|",
}

var bannerColors = []string{"#38bdf8", "#22d3ee", "#2dd4bf", "#34d399"}

// PrintBanner writes the ASCII banner and version to w, colored when w is a terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, out.String(line).Foreground(p.Color(bannerColors[i])))
	}
	fmt.Fprintln(w, out.String("  v"+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}
