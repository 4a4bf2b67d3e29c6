package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the notasolver banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{`                  _                   _                `, "#38bdf8"},
		{`  _ __   ___  ___| |_ __ _ ___  ___ | |_   _____ _ __ `, "#22d3ee"},
		{` | '_ \ / _ \/ __| __/ _' / __|/ _ \| \ \ / / _ \ '__|`, "#2dd4bf"},
		{` | | | | (_) \__ \ || (_| \__ \ (_) | |\ V /  __/ |   `, "#34d399"},
		{` |_| |_|\___/|___/\__\__,_|___/\___/|_| \_/ \___|_|   `, "#4ade80"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
