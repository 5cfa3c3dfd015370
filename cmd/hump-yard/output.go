package main

import (
	"io"

	"github.com/0xmhha/hump-yard/pkg/display"
)

// newFormatter builds a display formatter for out. Tables are bounded by
// the terminal width and lose their borders when out is not a terminal.
func newFormatter(out io.Writer, format string) (display.Formatter, error) {
	f, err := display.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	width := display.TerminalWidth(out)
	return display.New(display.Config{
		Format:          f,
		Width:           width,
		ShowPercentiles: true,
		Compact:         width == 0,
	}), nil
}
