package observability

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	colorReset    = "\033[0m"
	colorNeonCyan = "\033[96m"
)

const banner = `
    ___   _____________   _______________________
   /   | / ____/ ____/ | / /_  __/  _/ ____/
  / /| |/ / __/ __/ /  |/ / / /  / // /
 / ___ / /_/ / /___/ /|  / / / _/ // /___
/_/  |_\____/_____/_/ |_/ /_/ /___/\____/

        >> fix until verified <<
`

func termWidth(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 80
	}
	return w
}

// PrintBanner writes the startup banner, centered and colored, when out is a
// terminal. Otherwise it prints a single plain line.
func PrintBanner(out *os.File, addr string) {
	if !term.IsTerminal(int(out.Fd())) {
		fmt.Fprintf(out, "agentic listening on %s\n", addr)
		return
	}
	writeBanner(out, termWidth(out), addr)
}

func writeBanner(w io.Writer, width int, addr string) {
	for _, l := range strings.Split(banner, "\n") {
		padding := max((width-len(l))/2, 0)
		fmt.Fprintf(w, "%s%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan, l, colorReset)
	}
	fmt.Fprintf(w, "listening on %s\n\n", addr)
}
