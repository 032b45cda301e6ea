package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/OpenTraceLab/motorctl/pkg/bootloader"
)

// progressBar prints bootloader progress. On a terminal it redraws one bar
// per status line; otherwise it prints each status once.
type progressBar struct {
	w      io.Writer
	tty    bool
	width  int
	status string
}

func newProgressBar(w io.Writer) *progressBar {
	p := &progressBar{w: w, width: 40}
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return p
	}
	p.tty = true
	if cols, _, err := term.GetSize(int(f.Fd())); err == nil {
		p.width = max(10, min(60, cols-36))
	}
	return p
}

func (p *progressBar) update(pr bootloader.Progress) {
	if !p.tty {
		if pr.Status != p.status {
			fmt.Fprintln(p.w, pr.Status)
			p.status = pr.Status
		}
		return
	}

	if p.status != "" && pr.Status != p.status {
		fmt.Fprintln(p.w)
	}
	p.status = pr.Status
	filled := max(0, min(p.width, int(pr.Percent()*float64(p.width)/100)))
	fmt.Fprintf(p.w, "\r%-28s [%s%s] %3.0f%%", pr.Status,
		strings.Repeat("#", filled), strings.Repeat(" ", p.width-filled), pr.Percent())
}

// finish ends the bar's line.
func (p *progressBar) finish() {
	if p.tty && p.status != "" {
		fmt.Fprintln(p.w)
	}
}
