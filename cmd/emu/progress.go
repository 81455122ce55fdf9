package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/DonovanMods/everest-mod-updater/internal/core"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// progressSteps is how many log lines a download prints when no terminal
// is attached (one per 25%)
const progressSteps = 4

const progressThrottle = 100 * time.Millisecond

// progressRenderer draws a progress bar on a terminal and falls back to
// occasional log lines everywhere else
type progressRenderer struct {
	out    io.Writer
	tty    bool
	logger *log.Logger

	bar   *progressbar.ProgressBar
	label string
	step  int
}

func newProgressRenderer(out io.Writer, logger *log.Logger) *progressRenderer {
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	return &progressRenderer{
		out:    out,
		tty:    tty,
		logger: logger,
	}
}

// Update is a core.ProgressFunc
func (r *progressRenderer) Update(p core.DownloadProgress) {
	if p.Label != r.label {
		r.reset()
		r.label = p.Label
	}

	if r.tty && p.TotalBytes > 0 {
		r.drawBar(p)
		return
	}
	r.logLine(p)
}

func (r *progressRenderer) drawBar(p core.DownloadProgress) {
	if r.bar == nil {
		r.bar = progressbar.NewOptions64(p.TotalBytes,
			progressbar.OptionSetWriter(r.out),
			progressbar.OptionSetDescription(p.Label),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(progressThrottle),
			progressbar.OptionClearOnFinish(),
		)
	}
	r.bar.Set64(p.Downloaded)
	if p.Done {
		r.bar.Finish()
		r.bar = nil
	}
}

func (r *progressRenderer) logLine(p core.DownloadProgress) {
	if p.Done {
		r.step = 0
		r.logger.Info("Downloaded", "mod", p.Label, "size", humanize.Bytes(uint64(p.Downloaded)))
		return
	}
	if p.TotalBytes <= 0 {
		return
	}

	step := int(p.Percentage) * progressSteps / 100
	if step <= r.step || step >= progressSteps {
		return
	}
	r.step = step
	r.logger.Info("Downloading", "mod", p.Label,
		"progress", fmt.Sprintf("%s / %s", humanize.Bytes(uint64(p.Downloaded)), humanize.Bytes(uint64(p.TotalBytes))))
}

func (r *progressRenderer) reset() {
	if r.bar != nil {
		r.bar.Finish()
		r.bar = nil
	}
	r.step = 0
}
