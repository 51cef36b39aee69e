// Package progress renders upload progress for the console.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/mensylisir/xmsync/logger"
	xmtime "github.com/mensylisir/xmsync/time"
)

const (
	barWidth      = 30
	milestoneStep = 25
)

// Reporter turns (written, total) callbacks into a carriage-return bar on a
// terminal, or into log lines at every 25% otherwise.
type Reporter struct {
	mu        sync.Mutex
	out       io.Writer
	label     string
	tty       bool
	start     time.Time
	milestone int
	written   int64
	total     int64
	finished  bool

	// Logf receives milestone lines when out is not a terminal.
	Logf func(format string, args ...interface{})
}

// New returns a Reporter writing to out. A bar is drawn only when out is a
// terminal.
func New(out io.Writer, label string) *Reporter {
	r := &Reporter{
		out:   out,
		label: label,
		tty:   isTerminal(out),
		start: time.Now(),
		Logf:  logger.Log.Infof,
	}
	return r
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Func returns the per-chunk callback handed to the transfer channel.
func (r *Reporter) Func() func(written, total int64) {
	return r.Update
}

// Update records progress. Calls after Finish are ignored.
func (r *Reporter) Update(written, total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}
	r.written, r.total = written, total

	if r.tty {
		fmt.Fprintf(r.out, "\r%s", r.line())
		return
	}
	if total <= 0 {
		return
	}
	pct := int(written * 100 / total)
	for r.milestone+milestoneStep <= pct {
		r.milestone += milestoneStep
		r.Logf("%s: %d%% (%s / %s)", r.label, r.milestone,
			humanize.IBytes(uint64(written)), humanize.IBytes(uint64(total)))
	}
}

// Finish ends the bar and reports the transfer rate.
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}
	r.finished = true
	elapsed := time.Since(r.start)
	rate := float64(r.written)
	if secs := elapsed.Seconds(); secs > 0 {
		rate /= secs
	}
	if r.tty {
		fmt.Fprintf(r.out, "\r%s\n", r.line())
	}
	r.Logf("%s: sent %s in %s (%s/s)", r.label,
		humanize.IBytes(uint64(r.written)), xmtime.ShortDur(xmtime.Round(elapsed)), humanize.IBytes(uint64(rate)))
}

func (r *Reporter) line() string {
	filled := 0
	pct := 0
	if r.total > 0 {
		pct = int(r.written * 100 / r.total)
		filled = int(r.written * barWidth / r.total)
	}
	if filled > barWidth {
		filled = barWidth
	}
	return fmt.Sprintf("%s [%s%s] %3d%% %s / %s", r.label,
		strings.Repeat("=", filled), strings.Repeat(" ", barWidth-filled), pct,
		humanize.IBytes(uint64(r.written)), humanize.IBytes(uint64(r.total)))
}
