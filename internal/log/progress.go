package log

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// ProgressFunc matches the engine-wide progress callback contract (§6, §5):
// invoked synchronously from the completing worker, so implementations must
// not perform blocking I/O on the critical path.
type ProgressFunc func(completed, total int, message string)

// ProgressIndicator renders a completed/total bar with a percentage to a
// terminal; it does not estimate time remaining. On a
// non-TTY (CI, piped output) it falls back to occasional line-based updates
// so logs stay readable instead of filling with carriage returns.
type ProgressIndicator struct {
	mu        sync.Mutex
	name      string
	total     int
	current   int
	startTime time.Time
	isTTY     bool
	lastPrint time.Time
}

// NewProgressIndicator creates a progress indicator for a run of `total`
// steps. fd is the file descriptor backing the output stream (typically
// os.Stderr.Fd()); it is used only to detect TTY-ness.
func NewProgressIndicator(name string, total int, fd uintptr) *ProgressIndicator {
	return &ProgressIndicator{
		name:      name,
		total:     total,
		startTime: time.Now(),
		isTTY:     term.IsTerminal(int(fd)),
	}
}

// Update reports that `current` of `total` steps have completed.
func (p *ProgressIndicator) Update(current int, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = current

	if p.isTTY {
		p.printBar(message)
		return
	}

	// Non-TTY: throttle to at most one line per second to avoid log spam.
	if time.Since(p.lastPrint) < time.Second && current != p.total {
		return
	}
	p.lastPrint = time.Now()
	fmt.Printf("%s: %d/%d %s\n", p.name, current, p.total, message)
}

func (p *ProgressIndicator) printBar(message string) {
	var b strings.Builder
	b.WriteString("\r\033[K")
	b.WriteString(p.name)
	if p.total > 0 {
		pct := float64(p.current) / float64(p.total) * 100
		width := 20
		filled := int(float64(width) * float64(p.current) / float64(p.total))
		b.WriteString(" [")
		for i := 0; i < width; i++ {
			if i < filled {
				b.WriteString("#")
			} else {
				b.WriteString("-")
			}
		}
		b.WriteString(fmt.Sprintf("] %d/%d (%.1f%%)", p.current, p.total, pct))
	}
	if message != "" {
		b.WriteString(" - ")
		b.WriteString(message)
	}
	fmt.Print(b.String())
}

// Finish prints a final newline-terminated summary.
func (p *ProgressIndicator) Finish(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	elapsed := time.Since(p.startTime).Round(time.Millisecond)
	if p.isTTY {
		fmt.Printf("\r\033[K%s: done (%v) %s\n", p.name, elapsed, message)
	} else {
		fmt.Printf("%s: done (%v) %s\n", p.name, elapsed, message)
	}
}
