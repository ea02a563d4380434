package tile

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// progressLine renders an in-place status line for a batch run:
//
//	Latest: NT27. So far 12/300 in 1m02s, 0.19 squares/s
//
// It refreshes at a fixed interval and supports concurrent Done calls from
// multiple worker goroutines. A nil *progressLine ignores Done.
type progressLine struct {
	w       io.Writer
	total   int64
	done    atomic.Int64
	start   time.Time
	stop    chan struct{}
	stopped chan struct{}

	mu     sync.Mutex
	latest string
}

func newProgressLine(w io.Writer, total int64) *progressLine {
	p := &progressLine{
		w:       w,
		total:   total,
		start:   time.Now(),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go p.run()
	return p
}

// Done marks the square id as handled. Safe for concurrent use.
func (p *progressLine) Done(id string) {
	if p == nil {
		return
	}
	p.done.Add(1)
	p.mu.Lock()
	p.latest = id
	p.mu.Unlock()
}

// Finish stops the refresh loop and prints the final state with a newline.
func (p *progressLine) Finish() {
	close(p.stop)
	<-p.stopped
	p.draw()
	fmt.Fprint(p.w, "\n")
}

func (p *progressLine) run() {
	defer close(p.stopped)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.draw()
		}
	}
}

func (p *progressLine) draw() {
	p.mu.Lock()
	defer p.mu.Unlock()

	done := p.done.Load()
	elapsed := time.Since(p.start)
	rate := float64(0)
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(done) / secs
	}
	latest := p.latest
	if latest == "" {
		latest = "-"
	}
	fmt.Fprintf(p.w, "\rLatest: %s. So far %d/%d in %s, %.2f squares/s\033[K",
		latest, done, p.total, formatDuration(elapsed), rate)
}

// formatDuration formats a duration concisely (e.g. "1m23s", "45s", "0s").
func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) - m*60
	return fmt.Sprintf("%dm%02ds", m, s)
}
