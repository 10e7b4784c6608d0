package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"eraser/internal/pipeline"
)

// progressObserver renders job progress. On a terminal it draws a bar;
// otherwise it prints one line per state change.
type progressObserver struct {
	mu          sync.Mutex
	out         io.Writer
	interactive bool
	bar         *progressbar.ProgressBar
}

func newProgressObserver(out io.Writer, interactive bool) *progressObserver {
	return &progressObserver{out: out, interactive: interactive}
}

func (p *progressObserver) StateChanged(_ context.Context, t pipeline.Transition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		p.bar.Describe(stateLabel(string(t.To)))
		if t.To.Terminal() {
			_ = p.bar.Finish()
			fmt.Fprintln(p.out)
			p.bar = nil
		}
		return
	}
	if !p.interactive || t.To.Terminal() {
		fmt.Fprintf(p.out, "%s\n", stateLabel(string(t.To)))
	}
}

func (p *progressObserver) Progress(_ context.Context, done, total int) {
	if !p.interactive {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription(stateLabel(string(pipeline.StateStreaming))),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("frames"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	if total != p.bar.GetMax() {
		p.bar.ChangeMax(total)
	}
	_ = p.bar.Set(done)
}
