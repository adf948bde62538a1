package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// spinnerFrames is the braille animation cycle.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// Spinner is a single-line progress indicator for long remote operations
// (dependency resolution, source fetches). It redraws on stderr until
// stopped or until its context ends; makepkg output never interleaves with
// it because builds only start after Stop.
type Spinner struct {
	message string
	out     io.Writer
	ctx     context.Context
	cancel  context.CancelFunc
	started atomic.Bool
	stop    sync.Once
	drained chan struct{}
}

// newSpinnerWithContext creates a spinner bound to ctx, drawing on stderr.
func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	return newSpinnerTo(ctx, os.Stderr, message)
}

// newSpinnerTo draws on out instead of stderr. Tests capture output here.
func newSpinnerTo(ctx context.Context, out io.Writer, message string) *Spinner {
	ctx, cancel := context.WithCancel(ctx)
	return &Spinner{
		message: message,
		out:     out,
		ctx:     ctx,
		cancel:  cancel,
		drained: make(chan struct{}),
	}
}

// Start begins redrawing. It must be paired with Stop.
func (s *Spinner) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(s.drained)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				frame := spinnerFrames[i%len(spinnerFrames)]
				fmt.Fprintf(s.out, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.message))
			}
		}
	}()
}

// Stop halts the animation and clears the line. Safe to call more than
// once, and safe without a prior Start.
func (s *Spinner) Stop() {
	s.stop.Do(func() {
		s.cancel()
		if s.started.Load() {
			<-s.drained
		}
		fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
	})
}
