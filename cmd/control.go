package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/Dyastin-0/senddone/core"
	"github.com/Dyastin-0/senddone/logger"
	"github.com/Dyastin-0/senddone/styles"
)

// Pausable is either side of a running transfer.
type Pausable interface {
	State() core.State
	Stop() bool
	Resume() bool
	End() error
}

// control pauses or resumes t on every toggle and aborts it on abort, until
// ctx is done.
func control(ctx context.Context, t Pausable, toggle, abort <-chan os.Signal, log logger.Logger) {
	for {
		select {
		case <-ctx.Done():
			return

		case <-toggle:
			switch {
			case t.Stop():
				fmt.Println(styles.WARN.Render("paused"))
			case t.Resume():
				fmt.Println(styles.INFO.Render("resumed"))
			default:
				log.WithStr("state", t.State().String()).Debug("pause toggle ignored")
			}

		case <-abort:
			if err := t.End(); err != nil {
				log.WithErr(err).Warn("abort failed")
			}
		}
	}
}

// watch runs control for t on the process signals until the returned func
// is called.
func (a *app) watch(ctx context.Context, t Pausable) func() {
	toggle, abort, release := controlSignals()
	ctx, cancel := context.WithCancel(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		control(ctx, t, toggle, abort, a.log)
	}()

	if hint := controlHint(os.Getpid()); hint != "" {
		fmt.Println(styles.INFO.Render(hint))
	}

	return func() {
		cancel()
		<-done
		release()
	}
}
