//go:build !windows

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func controlSignals() (<-chan os.Signal, <-chan os.Signal, func()) {
	toggle := make(chan os.Signal, 1)
	abort := make(chan os.Signal, 1)

	signal.Notify(toggle, syscall.SIGUSR1)
	signal.Notify(abort, syscall.SIGUSR2)

	return toggle, abort, func() {
		signal.Stop(toggle)
		signal.Stop(abort)
	}
}

func controlHint(pid int) string {
	return fmt.Sprintf("kill -USR1 %d to pause or resume, kill -USR2 %d to abort", pid, pid)
}
