//go:build windows

package cmd

import "os"

// No user signals on windows, the transfer can only be cancelled.
func controlSignals() (<-chan os.Signal, <-chan os.Signal, func()) {
	return nil, nil, func() {}
}

func controlHint(int) string {
	return ""
}
