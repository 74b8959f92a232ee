package cmd

import (
	"fmt"

	"github.com/Dyastin-0/senddone/core"
	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
)

func Continue(txt string) bool {
	var confirm bool

	huh.NewConfirm().
		Title(txt).
		Affirmative("Yes").
		Negative("No").
		Value(&confirm).
		Run()

	return confirm
}

// OnRequest asks whether to accept a pending transfer.
func OnRequest(id, addr string, m core.Manifest) bool {
	confirm := false

	files, dirs := m.Count()
	title := fmt.Sprintf("Accept %d files and %d folders (%s) from %s (%s)?",
		files, dirs, humanize.Bytes(uint64(m.TotalSize())), id, addr)

	huh.NewConfirm().
		Title(title).
		Description(summary(m, 10)).
		Affirmative("Yes").
		Negative("No").
		Value(&confirm).
		Run()

	return confirm
}

// summary lists the first n top level items of m.
func summary(m core.Manifest, n int) string {
	var out string
	shown := 0

	for _, item := range m {
		if item.Dir != "." {
			continue
		}

		if shown == n {
			out += "...\n"
			break
		}

		if item.IsDir() {
			out += item.Name + "/\n"
		} else {
			out += fmt.Sprintf("%s (%s)\n", item.Name, humanize.Bytes(uint64(item.Size)))
		}
		shown++
	}

	return out
}
