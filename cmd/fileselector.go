package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Dyastin-0/senddone/styles"
	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
)

const pageSize = 25

var ErrCanceled = errors.New("canceled")

// FileSelector browses the filesystem and collects files and whole
// directories to send.
type FileSelector struct {
	choice   string
	dir      string
	Selected map[string]os.FileInfo
	filter   string
	page     int
}

func NewFileSelector(dir string) *FileSelector {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}

	return &FileSelector{
		dir:      abs,
		Selected: make(map[string]os.FileInfo),
	}
}

func (f *FileSelector) entries() ([]os.DirEntry, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})

	if f.filter == "" {
		return entries, nil
	}

	filtered := make([]os.DirEntry, 0, len(entries))
	filter := strings.ToLower(f.filter)
	for _, entry := range entries {
		if strings.Contains(strings.ToLower(entry.Name()), filter) {
			filtered = append(filtered, entry)
		}
	}

	return filtered, nil
}

// Run shows one page at a time until the user is done or cancels.
func (f *FileSelector) Run() error {
	for {
		done, err := f.step()
		if err != nil || done {
			return err
		}
	}
}

func (f *FileSelector) step() (bool, error) {
	entries, err := f.entries()
	if err != nil {
		return false, err
	}

	pages := max((len(entries)+pageSize-1)/pageSize, 1)
	f.page = min(max(f.page, 0), pages-1)

	var options []huh.Option[string]

	if parent := filepath.Dir(f.dir); parent != f.dir {
		options = append(options, huh.NewOption("../", "up"))
	}

	filterText := "Filter files"
	if f.filter != "" {
		filterText = fmt.Sprintf("Filter: '%s'", f.filter)
	}
	options = append(options, huh.NewOption(filterText, "filter"))

	if pages > 1 {
		info := fmt.Sprintf("Page %d of %d (%d items)", f.page+1, pages, len(entries))
		options = append(options, huh.NewOption(styles.PAGE.Render(info), "page_info"))

		if f.page > 0 {
			options = append(options, huh.NewOption("<-", "prev_page"))
		}
		if f.page < pages-1 {
			options = append(options, huh.NewOption("->", "next_page"))
		}
	}

	start := f.page * pageSize
	end := min(start+pageSize, len(entries))

	for _, entry := range entries[start:end] {
		path := filepath.Join(f.dir, entry.Name())
		name := entry.Name()

		if entry.IsDir() {
			name = styles.DIR.Render(name + "/")
		}

		if _, ok := f.Selected[path]; ok {
			name = styles.SELECTED.Render("✓ " + name)
		}

		options = append(options, huh.NewOption(name, path))
	}

	options = append(options,
		huh.NewOption("Done", "done"),
		huh.NewOption("Cancel", "cancel"),
	)

	title := fmt.Sprintf("Choose files (%d selected, %s):", len(f.Selected), humanize.Bytes(uint64(f.selectedBytes())))

	err = huh.NewSelect[string]().
		Title(title).
		Description(f.dir).
		Options(options...).
		Value(&f.choice).
		Height(20).
		Run()
	if err != nil {
		return false, err
	}

	switch f.choice {
	case "cancel":
		return false, ErrCanceled
	case "done":
		return true, nil
	case "up":
		f.dir = filepath.Dir(f.dir)
		f.page = 0
	case "filter":
		return false, f.Filter()
	case "prev_page":
		f.page--
	case "next_page":
		f.page++
	case "page_info":
	default:
		return false, f.choose(f.choice)
	}

	return false, nil
}

func (f *FileSelector) Filter() error {
	var filter string

	err := huh.NewInput().
		Title("Filter:").
		Value(&filter).
		Placeholder(f.filter).
		Run()
	if err != nil {
		return err
	}

	f.filter = strings.TrimSpace(filter)
	f.page = 0
	return nil
}

func (f *FileSelector) choose(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		return nil
	}

	if !stat.IsDir() {
		f.Toggle(path, stat)
		return nil
	}

	var action string
	err = huh.NewSelect[string]().
		Title(fmt.Sprintf("Directory: %s", filepath.Base(path))).
		Options(
			huh.NewOption("Open", "open"),
			huh.NewOption("Send whole directory", "select"),
			huh.NewOption("Back", "back"),
		).
		Value(&action).
		Run()
	if err != nil {
		return nil
	}

	switch action {
	case "open":
		f.dir = path
		f.page = 0
		f.filter = ""
	case "select":
		f.Toggle(path, stat)
	}

	return nil
}

// Toggle adds or removes path. A selected directory is sent with everything
// below it.
func (f *FileSelector) Toggle(path string, stat os.FileInfo) {
	if _, ok := f.Selected[path]; ok {
		delete(f.Selected, path)
		return
	}
	f.Selected[path] = stat
}

func (f *FileSelector) selectedBytes() int64 {
	var n int64
	for _, stat := range f.Selected {
		if !stat.IsDir() {
			n += stat.Size()
		}
	}
	return n
}

func (f *FileSelector) Paths() []string {
	paths := make([]string, 0, len(f.Selected))
	for path := range f.Selected {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
