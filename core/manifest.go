package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"

	rootDir = "."
)

var (
	ErrInvalidManifest = errors.New("invalid manifest")
	ErrUnsafeName      = errors.New("unsafe item name")
)

// TransferItem is one manifest entry. Dir is the slash separated path of the
// parent directory inside the transfer root, "." for top level items.
type TransferItem struct {
	Name   string `json:"name"`
	Dir    string `json:"dir"`
	Type   Kind   `json:"type"`
	Size   int64  `json:"size,omitempty"`
	Source string `json:"-"`
}

func (i TransferItem) IsDir() bool {
	return i.Type == KindDirectory
}

// RelPath is the slash separated path of the item inside the transfer root.
func (i TransferItem) RelPath() string {
	return path.Join(cleanDir(i.Dir), i.Name)
}

// Manifest is the flat, parent-first list of items of one transfer.
type Manifest []TransferItem

func (m Manifest) TotalSize() int64 {
	var n int64
	for _, item := range m {
		if !item.IsDir() {
			n += item.Size
		}
	}
	return n
}

func (m Manifest) Count() (files, dirs int) {
	for _, item := range m {
		if item.IsDir() {
			dirs++
		} else {
			files++
		}
	}
	return files, dirs
}

// Index maps RelPath to the position of each item.
func (m Manifest) Index() map[string]int {
	idx := make(map[string]int, len(m))
	for i, item := range m {
		idx[item.RelPath()] = i
	}
	return idx
}

// Validate checks every entry for a known kind, a non-negative size, a name
// and directory that stay inside the transfer root, and that no two entries
// share the same (dir, name) pair.
func (m Manifest) Validate() error {
	seen := make(map[string]struct{}, len(m))

	for i, item := range m {
		if item.Type != KindFile && item.Type != KindDirectory {
			return fmt.Errorf("%w: item %d has type %q", ErrInvalidManifest, i, item.Type)
		}

		if item.Size < 0 {
			return fmt.Errorf("%w: item %d has negative size", ErrInvalidManifest, i)
		}

		if err := validateName(item.Name); err != nil {
			return fmt.Errorf("%w: item %d: %w", ErrInvalidManifest, i, err)
		}

		if err := validateDir(item.Dir); err != nil {
			return fmt.Errorf("%w: item %d: %w", ErrInvalidManifest, i, err)
		}

		key := item.RelPath()
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w: duplicate item %q", ErrInvalidManifest, key)
		}
		seen[key] = struct{}{}
	}

	return nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}

	if strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}

	if !filepath.IsLocal(name) {
		return fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}

	return nil
}

func validateDir(dir string) error {
	dir = cleanDir(dir)
	if dir == rootDir {
		return nil
	}

	if path.IsAbs(dir) || path.Clean(dir) != dir || strings.ContainsAny(dir, "\\\x00") {
		return fmt.Errorf("%w: dir %q", ErrUnsafeName, dir)
	}

	for _, elem := range strings.Split(dir, "/") {
		if err := validateName(elem); err != nil {
			return err
		}
	}

	return nil
}

func cleanDir(dir string) string {
	if dir == "" {
		return rootDir
	}
	return dir
}

// safeJoin resolves an item below root, refusing anything that would escape it.
func safeJoin(root string, item TransferItem) (string, error) {
	if err := validateName(item.Name); err != nil {
		return "", err
	}

	if err := validateDir(item.Dir); err != nil {
		return "", err
	}

	rel := filepath.FromSlash(item.RelPath())
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, rel)
	}

	return filepath.Join(root, rel), nil
}

// BuildManifest describes the selected files and directories. Directories are
// walked recursively; every directory precedes its contents. Symlinks and
// other non-regular files inside a directory are left out.
func BuildManifest(paths ...string) (Manifest, error) {
	var m Manifest

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}

		stat, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}

		if !stat.IsDir() {
			if !stat.Mode().IsRegular() {
				return nil, fmt.Errorf("%w: %s is not a regular file", ErrInvalidManifest, abs)
			}

			m = append(m, TransferItem{
				Name:   stat.Name(),
				Dir:    rootDir,
				Type:   KindFile,
				Size:   stat.Size(),
				Source: abs,
			})
			continue
		}

		items, err := walkDir(abs)
		if err != nil {
			return nil, err
		}
		m = append(m, items...)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

func walkDir(root string) (Manifest, error) {
	var m Manifest
	base := filepath.Dir(root)

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}

		dir := filepath.ToSlash(filepath.Dir(rel))

		switch {
		case d.IsDir():
			m = append(m, TransferItem{Name: d.Name(), Dir: dir, Type: KindDirectory, Source: p})

		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return nil
			}
			m = append(m, TransferItem{Name: d.Name(), Dir: dir, Type: KindFile, Size: info.Size(), Source: p})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}
