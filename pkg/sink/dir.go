// Package sink stores generated artifacts below an explicit output root.
//
// The layout is fixed:
//
//	<root>/data/<slug>_data.<csv|json>
//	<root>/specs/<slug>_spec.json
//	<root>/<slug>.html
//	<root>/index.html
//
// A [Dir] never creates directories on its own. Writing into a tree whose
// data/ or specs/ subdirectory is missing fails with an IO_ERROR; call
// [Dir.Init] to create the tree explicitly.
package sink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/matzehuels/visstudy/pkg/errors"
	"github.com/matzehuels/visstudy/pkg/study"
)

// Mode selects what happens when the target file already exists.
type Mode int

const (
	// Overwrite creates or truncates the file. Used for datasets and specs,
	// which are regenerated on every run.
	Overwrite Mode = iota
	// CreateOnly fails with ALREADY_EXISTS if the file exists. Used for pages
	// and the index, which are written once per path.
	CreateOnly
)

func (m Mode) String() string {
	switch m {
	case Overwrite:
		return "overwrite"
	case CreateOnly:
		return "create-only"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Dir is an output tree rooted at Root.
type Dir struct {
	Root string
}

// generated lists the cleanup masks: directory (relative to the root) and the
// file extensions removed from it.
var generated = []struct {
	dir  string
	exts []string
}{
	{study.DataDir, []string{".json", ".csv"}},
	{study.SpecsDir, []string{".json"}},
	{".", []string{study.PageExt}},
}

// Path resolves a slash-separated relative artifact path to a filesystem path.
func (d Dir) Path(rel string) (string, error) {
	if d.Root == "" {
		return "", errors.New(errors.ErrCodeInvalidPath, "output root is not set")
	}
	if err := errors.ValidatePath(rel); err != nil {
		return "", err
	}
	return filepath.Join(d.Root, filepath.FromSlash(rel)), nil
}

// Create opens rel for writing according to mode. The caller must close the
// returned file.
func (d Dir) Create(rel string, mode Mode) (*os.File, error) {
	path, err := d.Path(rel)
	if err != nil {
		return nil, err
	}

	flags := os.O_WRONLY | os.O_CREATE
	switch mode {
	case Overwrite:
		flags |= os.O_TRUNC
	case CreateOnly:
		flags |= os.O_EXCL
	default:
		return nil, errors.New(errors.ErrCodeInternal, "unknown write mode %d", int(mode))
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.Wrap(errors.ErrCodeAlreadyExists, err, "%s already exists", rel)
		}
		return nil, errors.Wrap(errors.ErrCodeIO, err, "create %s", rel)
	}
	return f, nil
}

// WriteFile writes data to rel according to mode.
func (d Dir) WriteFile(rel string, data []byte, mode Mode) error {
	f, err := d.Create(rel, mode)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", rel)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "close %s", rel)
	}
	return nil
}

// Open opens rel for reading.
func (d Dir) Open(rel string) (io.ReadCloser, error) {
	path, err := d.Path(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "%s not found", rel)
		}
		return nil, errors.Wrap(errors.ErrCodeIO, err, "open %s", rel)
	}
	return f, nil
}

// Init creates the root and its data/ and specs/ subdirectories.
func (d Dir) Init() error {
	if d.Root == "" {
		return errors.New(errors.ErrCodeInvalidPath, "output root is not set")
	}
	for _, sub := range []string{study.DataDir, study.SpecsDir} {
		if err := os.MkdirAll(filepath.Join(d.Root, sub), 0o755); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "create %s", sub)
		}
	}
	return nil
}

// Ready reports whether the data/ and specs/ subdirectories exist.
func (d Dir) Ready() bool {
	for _, sub := range []string{study.DataDir, study.SpecsDir} {
		fi, err := os.Stat(filepath.Join(d.Root, sub))
		if err != nil || !fi.IsDir() {
			return false
		}
	}
	return true
}

// Pages returns the sorted base names of the chart pages in the root,
// excluding the index. A missing root yields no pages.
func (d Dir) Pages() ([]string, error) {
	entries, err := d.readDir(".")
	if err != nil {
		return nil, err
	}

	var pages []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == study.IndexFile || filepath.Ext(name) != study.PageExt {
			continue
		}
		pages = append(pages, name)
	}
	slices.Sort(pages)
	return pages, nil
}

// Clean removes every generated file: data/*.json, data/*.csv, specs/*.json
// and *.html (the index included). It returns the number of files removed.
// Cleaning an empty or missing tree is not an error.
func (d Dir) Clean() (int, error) {
	if d.Root == "" {
		return 0, errors.New(errors.ErrCodeInvalidPath, "output root is not set")
	}

	removed := 0
	for _, g := range generated {
		entries, err := d.readDir(g.dir)
		if err != nil {
			return removed, err
		}
		for _, e := range entries {
			if e.IsDir() || !slices.Contains(g.exts, filepath.Ext(e.Name())) {
				continue
			}
			path := filepath.Join(d.Root, g.dir, e.Name())
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return removed, errors.Wrap(errors.ErrCodeIO, err, "remove %s", path)
			}
			removed++
		}
	}
	return removed, nil
}

func (d Dir) readDir(sub string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(filepath.Join(d.Root, sub))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read %s", sub)
	}
	return entries, nil
}
