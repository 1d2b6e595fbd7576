package docfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/0muji4/persona-prompt/internal/document"
)

// ErrOutsideDir is returned for names that resolve outside the directory.
var ErrOutsideDir = errors.New("path is outside the base directory")

// Dir reads and writes structured documents below a base directory.
type Dir struct {
	root string
}

func NewDir(root string) *Dir {
	return &Dir{root: filepath.Clean(root)}
}

// Root returns the base directory.
func (d *Dir) Root() string {
	return d.root
}

// Path resolves name inside the base directory.
func (d *Dir) Path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%q: %w", name, ErrOutsideDir)
	}
	absPath := filepath.Clean(filepath.Join(d.root, name))

	// パストラバーサル防止
	if filepath.Dir(absPath) != d.root {
		return "", fmt.Errorf("%q: %w", name, ErrOutsideDir)
	}
	return absPath, nil
}

// Ensure creates the base directory if it does not exist.
func (d *Dir) Ensure() error {
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", d.root, err)
	}
	return nil
}

// Exists reports whether name is a regular file in the directory.
func (d *Dir) Exists(name string) (bool, error) {
	path, err := d.Path(name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

// Read parses the named file into a document tree.
func (d *Dir) Read(name string) (*document.Node, error) {
	path, err := d.Path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := document.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc, nil
}

// Write marshals v as YAML and replaces the named file.
func (d *Dir) Write(name string, v any) error {
	path, err := d.Path(name)
	if err != nil {
		return err
	}
	if err := d.Ensure(); err != nil {
		return err
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Remove deletes the named file. A missing file is not an error.
func (d *Dir) Remove(name string) error {
	path, err := d.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// List returns the names of regular files ending in suffix, with the
// suffix stripped, in directory order.
func (d *Dir) List(suffix string) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", d.root, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), suffix))
	}
	return names, nil
}
