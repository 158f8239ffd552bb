// Package models - the catalog of face detection models the pipeline
// knows how to load.
package models

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultInputSize is the square input resolution shared by the
// stock model family.
const DefaultInputSize = 640

// Entry describes one model in the registry.
type Entry struct {
	// Name is the short identifier used on the command line.
	Name string `yaml:"name"`
	// File is the ONNX file name, resolved relative to the registry
	// directory unless absolute.
	File string `yaml:"file"`
	// InputSize is the square input resolution the model expects.
	InputSize int `yaml:"input_size"`
	// Classes lists the output labels in index order.
	Classes []string `yaml:"classes"`
	// Description is free text for listings.
	Description string `yaml:"description,omitempty"`
}

// Registry maps model names to their files under a base directory.
type Registry struct {
	dir     string
	entries map[string]Entry
}

// registryFile is the on-disk YAML layout.
type registryFile struct {
	Dir    string  `yaml:"dir"`
	Models []Entry `yaml:"models"`
}

// DefaultEntries returns the stock face detection family, smallest to
// largest.
func DefaultEntries() []Entry {
	variants := []struct{ letter, desc string }{
		{"n", "nano, fastest"},
		{"s", "small"},
		{"m", "medium"},
		{"l", "large, most accurate"},
	}

	entries := make([]Entry, 0, len(variants))
	for _, v := range variants {
		name := "yolov12" + v.letter + "-face"
		entries = append(entries, Entry{
			Name:        name,
			File:        name + ".onnx",
			InputSize:   DefaultInputSize,
			Classes:     []string{"face"},
			Description: v.desc,
		})
	}
	return entries
}

// New creates a Registry holding the stock entries, with model files
// expected under dir.
func New(dir string) *Registry {
	r := &Registry{dir: dir, entries: map[string]Entry{}}
	for _, e := range DefaultEntries() {
		r.entries[e.Name] = e
	}
	return r
}

// Load reads a registry definition from a YAML file. Relative model
// files resolve against the file's `dir` field, or against the YAML
// file's own directory when `dir` is empty.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "models: reading registry")
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "models: parsing registry")
	}

	dir := file.Dir
	if dir == "" {
		dir = filepath.Dir(path)
	}

	r := &Registry{dir: dir, entries: make(map[string]Entry, len(file.Models))}
	for _, e := range file.Models {
		if e.Name == "" || e.File == "" {
			return nil, errors.Errorf("models: registry entry needs both name and file, got %+v", e)
		}
		if _, dup := r.entries[e.Name]; dup {
			return nil, errors.Errorf("models: duplicate entry %q", e.Name)
		}
		if e.InputSize == 0 {
			e.InputSize = DefaultInputSize
		}
		if len(e.Classes) == 0 {
			e.Classes = []string{"face"}
		}
		r.entries[e.Name] = e
	}
	return r, nil
}

// Names returns the registered model names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the entry used when the caller names no model: the
// smallest stock variant if registered, otherwise the first name in
// sorted order.
func (r *Registry) Default() Entry {
	if e, ok := r.entries["yolov12n-face"]; ok {
		return e
	}
	names := r.Names()
	if len(names) == 0 {
		return Entry{}
	}
	return r.entries[names[0]]
}

// Resolve turns a model name or an explicit file path into a loadable
// entry.
//
// A value containing a path separator or an .onnx suffix is treated as
// a direct path and only checked for existence. Anything else is
// looked up by name and resolved under the registry directory.
//
// Arguments:
//   - nameOrPath: a registered name like "yolov12n-face", or a path to
//     an ONNX file.
//
// Returns: the absolute-or-given model path, its registry entry
// (synthesized for direct paths) and an error when nothing matches.
func (r *Registry) Resolve(nameOrPath string) (string, Entry, error) {
	if nameOrPath == "" {
		return "", Entry{}, errors.New("models: empty model name")
	}

	if strings.ContainsRune(nameOrPath, os.PathSeparator) || strings.HasSuffix(strings.ToLower(nameOrPath), ".onnx") {
		if _, err := os.Stat(nameOrPath); err != nil {
			return "", Entry{}, errors.Wrapf(err, "models: model file %s", nameOrPath)
		}
		stem := strings.TrimSuffix(filepath.Base(nameOrPath), filepath.Ext(nameOrPath))
		return nameOrPath, Entry{
			Name:      stem,
			File:      filepath.Base(nameOrPath),
			InputSize: DefaultInputSize,
			Classes:   []string{"face"},
		}, nil
	}

	e, ok := r.entries[nameOrPath]
	if !ok {
		return "", Entry{}, errors.Errorf("models: unknown model %q, known: %s",
			nameOrPath, strings.Join(r.Names(), ", "))
	}

	path := e.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.dir, e.File)
	}
	if _, err := os.Stat(path); err != nil {
		return "", Entry{}, errors.Wrapf(err, "models: model %q expects file %s", e.Name, path)
	}
	return path, e, nil
}
