package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFakeModel(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("onnx"), 0o644))
	return path
}

func TestDefaultEntriesCoverTheFamily(t *testing.T) {
	entries := DefaultEntries()
	require.Len(t, entries, 4)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
		assert.Equal(t, e.Name+".onnx", e.File)
		assert.Equal(t, DefaultInputSize, e.InputSize)
		assert.Equal(t, []string{"face"}, e.Classes)
	}
	assert.Equal(t, []string{"yolov12n-face", "yolov12s-face", "yolov12m-face", "yolov12l-face"}, names)
}

func TestResolveByName(t *testing.T) {
	dir := t.TempDir()
	writeFakeModel(t, dir, "yolov12s-face.onnx")

	r := New(dir)
	path, entry, err := r.Resolve("yolov12s-face")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "yolov12s-face.onnx"), path)
	assert.Equal(t, "yolov12s-face", entry.Name)
}

func TestResolveByNameMissingFile(t *testing.T) {
	r := New(t.TempDir())

	_, _, err := r.Resolve("yolov12n-face")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yolov12n-face")
}

func TestResolveUnknownNameListsKnown(t *testing.T) {
	r := New(t.TempDir())

	_, _, err := r.Resolve("retina-face")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model")
	assert.Contains(t, err.Error(), "yolov12n-face")
}

func TestResolveDirectPath(t *testing.T) {
	dir := t.TempDir()
	path := writeFakeModel(t, dir, "custom-face.onnx")

	r := New(dir)
	resolved, entry, err := r.Resolve(path)
	require.NoError(t, err)

	assert.Equal(t, path, resolved)
	assert.Equal(t, "custom-face", entry.Name)
	assert.Equal(t, []string{"face"}, entry.Classes)
}

func TestResolveDirectPathMissing(t *testing.T) {
	r := New(t.TempDir())

	_, _, err := r.Resolve(filepath.Join(t.TempDir(), "nope.onnx"))
	assert.Error(t, err)
}

func TestLoadRegistryFromYAML(t *testing.T) {
	dir := t.TempDir()
	writeFakeModel(t, dir, "widerface.onnx")

	yamlPath := filepath.Join(dir, "registry.yaml")
	doc := `
models:
  - name: widerface
    file: widerface.onnx
    input_size: 320
    classes: [face]
  - name: pets
    file: pets.onnx
    classes: [cat, dog]
`
	require.NoError(t, os.WriteFile(yamlPath, []byte(doc), 0o644))

	r, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"pets", "widerface"}, r.Names())

	path, entry, err := r.Resolve("widerface")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "widerface.onnx"), path)
	assert.Equal(t, 320, entry.InputSize)

	// pets.onnx was never written, so resolving must fail first.
	_, _, err = r.Resolve("pets")
	assert.Error(t, err)

	// Once the file exists the entry works, with the omitted size
	// defaulted.
	writeFakeModel(t, dir, "pets.onnx")
	_, pets, err := r.Resolve("pets")
	require.NoError(t, err)
	assert.Equal(t, DefaultInputSize, pets.InputSize)
	assert.Equal(t, []string{"cat", "dog"}, pets.Classes)
}

func TestLoadRegistryRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "registry.yaml")
	doc := `
models:
  - name: same
    file: a.onnx
  - name: same
    file: b.onnx
`
	require.NoError(t, os.WriteFile(yamlPath, []byte(doc), 0o644))

	_, err := Load(yamlPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestLoadRegistryRejectsIncompleteEntry(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "registry.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("models:\n  - name: noname\n"), 0o644))

	_, err := Load(yamlPath)
	assert.Error(t, err)
}

func TestDefaultEntry(t *testing.T) {
	r := New(t.TempDir())
	assert.Equal(t, "yolov12n-face", r.Default().Name)
}
