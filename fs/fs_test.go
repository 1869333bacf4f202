package fs

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemoryFileSystem(t *testing.T) {
	fs := NewMemoryFileSystem()
	assert.NotNil(t, fs)
	assert.IsType(t, &afero.MemMapFs{}, fs.Fs)
}

func TestNewOsFileSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	fs, err := NewOsFileSystem(dir)
	require.NoError(t, err)

	require.NoError(t, fs.WriteFile("generated_app.py", "print('hi')\n"))

	content, err := os.ReadFile(filepath.Join(dir, "generated_app.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", string(content))
}

func TestWriteFile(t *testing.T) {
	fs := NewMemoryFileSystem()
	err := fs.WriteFile("test/file.txt", "Hello, World!")
	assert.NoError(t, err)

	content, err := fs.ReadFile("test/file.txt")
	assert.NoError(t, err)
	assert.Equal(t, "Hello, World!", content)

	require.NoError(t, fs.WriteFile("test/file.txt", "again"))
	content, err = fs.ReadFile("test/file.txt")
	assert.NoError(t, err)
	assert.Equal(t, "again", content)
}

func TestIsDir(t *testing.T) {
	fs := NewMemoryFileSystem()
	err := fs.Fs.MkdirAll("test/dir", 0755)
	assert.NoError(t, err)

	assert.True(t, fs.IsDir("test/dir"))
	assert.False(t, fs.IsDir("test/nonexistent"))
}

func TestWriteToZip(t *testing.T) {
	fs := NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile("generated_app.py", "import os\n"))
	require.NoError(t, fs.WriteFile("plan.json", "{}"))

	var buf bytes.Buffer
	require.NoError(t, fs.WriteToZip(&buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	contents := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		contents[f.Name] = string(b)
	}
	assert.Equal(t, map[string]string{"generated_app.py": "import os\n", "plan.json": "{}"}, contents)
}

func TestWriteToZip_Empty(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, NewMemoryFileSystem().WriteToZip(&buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err, "archive must be finalized even when nothing was written")
	assert.Empty(t, zr.File)
}

func TestListFiles(t *testing.T) {
	fs := NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile("REPORT.md", "# r"))
	require.NoError(t, fs.WriteFile("generated_app.py", "x"))

	files, err := fs.ListFiles()
	assert.NoError(t, err)
	assert.Equal(t, []string{"REPORT.md", "generated_app.py"}, files)
}
