package fs

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// FileSystem wraps the Afero Fs interface
type FileSystem struct {
	Fs afero.Fs
}

// NewMemoryFileSystem creates a new in-memory file system
func NewMemoryFileSystem() *FileSystem {
	return &FileSystem{
		Fs: afero.NewMemMapFs(),
	}
}

// NewOsFileSystem creates a file system rooted at dir, creating dir if needed.
func NewOsFileSystem(dir string) (*FileSystem, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating output directory %s: %w", dir, err)
	}
	return &FileSystem{
		Fs: afero.NewBasePathFs(osFs, dir),
	}, nil
}

// WriteFile creates a new file with the given content or overwrites an existing file with the content
func (fs *FileSystem) WriteFile(path string, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.Fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating directory %s: %w", dir, err)
		}
	}
	err := afero.WriteFile(fs.Fs, path, []byte(content), 0644)
	if err != nil {
		return fmt.Errorf("error writing file %s: %w", path, err)
	}
	return nil
}

func (fs *FileSystem) ReadFile(path string) (string, error) {
	b, err := afero.ReadFile(fs.Fs, path)
	if err != nil {
		return "", fmt.Errorf("error reading file %s: %w", path, err)
	}
	return string(b), nil
}

// IsDir checks if a path is a directory
func (fs *FileSystem) IsDir(path string) bool {
	info, err := fs.Fs.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// WriteToZip writes every file in the file system to w as a zip archive.
func (fs *FileSystem) WriteToZip(w io.Writer) error {
	zipWriter := zip.NewWriter(w)
	closed := false
	defer func() {
		if !closed {
			zipWriter.Close()
		}
	}()

	fileCount := 0
	err := afero.Walk(fs.Fs, ".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		writer, err := zipWriter.Create(filepath.ToSlash(path))
		if err != nil {
			return fmt.Errorf("error creating zip entry for file %s: %w", path, err)
		}

		file, err := fs.Fs.Open(path)
		if err != nil {
			return fmt.Errorf("error opening file %s: %w", path, err)
		}
		defer file.Close()

		if _, err := io.Copy(writer, file); err != nil {
			return fmt.Errorf("error writing file %s to zip: %w", path, err)
		}

		fileCount++
		return nil
	})
	if err != nil {
		return fmt.Errorf("error walking file system: %w", err)
	}

	if fileCount == 0 {
		return fmt.Errorf("no files to zip")
	}

	closed = true
	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("error closing zip writer: %w", err)
	}
	return nil
}

// ListFiles returns the paths of all files, sorted.
func (fs *FileSystem) ListFiles() ([]string, error) {
	var files []string
	err := afero.Walk(fs.Fs, ".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, filepath.ToSlash(path))
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}
