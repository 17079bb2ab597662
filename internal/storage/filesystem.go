package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrOutsideBase is returned for paths that escape the storage root.
var ErrOutsideBase = errors.New("path escapes storage root")

// ArtifactPrefix is prepended to translated file names.
const ArtifactPrefix = "translated_"

type FileEntry struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	IsDir    bool   `json:"is_dir"`
	Size     int64  `json:"size,omitempty"`
	Language string `json:"language,omitempty"`
}

var subtitleExtensions = map[string]bool{
	".srt": true, ".vtt": true, ".ass": true, ".ssa": true,
}

func IsSubtitleFile(name string) bool {
	return subtitleExtensions[strings.ToLower(filepath.Ext(name))]
}

// ArtifactName is the output name for a translated source file.
func ArtifactName(sourceName string) string {
	return ArtifactPrefix + filepath.Base(sourceName)
}

// resolve joins relativePath onto basePath and rejects traversal.
func resolve(basePath, relativePath string) (string, error) {
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return "", err
	}
	absFull, err := filepath.Abs(filepath.Join(absBase, relativePath))
	if err != nil {
		return "", err
	}
	if absFull != absBase && !strings.HasPrefix(absFull, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideBase, relativePath)
	}
	return absFull, nil
}

// ListDirectory returns subdirectories and subtitle files of one directory.
func ListDirectory(basePath, relativePath string) ([]*FileEntry, error) {
	fullPath, err := resolve(basePath, relativePath)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, err
	}

	result := []*FileEntry{}
	for _, entry := range entries {
		// Skip hidden files
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if !entry.IsDir() && !IsSubtitleFile(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		fe := &FileEntry{
			Name:  entry.Name(),
			Path:  filepath.ToSlash(filepath.Join(relativePath, entry.Name())),
			IsDir: entry.IsDir(),
		}
		if !entry.IsDir() {
			fe.Size = info.Size()
		}
		result = append(result, fe)
	}
	return result, nil
}

// WriteArtifact stores content under basePath/relativePath, creating directories.
func WriteArtifact(basePath, relativePath, content string) (string, error) {
	fullPath, err := resolve(basePath, relativePath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", err
	}
	tmp := fullPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return fullPath, nil
}

// ReadArtifact returns a stored subtitle file.
func ReadArtifact(basePath, relativePath string) ([]byte, error) {
	fullPath, err := resolve(basePath, relativePath)
	if err != nil {
		return nil, err
	}
	if !IsSubtitleFile(fullPath) {
		return nil, os.ErrNotExist
	}
	return os.ReadFile(fullPath)
}

// CollectSubtitleFiles expands directories in paths into the subtitle
// files they contain (recursively) and keeps plain files as given.
func CollectSubtitleFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		var found []string
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && path != p && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if !d.IsDir() && IsSubtitleFile(d.Name()) && !strings.HasPrefix(d.Name(), ArtifactPrefix) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}
