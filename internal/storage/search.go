package storage

import (
	"io/fs"
	"path"
	"path/filepath"
	"strings"
)

// SearchQuery narrows an artifact search.
type SearchQuery struct {
	Text     string // matched against the name without the artifact prefix
	Language string // first path segment; empty matches all
	Limit    int
}

// Search finds subtitle files under basePath. Translated artifacts live in
// one directory per target language, so the first path segment is reported
// as the entry's language.
func Search(basePath string, q SearchQuery) ([]*FileEntry, error) {
	text := strings.ToLower(q.Text)
	results := []*FileEntry{}

	err := filepath.WalkDir(basePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if q.Limit > 0 && len(results) >= q.Limit {
			return filepath.SkipAll
		}
		if p != basePath && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsSubtitleFile(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(basePath, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		lang := languageOf(rel)
		if q.Language != "" && !strings.EqualFold(lang, q.Language) {
			return nil
		}
		name := strings.TrimPrefix(d.Name(), ArtifactPrefix)
		if !strings.Contains(strings.ToLower(name), text) {
			return nil
		}

		entry := &FileEntry{Name: d.Name(), Path: rel, Language: lang}
		if info, err := d.Info(); err == nil {
			entry.Size = info.Size()
		}
		results = append(results, entry)
		return nil
	})

	return results, err
}

func languageOf(rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return ""
	}
	first, _, _ := strings.Cut(dir, "/")
	return first
}
