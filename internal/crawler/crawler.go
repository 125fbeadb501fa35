package crawler

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Crawler enumerates source files under a project root.
type Crawler struct {
	extensions []string
	ignored    []string
}

// NewCrawler creates a crawler that yields files with the given suffixes.
func NewCrawler(extensions []string) *Crawler {
	return &Crawler{
		extensions: extensions,
		ignored:    []string{".git", "vendor", "node_modules", "testdata"},
	}
}

// FindSourceFiles walks root and returns absolute paths of candidate source
// files, sorted for deterministic index builds. Test files are excluded.
func (c *Crawler) FindSourceFiles(root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			for _, ign := range c.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !c.hasSourceExt(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		if IsTestFile(rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func (c *Crawler) hasSourceExt(name string) bool {
	for _, ext := range c.extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// IsTestFile reports whether a project-relative path looks like a test file:
// any path segment literally "test" or "tests", or a "_test.<ext>" filename.
func IsTestFile(relPath string) bool {
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		if part == "test" || part == "tests" {
			return true
		}
	}
	base := filepath.Base(relPath)
	ext := filepath.Ext(base)
	return ext != "" && strings.HasSuffix(base, "_test"+ext)
}
