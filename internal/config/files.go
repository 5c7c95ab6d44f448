package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ResolveFiles expands the include patterns under rootPath, keeps files
// with a configured extension, drops excluded files and files inside
// ignored directories, and returns the result sorted. A rootPath naming a
// single file resolves to that file.
func (c *Config) ResolveFiles(rootPath string) ([]string, error) {
	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{rootPath}, nil
	}

	ignore := make(map[string]bool, len(c.Files.IgnoreDirs))
	for _, d := range c.Files.IgnoreDirs {
		ignore[d] = true
	}

	fileSet := make(map[string]bool)
	for _, pattern := range c.Files.Include {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(rootPath, pattern)
		}

		matches, err := expandGlob(pattern, ignore)
		if err != nil {
			// Silently skip invalid patterns
			continue
		}

		for _, match := range matches {
			if c.hasSourceExtension(match) && !inIgnoredDir(rootPath, match, ignore) {
				fileSet[match] = true
			}
		}
	}

	for _, pattern := range c.Files.Exclude {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(rootPath, pattern)
		}

		matches, err := expandGlob(pattern, ignore)
		if err != nil {
			continue
		}

		for _, match := range matches {
			delete(fileSet, match)
		}
	}

	result := make([]string, 0, len(fileSet))
	for f := range fileSet {
		result = append(result, f)
	}
	sort.Strings(result)
	return result, nil
}

// IsSourceFile reports whether path has a configured source extension and
// lies outside ignored directories under rootPath.
func (c *Config) IsSourceFile(rootPath, path string) bool {
	ignore := make(map[string]bool, len(c.Files.IgnoreDirs))
	for _, d := range c.Files.IgnoreDirs {
		ignore[d] = true
	}
	return c.hasSourceExtension(path) && !inIgnoredDir(rootPath, path, ignore)
}

// IsIgnoredDir reports whether a directory with this base name is skipped.
func (c *Config) IsIgnoredDir(name string) bool {
	for _, d := range c.Files.IgnoreDirs {
		if d == name {
			return true
		}
	}
	return false
}

func (c *Config) hasSourceExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range c.Files.Extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

func inIgnoredDir(rootPath, path string, ignore map[string]bool) bool {
	rel, err := filepath.Rel(rootPath, path)
	if err != nil {
		rel = path
	}
	parts := strings.Split(filepath.Dir(rel), string(filepath.Separator))
	for _, part := range parts {
		if ignore[part] {
			return true
		}
	}
	return false
}

// expandGlob expands a glob pattern, handling ** for recursive matching
func expandGlob(pattern string, ignore map[string]bool) ([]string, error) {
	if strings.Contains(pattern, "**") {
		return expandDoubleStarGlob(pattern, ignore)
	}
	return filepath.Glob(pattern)
}

// expandDoubleStarGlob handles ** patterns by walking the directory tree
func expandDoubleStarGlob(pattern string, ignore map[string]bool) ([]string, error) {
	var results []string

	parts := strings.SplitN(pattern, "**", 2)
	if len(parts) != 2 {
		return filepath.Glob(pattern)
	}

	baseDir := filepath.Clean(parts[0])
	if baseDir == "" {
		baseDir = "."
	}
	suffix := strings.TrimPrefix(parts[1], string(filepath.Separator))

	err := filepath.Walk(baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}

		if info.IsDir() {
			if path != baseDir && ignore[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if suffix == "" {
			results = append(results, path)
			return nil
		}

		relPath, err := filepath.Rel(baseDir, path)
		if err != nil {
			return nil
		}

		if matchSuffix(relPath, suffix) {
			results = append(results, path)
		}

		return nil
	})

	return results, err
}

// matchSuffix checks if a path matches a suffix pattern (after **)
func matchSuffix(path, pattern string) bool {
	pattern = strings.TrimPrefix(pattern, string(filepath.Separator))

	// If pattern has no directory component, match against filename
	if !strings.Contains(pattern, string(filepath.Separator)) {
		matched, _ := filepath.Match(pattern, filepath.Base(path))
		return matched
	}

	matched, _ := filepath.Match(pattern, path)
	if matched {
		return true
	}

	if len(path) > len(pattern) {
		suffix := path[len(path)-len(pattern):]
		matched, _ = filepath.Match(pattern, suffix)
		return matched
	}

	return false
}
