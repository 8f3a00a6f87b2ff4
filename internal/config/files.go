package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ResolveInputs expands Inputs relative to rootPath, removes Exclude and
// ignored files, and returns the ESI files found in sorted order. When
// rootPath is itself an XML file it is the only input.
func (c *Config) ResolveInputs(rootPath string) ([]string, error) {
	if info, err := os.Stat(rootPath); err == nil && !info.IsDir() {
		return []string{rootPath}, nil
	}

	fileSet := make(map[string]bool)
	for _, pattern := range c.Inputs {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(rootPath, pattern)
		}

		matches, err := expandGlob(pattern)
		if err != nil {
			// Silently skip invalid patterns
			continue
		}

		for _, match := range matches {
			if strings.ToLower(filepath.Ext(match)) == ".xml" {
				fileSet[match] = true
			}
		}
	}

	for _, pattern := range c.Exclude {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(rootPath, pattern)
		}

		matches, err := expandGlob(pattern)
		if err != nil {
			continue
		}

		for _, match := range matches {
			delete(fileSet, match)
		}
	}

	cacheDir := c.Analysis.Cache.Dir
	result := make([]string, 0, len(fileSet))
	for f := range fileSet {
		if c.ShouldIgnoreFile(f) {
			continue
		}
		if cacheDir != "" && strings.Contains(filepath.ToSlash(f), "/"+filepath.ToSlash(cacheDir)+"/") {
			continue
		}
		result = append(result, f)
	}
	sort.Strings(result)
	return result, nil
}

// expandGlob expands a glob pattern, handling ** for recursive matching
func expandGlob(pattern string) ([]string, error) {
	if strings.Contains(pattern, "**") {
		return expandDoubleStarGlob(pattern)
	}
	return filepath.Glob(pattern)
}

// expandDoubleStarGlob handles ** patterns by walking the directory tree
func expandDoubleStarGlob(pattern string) ([]string, error) {
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
	// No directory component: match against the file name
	if !strings.Contains(pattern, string(filepath.Separator)) {
		matched, _ := filepath.Match(pattern, filepath.Base(path))
		return matched
	}

	if matched, _ := filepath.Match(pattern, path); matched {
		return true
	}

	if len(path) > len(pattern) {
		suffix := path[len(path)-len(pattern):]
		matched, _ := filepath.Match(pattern, suffix)
		return matched
	}

	return false
}
