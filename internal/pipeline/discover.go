package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Extensions lists the file extensions picked up from directories.
var Extensions = map[string]bool{
	".txt": true,
	".edi": true,
	".837": true,
	".835": true,
	".x12": true,
}

// Discover expands paths into the interchange files to process. A
// directory contributes its regular files with a known extension (not
// recursively); a file path is taken as given. The result is sorted and
// free of duplicates.
func Discover(paths ...string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		if !info.IsDir() {
			add(filepath.Clean(p))
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("pipeline: reading %s: %w", p, err)
		}
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			if Extensions[strings.ToLower(filepath.Ext(e.Name()))] {
				add(filepath.Join(p, e.Name()))
			}
		}
	}

	sort.Strings(files)
	return files, nil
}
