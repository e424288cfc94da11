package crawler

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"factlint/internal/frontend"
)

// Crawler scans directories for source files of one language.
type Crawler struct {
	frontend *frontend.Frontend
	ignored  []string
}

// NewCrawler creates a new crawler instance.
func NewCrawler(fe *frontend.Frontend) *Crawler {
	return &Crawler{
		frontend: fe,
		ignored:  []string{".git", ".gradle", ".idea", "vendor", "node_modules", "build", "target", "testdata"},
	}
}

// ScanProject walks root and hands every source file to onFile in lexical
// order. Ignored directories are skipped unless root itself is one.
func (c *Crawler) ScanProject(root string, onFile func(path string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			if path == root {
				return nil
			}
			for _, ign := range c.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if !d.Type().IsRegular() || !c.frontend.Accepts(path) {
			return nil
		}
		onFile(path)
		return nil
	})
}

// Collect resolves files and directories to a sorted, duplicate-free list of
// source files. Files named explicitly are kept even without a known
// extension check, so a single file can always be analyzed.
func (c *Crawler) Collect(roots ...string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		if err := c.ScanProject(root, add); err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
	}
	sort.Strings(out)
	return out, nil
}
