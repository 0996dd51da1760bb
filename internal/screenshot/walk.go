// Package screenshot finds the image artifacts produced by a test run.
package screenshot

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExtensions are the file extensions uploaded when none are configured.
var DefaultExtensions = []string{"png"}

// File is one candidate screenshot. RelativePath is slash-separated and
// relative to the walked root; it identifies the file within a run.
type File struct {
	Name         string
	RelativePath string
	AbsPath      string
}

// Walk returns every file below root whose extension is in extensions,
// sorted by relative path so that upload order is stable between runs.
func Walk(root string, extensions []string) ([]File, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading screenshots folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("screenshots folder %s is not a directory", root)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving screenshots folder: %w", err)
	}

	matches, err := doublestar.Glob(os.DirFS(abs), Pattern(extensions), doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("listing screenshots: %w", err)
	}
	sort.Strings(matches)

	files := make([]File, 0, len(matches))
	for _, m := range matches {
		files = append(files, File{
			Name:         path.Base(m),
			RelativePath: m,
			AbsPath:      filepath.Join(abs, filepath.FromSlash(m)),
		})
	}
	return files, nil
}

// Pattern builds the doublestar pattern matching the given extensions at any
// depth, e.g. "**/*.{png,jpg}".
func Pattern(extensions []string) string {
	exts := normalize(extensions)
	if len(exts) == 1 {
		return "**/*." + exts[0]
	}
	return "**/*.{" + strings.Join(exts, ",") + "}"
}

func normalize(extensions []string) []string {
	var out []string
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" && doublestar.ValidatePattern(e) {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return DefaultExtensions
	}
	return out
}

// ValidateExtensions rejects extensions that are empty or contain path
// separators or glob metacharacters.
func ValidateExtensions(extensions []string) error {
	for _, e := range extensions {
		clean := strings.TrimPrefix(strings.TrimSpace(e), ".")
		if clean == "" {
			return fmt.Errorf("empty extension")
		}
		if strings.ContainsAny(clean, `/\*?[]{},`) {
			return fmt.Errorf("extension %q contains path or pattern characters", e)
		}
	}
	return nil
}
