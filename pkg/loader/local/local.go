// Package local implements loader.Source over a filesystem directory.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JadenBair-FS/aris/pkg/loader"
)

// Source reads files from a single directory, non-recursively.
type Source struct {
	root string
}

// NewSource creates a Source rooted at dir. The directory's existence is
// checked at List/Read time so a source can be constructed before its data
// is in place.
func NewSource(dir string) *Source {
	return &Source{root: dir}
}

func (s *Source) List(ctx context.Context, ext string) ([]loader.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", loader.ErrNotFound, s.root)
		}
		return nil, fmt.Errorf("list %s: %w", s.root, err)
	}

	var out []loader.File
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ext != "" && !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		out = append(out, loader.File{Name: entry.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Source) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(filepath.Join(s.root, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", loader.ErrNotFound, name)
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return content, nil
}
