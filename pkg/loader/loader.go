// Package loader abstracts where ingestion source files come from.
// Implementations live in subpackages: local (filesystem) and s3 (bucket).
package loader

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound marks a missing source root or source file. Ingestion passes
// that hit it are skipped and reported; the rest of the run continues.
var ErrNotFound = errors.New("source not found")

// MalformedRecordError marks a row missing required fields or carrying an
// unparsable numeric value. The row is skipped and reported; the file
// continues.
type MalformedRecordError struct {
	File   string
	Line   int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record %s:%d: %s", e.File, e.Line, e.Reason)
}

// File is one discoverable source file.
type File struct {
	// Name is the file's base name, unique within its source.
	Name string
}

// Source lists and reads the files of one ingestion root.
type Source interface {
	// List returns the files whose name ends in ext (or all files when ext
	// is empty), sorted by name. A missing root returns an error wrapping
	// ErrNotFound.
	List(ctx context.Context, ext string) ([]File, error)

	// Read returns the contents of the named file. A missing file returns
	// an error wrapping ErrNotFound.
	Read(ctx context.Context, name string) ([]byte, error)
}
