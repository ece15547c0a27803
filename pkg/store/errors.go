package store

import "fmt"

// StorageError wraps a connectivity or write failure in the underlying
// graph storage. The ingestion driver retries the current document a
// bounded number of times before marking it failed and moving on; a
// well-formed write is never silently dropped while storage is reachable.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
