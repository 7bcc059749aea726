package storage

import "fmt"

// StorageError reports a blob-store failure with the provider's
// diagnostic code and message. It is never retried.
type StorageError struct {
	Code    string
	Message string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("blob store error [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("blob store error: %s", e.Message)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// RepositoryError reports a metadata database failure.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository error in %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}
