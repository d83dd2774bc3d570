package mirror

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrecognizedNotification marks a notification type outside the
	// closed set. Such notifications are dropped, never escalated.
	ErrUnrecognizedNotification = errors.New("unrecognized notification")

	// ErrInconsistentIntent is returned for intents whose IsDir flag
	// contradicts their kind.
	ErrInconsistentIntent = errors.New("intent kind and directory flag disagree")
)

// LocalReadError means the source file could not be read at upload time,
// typically because it vanished after the notification was delivered.
// No remote mutation is attempted (or kept) for the intent.
type LocalReadError struct {
	Path string
	Err  error
}

func (e *LocalReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *LocalReadError) Unwrap() error { return e.Err }

// EncryptError means the local file could not be encrypted for upload.
// Nothing is stored for the intent.
type EncryptError struct {
	Path string
	Err  error
}

func (e *EncryptError) Error() string {
	return fmt.Sprintf("encrypting %s: %v", e.Path, e.Err)
}

func (e *EncryptError) Unwrap() error { return e.Err }

// StoreError is a failed object-store call.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("object store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IndexError is a failed metadata-index call.
type IndexError struct {
	Op  string
	Key string
	Err error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("metadata index %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

// PartialFailureError reports that the object-store side effect happened but
// the metadata index was not updated. The object is not rolled back; this is
// the signal a reconciliation pass would act on.
type PartialFailureError struct {
	Key string
	Err *IndexError
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("object store updated but index is stale for %s: %v", e.Key, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// IsPartialFailure reports whether err carries a PartialFailureError.
func IsPartialFailure(err error) bool {
	var pf *PartialFailureError
	return errors.As(err, &pf)
}
