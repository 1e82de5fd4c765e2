package domain

import (
	"errors"
	"fmt"
)

// TransportError is returned by the query executor when a page could not be fetched.
type TransportError struct {
	Request   string
	Status    int
	Message   string
	Transient bool
	Err       error
}

func (e *TransportError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s transport error for %s (status %d): %s", kind, e.Request, e.Status, e.Message)
	}
	return fmt.Sprintf("%s transport error for %s: %s", kind, e.Request, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a TransportError worth retrying.
func IsTransient(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Transient
}

// ReplayMissError means a page required in replay mode is not in the cache,
// i.e. the recorded session is incomplete.
type ReplayMissError struct {
	Key     CacheKey
	Request string
}

func (e *ReplayMissError) Error() string {
	return fmt.Sprintf("replay cache has no entry %s for %s", e.Key, e.Request)
}

// StorageError reports a cache read or write failure. It never stops a run.
type StorageError struct {
	Op  string
	Key CacheKey
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// MalformedPageError marks a page whose structure cannot be trusted for pagination
// or extraction. It ends the query identity that produced it.
type MalformedPageError struct {
	Request string
	Reason  string
	Err     error
}

func (e *MalformedPageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed page for %s: %s: %v", e.Request, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed page for %s: %s", e.Request, e.Reason)
}

func (e *MalformedPageError) Unwrap() error { return e.Err }
