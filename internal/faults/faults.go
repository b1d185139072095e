// Package faults classifies failures from external providers and storage so
// callers can decide between aborting, retrying, and skipping without string
// matching on error messages.
package faults

import (
	"errors"
	"fmt"
)

// Kind partitions failures by how they should be handled.
type Kind string

const (
	// KindConfiguration indicates missing or invalid provider configuration
	// (e.g. no API key). Fatal to the operation, never retried.
	KindConfiguration Kind = "CONFIGURATION"

	// KindTransient indicates a network failure or 5xx from a provider.
	// Retried with bounded backoff.
	KindTransient Kind = "TRANSIENT"

	// KindDataIntegrity indicates bad stored data (dangling parent reference,
	// content too short to embed). Skipped and logged, never retried.
	KindDataIntegrity Kind = "DATA_INTEGRITY"

	// KindUnknown is everything else.
	KindUnknown Kind = "UNKNOWN"
)

// Fault wraps an error with a handling classification.
type Fault struct {
	kind Kind
	err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("[%s] %v", f.kind, f.err)
}

func (f *Fault) Unwrap() error {
	return f.err
}

// Configuration wraps err as a configuration fault.
func Configuration(err error) error {
	return &Fault{kind: KindConfiguration, err: err}
}

// Transient wraps err as a transient provider fault.
func Transient(err error) error {
	return &Fault{kind: KindTransient, err: err}
}

// DataIntegrity wraps err as a data-integrity fault.
func DataIntegrity(err error) error {
	return &Fault{kind: KindDataIntegrity, err: err}
}

// KindOf returns the classification of err, walking the wrap chain.
// Unclassified errors report KindUnknown.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.kind
	}
	return KindUnknown
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

// IsPermanent reports whether retrying err is pointless.
func IsPermanent(err error) bool {
	k := KindOf(err)
	return k == KindConfiguration || k == KindDataIntegrity
}
