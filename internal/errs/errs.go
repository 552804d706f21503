// Package errs holds the typed errors shared across the indexing pipeline.
// Callers match them with errors.As, or errors.Is against the sentinels.
package errs

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrReferenceResolution    = errors.New("reference resolution failed")
	ErrCyclicReference        = errors.New("cyclic reference")
	ErrCacheIndexCorrupt      = errors.New("cache index corrupt")
	ErrLockTimeout            = errors.New("lock timeout")
	ErrContractMismatch       = errors.New("contract mismatch")
	ErrUnsupportedInputFormat = errors.New("unsupported input format")
)

type ReferenceResolutionError struct {
	Ref    string
	Reason string
}

func (e *ReferenceResolutionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unresolved reference %q", e.Ref)
	}
	return fmt.Sprintf("unresolved reference %q: %s", e.Ref, e.Reason)
}

func (e *ReferenceResolutionError) Is(target error) bool { return target == ErrReferenceResolution }

type CyclicReferenceError struct {
	Ref   string
	Chain []string
}

func (e *CyclicReferenceError) Error() string {
	chain := make([]string, 0, len(e.Chain)+1)
	chain = append(chain, e.Chain...)
	chain = append(chain, e.Ref)
	return fmt.Sprintf("cyclic reference %q (chain: %s)", e.Ref, strings.Join(chain, " -> "))
}

func (e *CyclicReferenceError) Is(target error) bool { return target == ErrCyclicReference }

type LockTimeoutError struct {
	Path    string
	Timeout time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("could not lock %s within %s", e.Path, e.Timeout)
}

func (e *LockTimeoutError) Is(target error) bool { return target == ErrLockTimeout }

type ContractMismatchError struct {
	Field string
	Want  int
	Got   int
}

func (e *ContractMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d entries, got %d", e.Field, e.Want, e.Got)
}

func (e *ContractMismatchError) Is(target error) bool { return target == ErrContractMismatch }

type UnsupportedInputFormatError struct {
	Path   string
	Reason string
}

func (e *UnsupportedInputFormatError) Error() string {
	return fmt.Sprintf("unsupported input %s: %s", e.Path, e.Reason)
}

func (e *UnsupportedInputFormatError) Is(target error) bool {
	return target == ErrUnsupportedInputFormat
}
