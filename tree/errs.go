package tree

import (
	"errors"
	"fmt"
)

var (
	ErrAllocation       = errors.New("engine allocation failed")
	ErrAliasing         = errors.New("node is aliased")
	ErrNotDetached      = errors.New("node is not detached")
	ErrNotAChild        = errors.New("node is not a child")
	ErrInvalidNamespace = errors.New("invalid namespace")
	ErrPropertyRemoval  = errors.New("property removal failed")
	ErrClosed           = errors.New("document is closed")
	ErrRemoved          = errors.New("node was removed")
	ErrWrongDocument    = errors.New("node belongs to another document")
	ErrStructure        = errors.New("engine refused the operation")
	ErrC14N             = errors.New("canonicalization failed")
)

// AliasingError reports a mutation refused by the guard.
type AliasingError struct {
	Aliases   int
	Threshold int
}

func (e *AliasingError) Error() string {
	return fmt.Sprintf("%v: %d live aliases, threshold %d", ErrAliasing, e.Aliases, e.Threshold)
}

func (e *AliasingError) Is(target error) bool { return target == ErrAliasing }
