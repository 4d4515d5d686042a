package parse

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrParse = errors.New("parse error")
	ErrEmpty = fmt.Errorf("%w: document is empty", ErrParse)
)

// Error carries the diagnostics of a failed parse.
type Error struct {
	Diagnostics []Diagnostic
}

func (e *Error) Error() string {
	if len(e.Diagnostics) == 0 {
		return ErrParse.Error()
	}
	msgs := make([]string, 0, len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		if d.Level == LevelError {
			msgs = append(msgs, d.Error())
		}
	}
	if len(msgs) == 0 {
		return ErrParse.Error()
	}
	return ErrParse.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *Error) Is(target error) bool { return target == ErrParse }
