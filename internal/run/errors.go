package run

import (
	"errors"
	"fmt"
)

// InstructionError records which instruction of a script failed.
type InstructionError struct {
	Index int
	Kind  string
	Err   error
}

func (e *InstructionError) Error() string {
	return fmt.Sprintf("instruction %d (%s): %v", e.Index, e.Kind, e.Err)
}

func (e *InstructionError) Unwrap() error { return e.Err }

// IsInstructionError reports whether err carries an instruction position.
func IsInstructionError(err error) bool {
	var ie *InstructionError
	return errors.As(err, &ie)
}
