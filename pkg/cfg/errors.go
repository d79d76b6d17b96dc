package cfg

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrIllegalInstruction is the sentinel every IllegalInstructionError wraps.
var ErrIllegalInstruction = errors.New("cfg: illegal instruction")

// IllegalInstructionError reports an attempt to append a control-flow-
// terminating instruction to a block through the ordinary append API instead
// of the matching graph operation.
type IllegalInstructionError struct {
	Reason string
}

func (e *IllegalInstructionError) Error() string {
	return fmt.Sprintf("illegal instruction: %s", e.Reason)
}

func (e *IllegalInstructionError) Unwrap() error { return ErrIllegalInstruction }

// NewIllegalInstructionError builds an IllegalInstructionError wrapped with
// a stack trace.
func NewIllegalInstructionError(reason string) error {
	return errors.WithStack(&IllegalInstructionError{Reason: reason})
}
