package constant

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel errors every concrete error type below wraps, so callers can test
// with errors.Is without knowing the concrete type.
var (
	ErrUnknownTag       = errors.New("constant: unknown tag")
	ErrVersionTooLow    = errors.New("constant: version too low")
	ErrKindMismatch     = errors.New("constant: kind mismatch")
	ErrUnresolvableRefs = errors.New("constant: unresolvable references")
	ErrSlotOccupied     = errors.New("constant: slot occupied")
	ErrInvalidDescriptor = errors.New("constant: invalid descriptor")
)

// UnknownTagError reports a tag byte outside the recognized set.
type UnknownTagError struct {
	Tag uint8
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unknown constant pool tag %d", e.Tag)
}

func (e *UnknownTagError) Unwrap() error { return ErrUnknownTag }

// NewUnknownTagError builds an UnknownTagError wrapped with a stack trace.
func NewUnknownTagError(tag uint8) error {
	return errors.WithStack(&UnknownTagError{Tag: tag})
}

// VersionTooLowError reports a constant introduced after the file's declared
// major version.
type VersionTooLowError struct {
	Variant string
	Since   uint16
	Actual  uint16
}

func (e *VersionTooLowError) Error() string {
	return fmt.Sprintf("%s requires major version >= %d, file declares %d", e.Variant, e.Since, e.Actual)
}

func (e *VersionTooLowError) Unwrap() error { return ErrVersionTooLow }

// NewVersionTooLowError builds a VersionTooLowError wrapped with a stack trace.
func NewVersionTooLowError(variant string, since, actual uint16) error {
	return errors.WithStack(&VersionTooLowError{Variant: variant, Since: since, Actual: actual})
}

// KindMismatchError reports a cross-reference that resolved to the wrong
// constant variant.
type KindMismatchError struct {
	Expected string
	Actual   string
	AtIndex  uint16
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("index %d: expected %s, got %s", e.AtIndex, e.Expected, e.Actual)
}

func (e *KindMismatchError) Unwrap() error { return ErrKindMismatch }

// NewKindMismatchError builds a KindMismatchError wrapped with a stack trace.
func NewKindMismatchError(expected, actual string, atIndex uint16) error {
	return errors.WithStack(&KindMismatchError{Expected: expected, Actual: actual, AtIndex: atIndex})
}

// UnresolvableReferencesError reports that the fix-up loop made no progress
// across a full pass over the work queue.
type UnresolvableReferencesError struct {
	PendingCount int
}

func (e *UnresolvableReferencesError) Error() string {
	return fmt.Sprintf("%d constant pool entries could not be resolved", e.PendingCount)
}

func (e *UnresolvableReferencesError) Unwrap() error { return ErrUnresolvableRefs }

// NewUnresolvableReferencesError builds an UnresolvableReferencesError
// wrapped with a stack trace.
func NewUnresolvableReferencesError(pending int) error {
	return errors.WithStack(&UnresolvableReferencesError{PendingCount: pending})
}

// SlotOccupiedError reports an attempt to overwrite a resolved pool slot.
type SlotOccupiedError struct {
	Index uint16
}

func (e *SlotOccupiedError) Error() string {
	return fmt.Sprintf("constant pool slot %d is already occupied", e.Index)
}

func (e *SlotOccupiedError) Unwrap() error { return ErrSlotOccupied }

// NewSlotOccupiedError builds a SlotOccupiedError wrapped with a stack trace.
func NewSlotOccupiedError(index uint16) error {
	return errors.WithStack(&SlotOccupiedError{Index: index})
}
