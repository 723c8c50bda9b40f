package evalcontext

import (
	"fmt"
	"reflect"
	"strings"
)

// MessageCode identifies the kind of evaluation failure independently of the
// rendered message text.
type MessageCode string

const (
	CodeMethodCallOnNullObject       MessageCode = "method-call-on-null-object"
	CodeMethodNotFound               MessageCode = "method-not-found"
	CodeMultiplePossibleMethods      MessageCode = "multiple-possible-methods"
	CodeProblemLocatingMethod        MessageCode = "problem-locating-method"
	CodeExceptionDuringInvocation    MessageCode = "exception-during-method-invocation"
	CodePropertyNotFound             MessageCode = "property-not-found"
	CodePropertyCallOnNullObject     MessageCode = "property-call-on-null-object"
	CodePropertyNotWritable          MessageCode = "property-not-writable"
	CodeSelectionCriteriaNotBoolean  MessageCode = "selection-criteria-not-boolean"
	CodeInvalidTypeForSelection      MessageCode = "invalid-type-for-selection"
	CodeInvalidTypeForProjection     MessageCode = "invalid-type-for-projection"
	CodeVariableNotFound             MessageCode = "variable-not-found"
	CodeTypeNotFound                 MessageCode = "type-not-found"
	CodeConstructorNotFound          MessageCode = "constructor-not-found"
	CodeExceptionDuringConstruction  MessageCode = "exception-during-construction"
	CodeTypeConversionError          MessageCode = "type-conversion-error"
	CodeOperatorNotSupported         MessageCode = "operator-not-supported"
	CodeIndexOutOfRange              MessageCode = "index-out-of-range"
	CodeInvalidIndexTarget           MessageCode = "invalid-index-target"
	CodeDivisionByZero               MessageCode = "division-by-zero"
	CodeNotAssignable                MessageCode = "not-assignable"
)

// EvalError is the checked evaluation-time error. Position is the character
// offset of the offending node in the original expression text.
type EvalError struct {
	Code     MessageCode
	Position int
	Message  string
	Cause    error
}

func (e *EvalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("evaluation error (pos %d) [%s]: %s: %v", e.Position, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("evaluation error (pos %d) [%s]: %s", e.Position, e.Code, e.Message)
}

func (e *EvalError) Unwrap() error {
	return e.Cause
}

// NewEvalError builds an evaluation error at the given position.
func NewEvalError(code MessageCode, pos int, format string, args ...any) *EvalError {
	return &EvalError{Code: code, Position: pos, Message: fmt.Sprintf(format, args...)}
}

// WrapEvalError builds an evaluation error carrying an underlying cause.
func WrapEvalError(cause error, code MessageCode, pos int, format string, args ...any) *EvalError {
	return &EvalError{Code: code, Position: pos, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// AccessError is raised by accessors and executors. The presence of a nested
// cause discriminates a genuine failure inside the invoked member (cause set)
// from a shape mismatch that marks a cached executor as stale (cause absent).
type AccessError struct {
	Message string
	Cause   error
}

func (e *AccessError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AccessError) Unwrap() error {
	return e.Cause
}

// FormatMethodForMessage renders a call signature like name(int, string) for
// diagnostics.
func FormatMethodForMessage(name string, argTypes []reflect.Type) string {
	parts := make([]string, len(argTypes))
	for i, t := range argTypes {
		if t == nil {
			parts[i] = "null"
			continue
		}
		parts[i] = t.String()
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}
