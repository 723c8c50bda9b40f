package ast

import (
	"errors"
	"reflect"

	"github.com/spellang/spel/internal/evalcontext"
	"github.com/spellang/spel/internal/value"
)

// PropertyReference reads a named property off the active context object
// through the context's accessor chain. The ?. variant yields null instead
// of failing on a null receiver.
type PropertyReference struct {
	nodeBase
	Name     string
	NullSafe bool
}

func NewPropertyReference(pos int, name string, nullSafe bool) *PropertyReference {
	return &PropertyReference{nodeBase{pos}, name, nullSafe}
}

func (n *PropertyReference) Evaluate(state *evalcontext.ExpressionState) (value.TypedValue, error) {
	target := state.ActiveContextObject()
	if target.IsNull() {
		if n.NullSafe {
			return value.Null, nil
		}
		return value.Null, evalcontext.NewEvalError(evalcontext.CodePropertyCallOnNullObject, n.pos,
			"property %q cannot be read from a null object", n.Name)
	}

	ctx := state.EvaluationContext()
	for _, accessor := range orderedAccessors(ctx.PropertyAccessors(), reflect.TypeOf(target.Value())) {
		if !accessor.CanRead(ctx, target.Value(), n.Name) {
			continue
		}
		v, err := accessor.Read(ctx, target.Value(), n.Name)
		if err != nil {
			var evalErr *evalcontext.EvalError
			if errors.As(err, &evalErr) {
				return value.Null, evalErr
			}
			return value.Null, evalcontext.WrapEvalError(err, evalcontext.CodeExceptionDuringInvocation, n.pos,
				"reading property %q on %T failed", n.Name, target.Value())
		}
		return v, nil
	}
	return value.Null, evalcontext.NewEvalError(evalcontext.CodePropertyNotFound, n.pos,
		"property %q cannot be found on %T", n.Name, target.Value())
}

// IsWritable implements Writable.
func (n *PropertyReference) IsWritable(state *evalcontext.ExpressionState) bool {
	target := state.ActiveContextObject()
	if target.IsNull() {
		return false
	}
	ctx := state.EvaluationContext()
	for _, accessor := range orderedAccessors(ctx.PropertyAccessors(), reflect.TypeOf(target.Value())) {
		if accessor.CanWrite(ctx, target.Value(), n.Name) {
			return true
		}
	}
	return false
}

// SetValue implements Writable.
func (n *PropertyReference) SetValue(state *evalcontext.ExpressionState, newValue any) error {
	target := state.ActiveContextObject()
	if target.IsNull() {
		return evalcontext.NewEvalError(evalcontext.CodePropertyCallOnNullObject, n.pos,
			"property %q cannot be written on a null object", n.Name)
	}
	ctx := state.EvaluationContext()
	for _, accessor := range orderedAccessors(ctx.PropertyAccessors(), reflect.TypeOf(target.Value())) {
		if !accessor.CanWrite(ctx, target.Value(), n.Name) {
			continue
		}
		if err := accessor.Write(ctx, target.Value(), n.Name, newValue); err != nil {
			return evalcontext.WrapEvalError(err, evalcontext.CodeNotAssignable, n.pos,
				"writing property %q on %T failed", n.Name, target.Value())
		}
		return nil
	}
	return evalcontext.NewEvalError(evalcontext.CodePropertyNotWritable, n.pos,
		"property %q is not writable on %T", n.Name, target.Value())
}

func (n *PropertyReference) isNullSafe() bool {
	return n.NullSafe
}

func (n *PropertyReference) StringAST() string {
	return n.Name
}

// orderedAccessors puts accessors registered for the target's specific type
// ahead of generic ones, preserving registration order within each group.
func orderedAccessors(accessors []evalcontext.PropertyAccessor, targetType reflect.Type) []evalcontext.PropertyAccessor {
	var specific, generic []evalcontext.PropertyAccessor
	for _, a := range accessors {
		types := a.SpecificTargetTypes()
		if types == nil {
			generic = append(generic, a)
			continue
		}
		for _, t := range types {
			if t == targetType {
				specific = append(specific, a)
				break
			}
		}
	}
	return append(specific, generic...)
}
