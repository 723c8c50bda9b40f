package ast

import (
	"reflect"

	"github.com/spellang/spel/internal/evalcontext"
	"github.com/spellang/spel/internal/value"
)

// Projection transforms each element of a map or collection source through
// its expression, yielding a list. Map sources project over entries in the
// same deterministic key order selection uses.
type Projection struct {
	nodeBase
	Expr Node
}

func NewProjection(pos int, expr Node) *Projection {
	return &Projection{nodeBase{pos}, expr}
}

func (n *Projection) Evaluate(state *evalcontext.ExpressionState) (value.TypedValue, error) {
	target := state.ActiveContextObject()
	if target.IsNull() {
		return value.Null, evalcontext.NewEvalError(evalcontext.CodeInvalidTypeForProjection, n.pos,
			"projection cannot be applied to a null object")
	}

	rv := reflect.ValueOf(target.Value())
	switch rv.Kind() {
	case reflect.Map:
		out := make([]any, 0, rv.Len())
		for _, key := range sortedMapKeys(rv) {
			entry := MapEntry{Key: key.Interface(), Value: rv.MapIndex(key).Interface()}
			v, err := n.projectElement(state, value.New(entry), -1)
			if err != nil {
				return value.Null, err
			}
			out = append(out, v)
		}
		return value.New(out), nil

	case reflect.Slice, reflect.Array:
		elemDesc := value.ValueOf(rv.Type().Elem())
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			v, err := n.projectElement(state, value.NewWithDescriptor(rv.Index(i).Interface(), elemDesc), i)
			if err != nil {
				return value.Null, err
			}
			out = append(out, v)
		}
		return value.New(out), nil
	}
	return value.Null, evalcontext.NewEvalError(evalcontext.CodeInvalidTypeForProjection, n.pos,
		"projection requires a map or collection source, got %T", target.Value())
}

func (n *Projection) projectElement(state *evalcontext.ExpressionState, element value.TypedValue, index int) (any, error) {
	state.PushActiveContextObject(element)
	defer state.PopActiveContextObject()
	if index >= 0 {
		state.EnterScope()
		defer state.ExitScope()
		state.SetLocalVariable("index", index)
	}

	v, err := n.Expr.Evaluate(state)
	if err != nil {
		return nil, err
	}
	return v.Value(), nil
}

func (n *Projection) StringAST() string {
	return "![" + n.Expr.StringAST() + "]"
}
