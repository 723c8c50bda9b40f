package ast

import (
	"github.com/spellang/spel/internal/evalcontext"
	"github.com/spellang/spel/internal/value"
)

// Assign evaluates the right-hand side and writes it through the writable
// left-hand side, yielding the assigned value.
type Assign struct {
	nodeBase
	Target Node
	Value  Node
}

func NewAssign(pos int, target, val Node) *Assign {
	return &Assign{nodeBase{pos}, target, val}
}

func (n *Assign) Evaluate(state *evalcontext.ExpressionState) (value.TypedValue, error) {
	writable, ok := n.Target.(Writable)
	if !ok {
		return value.Null, evalcontext.NewEvalError(evalcontext.CodeNotAssignable, n.pos,
			"expression %q is not assignable", n.Target.StringAST())
	}
	v, err := n.Value.Evaluate(state)
	if err != nil {
		return value.Null, err
	}
	if err := writable.SetValue(state, v.Value()); err != nil {
		return value.Null, err
	}
	return v, nil
}

func (n *Assign) StringAST() string {
	return n.Target.StringAST() + " = " + n.Value.StringAST()
}
