package ast

import (
	"strings"

	"github.com/spellang/spel/internal/evalcontext"
	"github.com/spellang/spel/internal/value"
)

// CompoundExpression is a navigation chain like a.b(1).c[0].?[...]: each
// child evaluates with the previous child's result pushed as the active
// context object. Every pushed frame is popped before returning, on error
// paths included.
type CompoundExpression struct {
	nodeBase
	Children []Node
}

func NewCompoundExpression(pos int, children []Node) *CompoundExpression {
	return &CompoundExpression{nodeBase{pos}, children}
}

func (n *CompoundExpression) Evaluate(state *evalcontext.ExpressionState) (value.TypedValue, error) {
	result, err := n.evaluateToLast(state, len(n.Children))
	return result, err
}

// evaluateToLast evaluates the first count children, threading each result
// into the next child's active context frame.
func (n *CompoundExpression) evaluateToLast(state *evalcontext.ExpressionState, count int) (value.TypedValue, error) {
	result, err := n.Children[0].Evaluate(state)
	if err != nil {
		return value.Null, err
	}
	pushed := 0
	defer func() {
		for ; pushed > 0; pushed-- {
			state.PopActiveContextObject()
		}
	}()
	for _, child := range n.Children[1:count] {
		state.PushActiveContextObject(result)
		pushed++
		result, err = child.Evaluate(state)
		if err != nil {
			return value.Null, err
		}
	}
	return result, nil
}

// IsWritable implements Writable when the final child is writable against
// the navigated receiver.
func (n *CompoundExpression) IsWritable(state *evalcontext.ExpressionState) bool {
	last, ok := n.Children[len(n.Children)-1].(Writable)
	if !ok {
		return false
	}
	receiver, err := n.evaluateToLast(state, len(n.Children)-1)
	if err != nil {
		return false
	}
	state.PushActiveContextObject(receiver)
	defer state.PopActiveContextObject()
	return last.IsWritable(state)
}

// SetValue implements Writable: navigate to the final receiver, then write
// through the last child.
func (n *CompoundExpression) SetValue(state *evalcontext.ExpressionState, newValue any) error {
	last, ok := n.Children[len(n.Children)-1].(Writable)
	if !ok {
		return evalcontext.NewEvalError(evalcontext.CodeNotAssignable, n.pos,
			"expression %q is not assignable", n.StringAST())
	}
	receiver, err := n.evaluateToLast(state, len(n.Children)-1)
	if err != nil {
		return err
	}
	state.PushActiveContextObject(receiver)
	defer state.PopActiveContextObject()
	return last.SetValue(state, newValue)
}

func (n *CompoundExpression) StringAST() string {
	var sb strings.Builder
	sb.WriteString(n.Children[0].StringAST())
	for _, child := range n.Children[1:] {
		switch c := child.(type) {
		case *Indexer:
			sb.WriteString(c.StringAST())
			continue
		case nullSafeNode:
			if c.isNullSafe() {
				sb.WriteString("?.")
				sb.WriteString(child.StringAST())
				continue
			}
		}
		sb.WriteString(".")
		sb.WriteString(child.StringAST())
	}
	return sb.String()
}
