// Package ast holds the evaluable expression tree. Every node implements
// the uniform Evaluate/StringAST contract; assignable nodes additionally
// implement Writable. Nodes own their children (a tree, no sharing) and are
// immutable after parsing except for the advisory executor cache on
// MethodReference.
package ast

import (
	"github.com/spellang/spel/internal/evalcontext"
	"github.com/spellang/spel/internal/value"
)

// Node is a single evaluable unit of a parsed expression tree.
type Node interface {
	// Evaluate walks the node against the given per-evaluation state and
	// returns a typed value or an *evalcontext.EvalError.
	Evaluate(state *evalcontext.ExpressionState) (value.TypedValue, error)

	// StringAST renders the canonical, whitespace-normalized form of the
	// node; re-parsing it yields an equivalent tree.
	StringAST() string

	// Position is the character offset of the node in the expression text.
	Position() int
}

// Writable is implemented by nodes that can be the target of an assignment.
type Writable interface {
	Node
	IsWritable(state *evalcontext.ExpressionState) bool
	SetValue(state *evalcontext.ExpressionState, newValue any) error
}

// nullSafeNode is implemented by navigation nodes that have a ?. variant;
// CompoundExpression consults it when rendering.
type nullSafeNode interface {
	isNullSafe() bool
}

type nodeBase struct {
	pos int
}

func (b nodeBase) Position() int {
	return b.pos
}
