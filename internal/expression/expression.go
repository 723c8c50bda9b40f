// Package expression is the public facade over the parser and the
// tree-walking evaluator: parse once, evaluate any number of times against
// different contexts.
package expression

import (
	"github.com/spellang/spel/internal/ast"
	"github.com/spellang/spel/internal/evalcontext"
	"github.com/spellang/spel/internal/parser"
	"github.com/spellang/spel/internal/value"
)

// Config carries the per-expression evaluation flags.
type Config = evalcontext.Config

// Expression owns an immutable AST root and its configuration. It is
// re-evaluable any number of times, concurrently, against independent
// contexts; the only shared mutable state is the advisory executor cache
// inside method reference nodes.
type Expression struct {
	source string
	root   ast.Node
	config Config
}

// Parse compiles an expression with the default configuration.
func Parse(source string) (*Expression, error) {
	return ParseWithConfig(source, Config{})
}

// ParseWithConfig compiles an expression with explicit flags.
func ParseWithConfig(source string, config Config) (*Expression, error) {
	root, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	return &Expression{source: source, root: root, config: config}, nil
}

// MustParse is Parse for expressions known valid at build time.
func MustParse(source string) *Expression {
	e, err := Parse(source)
	if err != nil {
		panic(err)
	}
	return e
}

// Source returns the original expression text.
func (e *Expression) Source() string {
	return e.source
}

// StringAST renders the canonical form of the compiled tree.
func (e *Expression) StringAST() string {
	return e.root.StringAST()
}

// Value evaluates against a zero-configuration context rooted at root.
func (e *Expression) Value(root any) (any, error) {
	return e.ValueWithContext(evalcontext.NewStandardContext(root))
}

// ValueWithContext evaluates against the supplied context.
func (e *Expression) ValueWithContext(ctx evalcontext.EvaluationContext) (any, error) {
	tv, err := e.TypedValueWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return tv.Value(), nil
}

// TypedValueWithContext evaluates and returns the typed result.
func (e *Expression) TypedValueWithContext(ctx evalcontext.EvaluationContext) (value.TypedValue, error) {
	state := evalcontext.NewExpressionState(ctx, e.config)
	return e.root.Evaluate(state)
}

// ValueType returns the result's type descriptor without exposing the
// value itself.
func (e *Expression) ValueType(ctx evalcontext.EvaluationContext) (*value.TypeDescriptor, error) {
	tv, err := e.TypedValueWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return tv.Descriptor(), nil
}

// IsWritable reports whether the expression can be assigned through in the
// given context.
func (e *Expression) IsWritable(ctx evalcontext.EvaluationContext) bool {
	w, ok := e.root.(ast.Writable)
	if !ok {
		return false
	}
	state := evalcontext.NewExpressionState(ctx, e.config)
	return w.IsWritable(state)
}

// SetValue assigns through the expression in the given context.
func (e *Expression) SetValue(ctx evalcontext.EvaluationContext, newValue any) error {
	w, ok := e.root.(ast.Writable)
	if !ok {
		return evalcontext.NewEvalError(evalcontext.CodeNotAssignable, e.root.Position(),
			"expression %q is not assignable", e.source)
	}
	state := evalcontext.NewExpressionState(ctx, e.config)
	return w.SetValue(state, newValue)
}

// Evaluate is a one-shot convenience: parse and evaluate source against a
// context rooted at root.
func Evaluate(source string, root any) (any, error) {
	e, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return e.Value(root)
}
