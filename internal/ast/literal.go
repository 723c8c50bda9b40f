package ast

import (
	"strconv"
	"strings"

	"github.com/spellang/spel/internal/evalcontext"
	"github.com/spellang/spel/internal/value"
)

// IntLiteral is an integer literal, carried as int64.
type IntLiteral struct {
	nodeBase
	Value int64
}

func NewIntLiteral(pos int, v int64) *IntLiteral {
	return &IntLiteral{nodeBase{pos}, v}
}

func (n *IntLiteral) Evaluate(*evalcontext.ExpressionState) (value.TypedValue, error) {
	return value.New(n.Value), nil
}

func (n *IntLiteral) StringAST() string {
	return strconv.FormatInt(n.Value, 10)
}

// RealLiteral is a floating-point literal.
type RealLiteral struct {
	nodeBase
	Value float64
}

func NewRealLiteral(pos int, v float64) *RealLiteral {
	return &RealLiteral{nodeBase{pos}, v}
}

func (n *RealLiteral) Evaluate(*evalcontext.ExpressionState) (value.TypedValue, error) {
	return value.New(n.Value), nil
}

func (n *RealLiteral) StringAST() string {
	s := strconv.FormatFloat(n.Value, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// StringLiteral is a quoted string literal.
type StringLiteral struct {
	nodeBase
	Value string
}

func NewStringLiteral(pos int, v string) *StringLiteral {
	return &StringLiteral{nodeBase{pos}, v}
}

func (n *StringLiteral) Evaluate(*evalcontext.ExpressionState) (value.TypedValue, error) {
	return value.New(n.Value), nil
}

func (n *StringLiteral) StringAST() string {
	return "'" + strings.ReplaceAll(n.Value, "'", "\\'") + "'"
}

// BoolLiteral is true or false.
type BoolLiteral struct {
	nodeBase
	Value bool
}

func NewBoolLiteral(pos int, v bool) *BoolLiteral {
	return &BoolLiteral{nodeBase{pos}, v}
}

func (n *BoolLiteral) Evaluate(*evalcontext.ExpressionState) (value.TypedValue, error) {
	return value.New(n.Value), nil
}

func (n *BoolLiteral) StringAST() string {
	return strconv.FormatBool(n.Value)
}

// NullLiteral is the null keyword.
type NullLiteral struct {
	nodeBase
}

func NewNullLiteral(pos int) *NullLiteral {
	return &NullLiteral{nodeBase{pos}}
}

func (n *NullLiteral) Evaluate(*evalcontext.ExpressionState) (value.TypedValue, error) {
	return value.Null, nil
}

func (n *NullLiteral) StringAST() string {
	return "null"
}

// ListLiteral is an inline list, {1, 2, 3}. It evaluates to a []any.
type ListLiteral struct {
	nodeBase
	Elements []Node
}

func NewListLiteral(pos int, elements []Node) *ListLiteral {
	return &ListLiteral{nodeBase{pos}, elements}
}

func (n *ListLiteral) Evaluate(state *evalcontext.ExpressionState) (value.TypedValue, error) {
	out := make([]any, len(n.Elements))
	for i, el := range n.Elements {
		v, err := el.Evaluate(state)
		if err != nil {
			return value.Null, err
		}
		out[i] = v.Value()
	}
	return value.New(out), nil
}

func (n *ListLiteral) StringAST() string {
	parts := make([]string, len(n.Elements))
	for i, el := range n.Elements {
		parts[i] = el.StringAST()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
