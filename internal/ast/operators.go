package ast

import (
	"fmt"
	"reflect"

	"github.com/spellang/spel/internal/evalcontext"
	"github.com/spellang/spel/internal/value"
)

// BinaryOpType names a binary operator.
type BinaryOpType string

const (
	OpAdd BinaryOpType = "+"
	OpSub BinaryOpType = "-"
	OpMul BinaryOpType = "*"
	OpDiv BinaryOpType = "/"
	OpMod BinaryOpType = "%"

	OpEq  BinaryOpType = "=="
	OpNe  BinaryOpType = "!="
	OpLt  BinaryOpType = "<"
	OpGt  BinaryOpType = ">"
	OpLe  BinaryOpType = "<="
	OpGe  BinaryOpType = ">="
	OpAnd BinaryOpType = "&&"
	OpOr  BinaryOpType = "||"
)

// OperatorBinary applies a binary operator. Logical operators require
// boolean operands and short-circuit; arithmetic stays integral when both
// operands are integral.
type OperatorBinary struct {
	nodeBase
	Op    BinaryOpType
	Left  Node
	Right Node
}

func NewOperatorBinary(pos int, op BinaryOpType, left, right Node) *OperatorBinary {
	return &OperatorBinary{nodeBase{pos}, op, left, right}
}

func (n *OperatorBinary) Evaluate(state *evalcontext.ExpressionState) (value.TypedValue, error) {
	left, err := n.Left.Evaluate(state)
	if err != nil {
		return value.Null, err
	}

	if n.Op == OpAnd || n.Op == OpOr {
		return n.evaluateLogical(state, left)
	}

	right, err := n.Right.Evaluate(state)
	if err != nil {
		return value.Null, err
	}

	switch n.Op {
	case OpEq:
		return value.New(valuesEqual(left.Value(), right.Value())), nil
	case OpNe:
		return value.New(!valuesEqual(left.Value(), right.Value())), nil
	case OpLt, OpGt, OpLe, OpGe:
		return n.evaluateComparison(left.Value(), right.Value())
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return n.evaluateArithmetic(left.Value(), right.Value())
	}
	return value.Null, evalcontext.NewEvalError(evalcontext.CodeOperatorNotSupported, n.pos,
		"unknown operator %s", n.Op)
}

func (n *OperatorBinary) evaluateLogical(state *evalcontext.ExpressionState, left value.TypedValue) (value.TypedValue, error) {
	lb, ok := left.Value().(bool)
	if !ok {
		return value.Null, evalcontext.NewEvalError(evalcontext.CodeOperatorNotSupported, n.pos,
			"operator %s requires boolean operands, got %T", n.Op, left.Value())
	}
	if n.Op == OpAnd && !lb {
		return value.New(false), nil
	}
	if n.Op == OpOr && lb {
		return value.New(true), nil
	}
	right, err := n.Right.Evaluate(state)
	if err != nil {
		return value.Null, err
	}
	rb, ok := right.Value().(bool)
	if !ok {
		return value.Null, evalcontext.NewEvalError(evalcontext.CodeOperatorNotSupported, n.pos,
			"operator %s requires boolean operands, got %T", n.Op, right.Value())
	}
	return value.New(rb), nil
}

func (n *OperatorBinary) evaluateComparison(left, right any) (value.TypedValue, error) {
	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			switch n.Op {
			case OpLt:
				return value.New(ls < rs), nil
			case OpGt:
				return value.New(ls > rs), nil
			case OpLe:
				return value.New(ls <= rs), nil
			case OpGe:
				return value.New(ls >= rs), nil
			}
		}
	}
	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if !lok || !rok {
		return value.Null, evalcontext.NewEvalError(evalcontext.CodeOperatorNotSupported, n.pos,
			"operator %s cannot compare %T and %T", n.Op, left, right)
	}
	switch n.Op {
	case OpLt:
		return value.New(lf < rf), nil
	case OpGt:
		return value.New(lf > rf), nil
	case OpLe:
		return value.New(lf <= rf), nil
	default:
		return value.New(lf >= rf), nil
	}
}

func (n *OperatorBinary) evaluateArithmetic(left, right any) (value.TypedValue, error) {
	if n.Op == OpAdd {
		if ls, ok := left.(string); ok {
			return value.New(ls + stringify(right)), nil
		}
		if rs, ok := right.(string); ok {
			return value.New(stringify(left) + rs), nil
		}
	}

	li, lIsInt := asInt(left)
	ri, rIsInt := asInt(right)
	if lIsInt && rIsInt {
		switch n.Op {
		case OpAdd:
			return value.New(li + ri), nil
		case OpSub:
			return value.New(li - ri), nil
		case OpMul:
			return value.New(li * ri), nil
		case OpDiv:
			if ri == 0 {
				return value.Null, evalcontext.NewEvalError(evalcontext.CodeDivisionByZero, n.pos, "division by zero")
			}
			return value.New(li / ri), nil
		case OpMod:
			if ri == 0 {
				return value.Null, evalcontext.NewEvalError(evalcontext.CodeDivisionByZero, n.pos, "modulo by zero")
			}
			return value.New(li % ri), nil
		}
	}

	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if !lok || !rok {
		return value.Null, evalcontext.NewEvalError(evalcontext.CodeOperatorNotSupported, n.pos,
			"operator %s cannot be applied to %T and %T", n.Op, left, right)
	}
	switch n.Op {
	case OpAdd:
		return value.New(lf + rf), nil
	case OpSub:
		return value.New(lf - rf), nil
	case OpMul:
		return value.New(lf * rf), nil
	case OpDiv:
		if rf == 0 {
			return value.Null, evalcontext.NewEvalError(evalcontext.CodeDivisionByZero, n.pos, "division by zero")
		}
		return value.New(lf / rf), nil
	default:
		return value.Null, evalcontext.NewEvalError(evalcontext.CodeOperatorNotSupported, n.pos,
			"operator %s requires integral operands", n.Op)
	}
}

func (n *OperatorBinary) StringAST() string {
	return "(" + n.Left.StringAST() + " " + string(n.Op) + " " + n.Right.StringAST() + ")"
}

// UnaryOpType names a unary operator.
type UnaryOpType string

const (
	OpNot UnaryOpType = "!"
	OpNeg UnaryOpType = "-"
)

// OperatorUnary applies ! or unary -.
type OperatorUnary struct {
	nodeBase
	Op   UnaryOpType
	Expr Node
}

func NewOperatorUnary(pos int, op UnaryOpType, expr Node) *OperatorUnary {
	return &OperatorUnary{nodeBase{pos}, op, expr}
}

func (n *OperatorUnary) Evaluate(state *evalcontext.ExpressionState) (value.TypedValue, error) {
	v, err := n.Expr.Evaluate(state)
	if err != nil {
		return value.Null, err
	}
	switch n.Op {
	case OpNot:
		b, ok := v.Value().(bool)
		if !ok {
			return value.Null, evalcontext.NewEvalError(evalcontext.CodeOperatorNotSupported, n.pos,
				"operator ! requires a boolean operand, got %T", v.Value())
		}
		return value.New(!b), nil
	case OpNeg:
		if i, ok := asInt(v.Value()); ok {
			return value.New(-i), nil
		}
		if f, ok := asFloat(v.Value()); ok {
			return value.New(-f), nil
		}
		return value.Null, evalcontext.NewEvalError(evalcontext.CodeOperatorNotSupported, n.pos,
			"operator - requires a numeric operand, got %T", v.Value())
	}
	return value.Null, evalcontext.NewEvalError(evalcontext.CodeOperatorNotSupported, n.pos,
		"unknown unary operator %s", n.Op)
}

func (n *OperatorUnary) StringAST() string {
	return string(n.Op) + n.Expr.StringAST()
}

// Ternary is condition ? ifTrue : ifFalse.
type Ternary struct {
	nodeBase
	Condition Node
	IfTrue    Node
	IfFalse   Node
}

func NewTernary(pos int, condition, ifTrue, ifFalse Node) *Ternary {
	return &Ternary{nodeBase{pos}, condition, ifTrue, ifFalse}
}

func (n *Ternary) Evaluate(state *evalcontext.ExpressionState) (value.TypedValue, error) {
	cond, err := n.Condition.Evaluate(state)
	if err != nil {
		return value.Null, err
	}
	b, ok := cond.Value().(bool)
	if !ok {
		return value.Null, evalcontext.NewEvalError(evalcontext.CodeOperatorNotSupported, n.pos,
			"ternary condition must be boolean, got %T", cond.Value())
	}
	if b {
		return n.IfTrue.Evaluate(state)
	}
	return n.IfFalse.Evaluate(state)
}

func (n *Ternary) StringAST() string {
	return "(" + n.Condition.StringAST() + " ? " + n.IfTrue.StringAST() + " : " + n.IfFalse.StringAST() + ")"
}

// Elvis is expr ?: fallback, yielding fallback when expr is null.
type Elvis struct {
	nodeBase
	Expr     Node
	Fallback Node
}

func NewElvis(pos int, expr, fallback Node) *Elvis {
	return &Elvis{nodeBase{pos}, expr, fallback}
}

func (n *Elvis) Evaluate(state *evalcontext.ExpressionState) (value.TypedValue, error) {
	v, err := n.Expr.Evaluate(state)
	if err != nil {
		return value.Null, err
	}
	if !v.IsNull() {
		return v, nil
	}
	return n.Fallback.Evaluate(state)
}

func (n *Elvis) StringAST() string {
	return "(" + n.Expr.StringAST() + " ?: " + n.Fallback.StringAST() + ")"
}

// asInt reports integral values as int64.
func asInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), true
	}
	return 0, false
}

// asFloat reports any numeric value as float64.
func asFloat(v any) (float64, bool) {
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// valuesEqual compares with numeric normalization so 2 == 2.0.
func valuesEqual(left, right any) bool {
	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if lok && rok {
		return lf == rf
	}
	if lok != rok {
		return false
	}
	return reflect.DeepEqual(left, right)
}

func stringify(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%v", v)
}
