package ast

import (
	"github.com/spellang/spel/internal/evalcontext"
	"github.com/spellang/spel/internal/value"
)

// VariableReference resolves #name against the scoped-variable stack first,
// then the context's variable bindings. #this and #root are built in.
type VariableReference struct {
	nodeBase
	Name string
}

func NewVariableReference(pos int, name string) *VariableReference {
	return &VariableReference{nodeBase{pos}, name}
}

func (n *VariableReference) Evaluate(state *evalcontext.ExpressionState) (value.TypedValue, error) {
	switch n.Name {
	case "this":
		return state.ActiveContextObject(), nil
	case "root":
		return state.RootContextObject(), nil
	}
	if v, ok := state.LookupVariable(n.Name); ok {
		return value.New(v), nil
	}
	if state.Config().AllowUndefinedVariables {
		return value.Null, nil
	}
	return value.Null, evalcontext.NewEvalError(evalcontext.CodeVariableNotFound, n.pos,
		"variable #%s is not defined", n.Name)
}

// IsWritable implements Writable; #this and #root are read-only.
func (n *VariableReference) IsWritable(*evalcontext.ExpressionState) bool {
	return n.Name != "this" && n.Name != "root"
}

// SetValue binds the variable on the evaluation context.
func (n *VariableReference) SetValue(state *evalcontext.ExpressionState, newValue any) error {
	if !n.IsWritable(state) {
		return evalcontext.NewEvalError(evalcontext.CodeNotAssignable, n.pos,
			"#%s cannot be assigned", n.Name)
	}
	state.EvaluationContext().SetVariable(n.Name, newValue)
	return nil
}

func (n *VariableReference) StringAST() string {
	return "#" + n.Name
}
