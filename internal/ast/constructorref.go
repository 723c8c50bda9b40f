package ast

import (
	"errors"
	"reflect"
	"strings"

	"github.com/spellang/spel/internal/evalcontext"
	"github.com/spellang/spel/internal/value"
)

// ConstructorReference evaluates new TypeName(args) through the context's
// constructor resolver chain. Arguments evaluate against the root object,
// the same way method arguments do.
type ConstructorReference struct {
	nodeBase
	TypeName string
	Args     []Node
}

func NewConstructorReference(pos int, typeName string, args []Node) *ConstructorReference {
	return &ConstructorReference{nodeBase{pos}, typeName, args}
}

func (n *ConstructorReference) Evaluate(state *evalcontext.ExpressionState) (value.TypedValue, error) {
	args, argTypes, err := n.evaluateArguments(state)
	if err != nil {
		return value.Null, err
	}

	ctx := state.EvaluationContext()
	for _, resolver := range ctx.ConstructorResolvers() {
		executor, err := resolver.Resolve(ctx, n.TypeName, argTypes)
		if err != nil {
			var evalErr *evalcontext.EvalError
			if errors.As(err, &evalErr) {
				if evalErr.Position == 0 {
					evalErr.Position = n.pos
				}
				return value.Null, evalErr
			}
			return value.Null, evalcontext.WrapEvalError(err, evalcontext.CodeConstructorNotFound, n.pos,
				"problem locating constructor %s", evalcontext.FormatMethodForMessage(n.TypeName, argTypes))
		}
		if executor == nil {
			continue
		}
		result, err := executor.Execute(ctx, args)
		if err != nil {
			cause := err
			var access *evalcontext.AccessError
			if errors.As(err, &access) && access.Cause != nil {
				cause = access.Cause
			}
			return value.Null, evalcontext.WrapEvalError(cause, evalcontext.CodeExceptionDuringConstruction, n.pos,
				"constructor %s failed", n.TypeName)
		}
		return result, nil
	}
	return value.Null, evalcontext.NewEvalError(evalcontext.CodeConstructorNotFound, n.pos,
		"constructor %s cannot be found", evalcontext.FormatMethodForMessage(n.TypeName, argTypes))
}

func (n *ConstructorReference) evaluateArguments(state *evalcontext.ExpressionState) ([]any, []reflect.Type, error) {
	state.PushActiveContextObject(state.RootContextObject())
	defer state.PopActiveContextObject()

	args := make([]any, len(n.Args))
	argTypes := make([]reflect.Type, len(n.Args))
	for i, argNode := range n.Args {
		v, err := argNode.Evaluate(state)
		if err != nil {
			return nil, nil, err
		}
		args[i] = v.Value()
		argTypes[i] = v.Descriptor().Type()
	}
	return args, argTypes, nil
}

func (n *ConstructorReference) StringAST() string {
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.StringAST()
	}
	return "new " + n.TypeName + "(" + strings.Join(parts, ", ") + ")"
}
