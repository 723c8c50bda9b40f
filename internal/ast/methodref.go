package ast

import (
	"errors"
	"reflect"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/spellang/spel/internal/evalcontext"
	"github.com/spellang/spel/internal/value"
)

// MethodReference evaluates target.method(args) against the active context
// object. The last successfully resolved executor is cached on the node;
// the cache is a last-writer-wins optimization shared by concurrent
// evaluations of the same tree, never a correctness dependency. An
// invocation failure without a nested cause marks the cached executor as
// stale and triggers exactly one re-resolution; a failure with a nested
// cause is the invoked method's own error and propagates with the cache
// left intact.
type MethodReference struct {
	nodeBase
	Name     string
	NullSafe bool
	Args     []Node

	cached atomic.Pointer[cachedExecutor]
}

type cachedExecutor struct {
	executor evalcontext.MethodExecutor
}

func NewMethodReference(pos int, name string, nullSafe bool, args []Node) *MethodReference {
	return &MethodReference{nodeBase: nodeBase{pos}, Name: name, NullSafe: nullSafe, Args: args}
}

func (n *MethodReference) Evaluate(state *evalcontext.ExpressionState) (value.TypedValue, error) {
	target := state.ActiveContextObject()

	args, argTypes, err := n.evaluateArguments(state)
	if err != nil {
		return value.Null, err
	}

	if target.IsNull() {
		if n.NullSafe {
			return value.Null, nil
		}
		return value.Null, evalcontext.NewEvalError(evalcontext.CodeMethodCallOnNullObject, n.pos,
			"method call %s attempted on null context object",
			evalcontext.FormatMethodForMessage(n.Name, argTypes))
	}

	ctx := state.EvaluationContext()

	if c := n.cached.Load(); c != nil {
		result, err := c.executor.Execute(ctx, target.Value(), args)
		if err == nil {
			return result, nil
		}
		var access *evalcontext.AccessError
		if errors.As(err, &access) && access.Cause != nil {
			// The method was found correctly and failed on its own terms.
			return value.Null, evalcontext.WrapEvalError(access.Cause, evalcontext.CodeExceptionDuringInvocation, n.pos,
				"method %s threw during invocation on %T", n.Name, target.Value())
		}
		// No deeper cause: the cached executor no longer fits this call
		// shape. Drop it and resolve afresh.
		log.Debug().Str("method", n.Name).Msg("cached executor stale, re-resolving")
		n.cached.Store(nil)
	}

	executor, err := n.resolveExecutor(state, target.Value(), argTypes)
	if err != nil {
		return value.Null, err
	}
	n.cached.Store(&cachedExecutor{executor: executor})

	result, err := executor.Execute(ctx, target.Value(), args)
	if err != nil {
		cause := err
		var access *evalcontext.AccessError
		if errors.As(err, &access) && access.Cause != nil {
			cause = access.Cause
		}
		return value.Null, evalcontext.WrapEvalError(cause, evalcontext.CodeExceptionDuringInvocation, n.pos,
			"method %s failed during invocation on %T", n.Name, target.Value())
	}
	return result, nil
}

// evaluateArguments evaluates each argument with the root object pushed as
// the active context, so arguments resolve independently of the receiver's
// property scope. The frame is popped on every exit path.
func (n *MethodReference) evaluateArguments(state *evalcontext.ExpressionState) ([]any, []reflect.Type, error) {
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

// resolveExecutor walks the resolver chain in order. A resolver failure is
// definitive for the whole chain: it is not retried against later
// resolvers.
func (n *MethodReference) resolveExecutor(state *evalcontext.ExpressionState, target any, argTypes []reflect.Type) (evalcontext.MethodExecutor, error) {
	ctx := state.EvaluationContext()
	for _, resolver := range ctx.MethodResolvers() {
		executor, err := resolver.Resolve(ctx, target, n.Name, argTypes)
		if err != nil {
			var evalErr *evalcontext.EvalError
			if errors.As(err, &evalErr) {
				if evalErr.Position == 0 {
					evalErr.Position = n.pos
				}
				return nil, evalErr
			}
			return nil, evalcontext.WrapEvalError(err, evalcontext.CodeProblemLocatingMethod, n.pos,
				"problem locating method %s on %T",
				evalcontext.FormatMethodForMessage(n.Name, argTypes), target)
		}
		if executor != nil {
			return executor, nil
		}
	}
	return nil, evalcontext.NewEvalError(evalcontext.CodeMethodNotFound, n.pos,
		"method %s cannot be found on %T",
		evalcontext.FormatMethodForMessage(n.Name, argTypes), target)
}

func (n *MethodReference) isNullSafe() bool {
	return n.NullSafe
}

func (n *MethodReference) StringAST() string {
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.StringAST()
	}
	return n.Name + "(" + strings.Join(parts, ", ") + ")"
}
