package evalcontext

import (
	"github.com/spellang/spel/internal/value"
)

// Config carries the per-expression evaluation flags.
type Config struct {
	// AllowUndefinedVariables makes #name lookups of unbound variables
	// evaluate to null instead of failing.
	AllowUndefinedVariables bool
}

// ExpressionState is the per-evaluation working state: a reference to the
// externally owned EvaluationContext, a stack of active-context-object
// frames and a stack of scoped variable maps. One instance is created per
// top-level evaluate call and discarded afterwards; it is never shared
// across goroutines.
//
// Frames pushed must be popped on every exit path, exceptional included.
// Callers pair Push/Enter with deferred Pop/Exit.
type ExpressionState struct {
	ctx            EvaluationContext
	config         Config
	contextObjects []value.TypedValue
	scopes         []map[string]any
}

// NewExpressionState builds the state for one evaluation pass.
func NewExpressionState(ctx EvaluationContext, config Config) *ExpressionState {
	return &ExpressionState{ctx: ctx, config: config}
}

// EvaluationContext returns the externally owned context.
func (s *ExpressionState) EvaluationContext() EvaluationContext {
	return s.ctx
}

// Config returns the expression's evaluation flags.
func (s *ExpressionState) Config() Config {
	return s.config
}

// RootContextObject returns the context's root object.
func (s *ExpressionState) RootContextObject() value.TypedValue {
	return s.ctx.RootObject()
}

// ActiveContextObject is the implicit receiver for unqualified property and
// method references: the innermost pushed frame, or the root object when no
// frame is active.
func (s *ExpressionState) ActiveContextObject() value.TypedValue {
	if len(s.contextObjects) == 0 {
		return s.ctx.RootObject()
	}
	return s.contextObjects[len(s.contextObjects)-1]
}

// PushActiveContextObject makes v the implicit receiver until the matching
// pop.
func (s *ExpressionState) PushActiveContextObject(v value.TypedValue) {
	s.contextObjects = append(s.contextObjects, v)
}

// PopActiveContextObject restores the previous implicit receiver.
func (s *ExpressionState) PopActiveContextObject() {
	if len(s.contextObjects) == 0 {
		return
	}
	s.contextObjects = s.contextObjects[:len(s.contextObjects)-1]
}

// FrameDepth reports the active-context-object stack depth.
func (s *ExpressionState) FrameDepth() int {
	return len(s.contextObjects)
}

// EnterScope opens a fresh scoped-variable frame (selection pushes the
// current index here).
func (s *ExpressionState) EnterScope() {
	s.scopes = append(s.scopes, make(map[string]any))
}

// ExitScope discards the innermost scoped-variable frame.
func (s *ExpressionState) ExitScope() {
	if len(s.scopes) == 0 {
		return
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// ScopeDepth reports the scoped-variable stack depth.
func (s *ExpressionState) ScopeDepth() int {
	return len(s.scopes)
}

// SetLocalVariable binds name in the innermost scope. A scope must be
// active.
func (s *ExpressionState) SetLocalVariable(name string, v any) {
	if len(s.scopes) == 0 {
		s.EnterScope()
	}
	s.scopes[len(s.scopes)-1][name] = v
}

// LookupLocalVariable resolves name against the scope stack, innermost
// first.
func (s *ExpressionState) LookupLocalVariable(name string) (any, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if v, ok := s.scopes[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}

// LookupVariable resolves name against the scope stack first, then the
// context's variable bindings.
func (s *ExpressionState) LookupVariable(name string) (any, bool) {
	if v, ok := s.LookupLocalVariable(name); ok {
		return v, true
	}
	return s.ctx.LookupVariable(name)
}
