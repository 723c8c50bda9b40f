package evalcontext

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/spellang/spel/internal/value"
)

// StandardTypeLocator maps type names mentioned in expressions to runtime
// types, with a companion registry of factory functions used by
// new Name(...) expressions.
type StandardTypeLocator struct {
	mu           sync.RWMutex
	types        map[string]reflect.Type
	constructors map[string][]reflect.Value
}

// NewStandardTypeLocator builds an empty locator.
func NewStandardTypeLocator() *StandardTypeLocator {
	return &StandardTypeLocator{
		types:        make(map[string]reflect.Type),
		constructors: make(map[string][]reflect.Value),
	}
}

// RegisterType makes name resolvable.
func (l *StandardTypeLocator) RegisterType(name string, t reflect.Type) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.types[name] = t
}

// RegisterConstructor registers a factory function overload for name. fn
// must be a func.
func (l *StandardTypeLocator) RegisterConstructor(name string, fn any) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		panic(fmt.Sprintf("RegisterConstructor(%q): need a func, got %T", name, fn))
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.constructors[name] = append(l.constructors[name], v)
}

// FindType implements TypeLocator.
func (l *StandardTypeLocator) FindType(name string) (reflect.Type, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if t, ok := l.types[name]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("type %q not registered", name)
}

func (l *StandardTypeLocator) constructorsFor(name string) []reflect.Value {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.constructors[name]
}

// FactoryConstructorResolver resolves new Name(args) against the locator's
// factory registry with the same exact/close/convert selection used for
// methods.
type FactoryConstructorResolver struct {
	locator *StandardTypeLocator
}

// NewFactoryConstructorResolver builds a resolver over the given locator.
func NewFactoryConstructorResolver(locator *StandardTypeLocator) *FactoryConstructorResolver {
	return &FactoryConstructorResolver{locator: locator}
}

// Resolve implements ConstructorResolver.
func (r *FactoryConstructorResolver) Resolve(ctx EvaluationContext, typeName string, argTypes []reflect.Type) (ConstructorExecutor, error) {
	fns := r.locator.constructorsFor(typeName)
	if len(fns) == 0 {
		return nil, nil
	}
	converter := ctx.TypeConverter()

	var closeCand, convertCand *methodCandidate
	var convertInfo argsMatchInfo
	ambiguous := false

	for _, fn := range fns {
		ft := fn.Type()
		cand := methodCandidate{fn: fn, params: paramTypes(ft), variadic: ft.IsVariadic()}

		var info argsMatchInfo
		if cand.variadic && len(argTypes) >= len(cand.params)-1 {
			info = compareArgumentsVarargs(cand.params, argTypes, converter)
		} else if len(argTypes) == len(cand.params) {
			info = compareArguments(cand.params, argTypes, converter)
		} else {
			continue
		}

		c := cand
		switch info.kind {
		case exactMatch:
			return &constructorExecutor{newConstructorInvoker(typeName, c, nil)}, nil
		case closeMatch:
			closeCand = &c
		case convertMatch:
			if convertCand != nil && convertCand.fn != c.fn {
				ambiguous = true
			}
			convertCand = &c
			convertInfo = info
		}
	}

	if closeCand != nil {
		return &constructorExecutor{newConstructorInvoker(typeName, *closeCand, nil)}, nil
	}
	if convertCand != nil {
		if ambiguous {
			return nil, NewEvalError(CodeMultiplePossibleMethods, 0,
				"multiple possible constructors for %s", FormatMethodForMessage(typeName, argTypes))
		}
		return &constructorExecutor{newConstructorInvoker(typeName, *convertCand, convertInfo.argsToConvert)}, nil
	}
	return nil, nil
}

func newConstructorInvoker(name string, cand methodCandidate, argsToConvert []int) *ReflectiveMethodExecutor {
	return &ReflectiveMethodExecutor{
		name:          name,
		fn:            cand.fn,
		params:        cand.params,
		variadic:      cand.variadic,
		typeLevel:     true,
		argsToConvert: argsToConvert,
	}
}

type constructorExecutor struct {
	invoker *ReflectiveMethodExecutor
}

func (c *constructorExecutor) Execute(ctx EvaluationContext, args []any) (value.TypedValue, error) {
	return c.invoker.Execute(ctx, nil, args)
}
