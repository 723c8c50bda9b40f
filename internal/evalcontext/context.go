package evalcontext

import (
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/spellang/spel/internal/value"
)

// MethodExecutor is a resolved, directly invokable handle to a method.
type MethodExecutor interface {
	Execute(ctx EvaluationContext, target any, args []any) (value.TypedValue, error)
}

// MethodResolver turns a (target, name, argument types) triple into an
// executor. A nil executor with a nil error means "not mine, try the next
// resolver"; an error aborts the whole chain.
type MethodResolver interface {
	Resolve(ctx EvaluationContext, target any, name string, argTypes []reflect.Type) (MethodExecutor, error)
}

// PropertyAccessor reads and writes named properties on a target object.
type PropertyAccessor interface {
	// SpecificTargetTypes returns the types this accessor is limited to, or
	// nil for a generic accessor. Specific accessors are consulted before
	// generic ones.
	SpecificTargetTypes() []reflect.Type
	CanRead(ctx EvaluationContext, target any, name string) bool
	Read(ctx EvaluationContext, target any, name string) (value.TypedValue, error)
	CanWrite(ctx EvaluationContext, target any, name string) bool
	Write(ctx EvaluationContext, target any, name string, newValue any) error
}

// ConstructorExecutor is a resolved, directly invokable constructor.
type ConstructorExecutor interface {
	Execute(ctx EvaluationContext, args []any) (value.TypedValue, error)
}

// ConstructorResolver turns a type name and argument types into a
// constructor executor, with the same nil/"pass" convention as
// MethodResolver.
type ConstructorResolver interface {
	Resolve(ctx EvaluationContext, typeName string, argTypes []reflect.Type) (ConstructorExecutor, error)
}

// TypeLocator resolves a type name mentioned in an expression to a runtime
// type.
type TypeLocator interface {
	FindType(name string) (reflect.Type, error)
}

// TypeConverter performs best-effort value coercion between runtime types.
type TypeConverter interface {
	CanConvert(from, to reflect.Type) bool
	Convert(v any, to reflect.Type) (any, error)
}

// MethodFilter narrows the candidate methods considered for a registered
// target type before overload matching runs.
type MethodFilter func(methods []reflect.Method) []reflect.Method

// EvaluationContext is the mutable per-session state an expression is
// evaluated against: root object, variables and the resolver chains. It is
// supplied by the caller and may be reused across many evaluations; sharing
// one context across goroutines is the caller's concern.
type EvaluationContext interface {
	RootObject() value.TypedValue
	SetVariable(name string, v any)
	LookupVariable(name string) (any, bool)
	PropertyAccessors() []PropertyAccessor
	MethodResolvers() []MethodResolver
	ConstructorResolvers() []ConstructorResolver
	TypeLocator() TypeLocator
	TypeConverter() TypeConverter
}

// StandardEvaluationContext is the zero-configuration default context,
// pre-registered with the reflective resolvers and the standard converter.
type StandardEvaluationContext struct {
	id   string
	root value.TypedValue

	mu        sync.RWMutex
	variables map[string]any

	propertyAccessors    []PropertyAccessor
	methodResolvers      []MethodResolver
	constructorResolvers []ConstructorResolver
	typeLocator          *StandardTypeLocator
	typeConverter        TypeConverter

	// reflective is also present in methodResolvers; kept separately so
	// RegisterFunction can reach it.
	reflective *ReflectiveMethodResolver

	logger zerolog.Logger
}

// NewStandardContext builds a context rooted at the given object.
func NewStandardContext(root any) *StandardEvaluationContext {
	id := uuid.NewString()
	locator := NewStandardTypeLocator()
	reflective := NewReflectiveMethodResolver()
	ctx := &StandardEvaluationContext{
		id:                   id,
		root:                 value.New(root),
		variables:            make(map[string]any),
		propertyAccessors:    []PropertyAccessor{&ReflectivePropertyAccessor{}},
		methodResolvers:      []MethodResolver{reflective},
		constructorResolvers: []ConstructorResolver{NewFactoryConstructorResolver(locator)},
		typeLocator:          locator,
		typeConverter:        &StandardTypeConverter{},
		reflective:           reflective,
		logger:               log.With().Str("eval_ctx", id).Logger(),
	}
	return ctx
}

// ID returns the context's correlation id used in debug logging.
func (c *StandardEvaluationContext) ID() string {
	return c.id
}

// RootObject returns the implicit receiver for unqualified references.
func (c *StandardEvaluationContext) RootObject() value.TypedValue {
	return c.root
}

// SetRootObject replaces the root object for subsequent evaluations.
func (c *StandardEvaluationContext) SetRootObject(root any) {
	c.root = value.New(root)
}

// SetVariable binds a named variable, reachable as #name.
func (c *StandardEvaluationContext) SetVariable(name string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variables[name] = v
}

// LookupVariable resolves a named variable binding.
func (c *StandardEvaluationContext) LookupVariable(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.variables[name]
	return v, ok
}

func (c *StandardEvaluationContext) PropertyAccessors() []PropertyAccessor {
	return c.propertyAccessors
}

func (c *StandardEvaluationContext) MethodResolvers() []MethodResolver {
	return c.methodResolvers
}

func (c *StandardEvaluationContext) ConstructorResolvers() []ConstructorResolver {
	return c.constructorResolvers
}

func (c *StandardEvaluationContext) TypeLocator() TypeLocator {
	return c.typeLocator
}

func (c *StandardEvaluationContext) TypeConverter() TypeConverter {
	return c.typeConverter
}

// AddPropertyAccessor prepends an accessor so caller-supplied accessors win
// over the reflective default.
func (c *StandardEvaluationContext) AddPropertyAccessor(a PropertyAccessor) {
	c.propertyAccessors = append([]PropertyAccessor{a}, c.propertyAccessors...)
}

// AddMethodResolver prepends a resolver ahead of the reflective default.
func (c *StandardEvaluationContext) AddMethodResolver(r MethodResolver) {
	c.methodResolvers = append([]MethodResolver{r}, c.methodResolvers...)
}

// SetTypeConverter replaces the converter used for convertible-match
// coercion.
func (c *StandardEvaluationContext) SetTypeConverter(tc TypeConverter) {
	c.typeConverter = tc
}

// RegisterFunction registers fn as an extension method overload. The
// function's first parameter is the receiver; calls like target.name(args)
// consider it alongside the receiver's own methods.
func (c *StandardEvaluationContext) RegisterFunction(name string, fn any) {
	c.reflective.RegisterFunction(name, fn)
	c.logger.Debug().Str("function", name).Msg("registered extension function")
}

// RegisterMethodFilter narrows the methods considered for the given target
// type.
func (c *StandardEvaluationContext) RegisterMethodFilter(target reflect.Type, f MethodFilter) {
	c.reflective.RegisterMethodFilter(target, f)
}

// RegisterType makes a type name resolvable in expressions.
func (c *StandardEvaluationContext) RegisterType(name string, t reflect.Type) {
	c.typeLocator.RegisterType(name, t)
}

// RegisterConstructor registers a factory function for new Name(...)
// expressions.
func (c *StandardEvaluationContext) RegisterConstructor(name string, fn any) {
	c.typeLocator.RegisterConstructor(name, fn)
	c.logger.Debug().Str("type", name).Msg("registered constructor")
}
