package evalcontext

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/stoewer/go-strcase"

	"github.com/spellang/spel/internal/value"
)

type matchKind int

const (
	noMatch matchKind = iota
	convertMatch
	closeMatch
	exactMatch
)

// argsMatchInfo is the outcome of comparing supplied argument types against
// a candidate's parameter list. For convertible matches, ArgsToConvert
// records which argument positions need coercion so invocation converts
// only those.
type argsMatchInfo struct {
	kind          matchKind
	argsToConvert []int
}

// methodCandidate is a callable under consideration: either one of the
// receiver type's own methods in method-expression form (receiver is the
// leading parameter) or a registered extension function with the receiver
// as its first parameter.
type methodCandidate struct {
	fn       reflect.Value
	params   []reflect.Type
	variadic bool
	// extension functions and type-level calls keep the receiver inside the
	// parameter list; instance calls drop params[0] before matching.
	receiverInParams bool
}

func (c methodCandidate) matchParams(typeLevel bool) []reflect.Type {
	if c.receiverInParams && !typeLevel {
		return c.params[1:]
	}
	return c.params
}

// ReflectiveMethodResolver finds the best method for a call site among the
// receiver's exported methods and any registered extension functions,
// using the three-tier exact/close/convert policy: the first exact match
// wins outright; otherwise the last close match, then the last convertible
// match; two distinct convertible candidates make the call ambiguous.
type ReflectiveMethodResolver struct {
	mu        sync.RWMutex
	functions map[string][]reflect.Value
	filters   map[reflect.Type]MethodFilter
}

// NewReflectiveMethodResolver builds an empty resolver; the receiver's own
// methods are always considered.
func NewReflectiveMethodResolver() *ReflectiveMethodResolver {
	return &ReflectiveMethodResolver{
		functions: make(map[string][]reflect.Value),
		filters:   make(map[reflect.Type]MethodFilter),
	}
}

// RegisterFunction registers fn (first parameter: receiver) as an overload
// for name. fn must be a func.
func (r *ReflectiveMethodResolver) RegisterFunction(name string, fn any) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.Type().NumIn() == 0 {
		panic(fmt.Sprintf("RegisterFunction(%q): need a func with a receiver parameter, got %T", name, fn))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[name] = append(r.functions[name], v)
}

// RegisterMethodFilter narrows the receiver methods considered for the
// given target type.
func (r *ReflectiveMethodResolver) RegisterMethodFilter(target reflect.Type, f MethodFilter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f == nil {
		delete(r.filters, target)
		return
	}
	r.filters[target] = f
}

// Resolve implements MethodResolver. Target may be a value (instance call)
// or a reflect.Type (type-level call, where the receiver is supplied as the
// first expression argument, Go method-expression style). A nil executor
// with nil error means no candidate matched.
func (r *ReflectiveMethodResolver) Resolve(ctx EvaluationContext, target any, name string, argTypes []reflect.Type) (MethodExecutor, error) {
	if target == nil {
		return nil, nil
	}
	recvType, typeLevel := target.(reflect.Type)
	if !typeLevel {
		recvType = reflect.TypeOf(target)
	}

	candidates := r.collectCandidates(recvType, name, typeLevel)
	if len(candidates) == 0 {
		return nil, nil
	}

	// Ascending parameter count: a minor optimization carried over from the
	// original search, not a correctness requirement.
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].matchParams(typeLevel)) < len(candidates[j].matchParams(typeLevel))
	})

	converter := ctx.TypeConverter()

	var closeCand, convertCand *methodCandidate
	var convertInfo argsMatchInfo
	ambiguous := false

	for i := range candidates {
		cand := candidates[i]
		params := cand.matchParams(typeLevel)

		var info argsMatchInfo
		if cand.variadic && len(argTypes) >= len(params)-1 {
			info = compareArgumentsVarargs(params, argTypes, converter)
		} else if len(argTypes) == len(params) {
			info = compareArguments(params, argTypes, converter)
		} else {
			continue
		}

		switch info.kind {
		case exactMatch:
			return newReflectiveExecutor(name, cand, recvType, typeLevel, nil), nil
		case closeMatch:
			closeCand = &candidates[i]
		case convertMatch:
			if convertCand != nil && convertCand.fn != cand.fn {
				ambiguous = true
			}
			convertCand = &candidates[i]
			convertInfo = info
		}
	}

	if closeCand != nil {
		return newReflectiveExecutor(name, *closeCand, recvType, typeLevel, nil), nil
	}
	if convertCand != nil {
		if ambiguous {
			return nil, NewEvalError(CodeMultiplePossibleMethods, 0,
				"multiple possible methods for %s on %s", FormatMethodForMessage(name, argTypes), recvType)
		}
		return newReflectiveExecutor(name, *convertCand, recvType, typeLevel, convertInfo.argsToConvert), nil
	}
	return nil, nil
}

func (r *ReflectiveMethodResolver) collectCandidates(recvType reflect.Type, name string, typeLevel bool) []methodCandidate {
	var candidates []methodCandidate

	goName := strcase.UpperCamelCase(name)
	methods := make([]reflect.Method, 0, recvType.NumMethod())
	for i := 0; i < recvType.NumMethod(); i++ {
		m := recvType.Method(i)
		if m.PkgPath != "" {
			continue
		}
		methods = append(methods, m)
	}
	r.mu.RLock()
	filter := r.filters[recvType]
	fns := r.functions[name]
	r.mu.RUnlock()
	if filter != nil {
		methods = filter(methods)
	}
	for _, m := range methods {
		if m.Name != name && m.Name != goName {
			continue
		}
		ft := m.Func.Type()
		candidates = append(candidates, methodCandidate{
			fn:               m.Func,
			params:           paramTypes(ft),
			variadic:         ft.IsVariadic(),
			receiverInParams: true,
		})
	}

	if !typeLevel {
		for _, fn := range fns {
			ft := fn.Type()
			if ft.NumIn() == 0 {
				continue
			}
			if recvType != ft.In(0) && !recvType.AssignableTo(ft.In(0)) {
				continue
			}
			candidates = append(candidates, methodCandidate{
				fn:               fn,
				params:           paramTypes(ft),
				variadic:         ft.IsVariadic(),
				receiverInParams: true,
			})
		}
	}

	if len(candidates) > 1 {
		log.Debug().Str("method", name).Int("candidates", len(candidates)).
			Str("receiver", recvType.String()).Msg("overloaded call site")
	}
	return candidates
}

func paramTypes(ft reflect.Type) []reflect.Type {
	params := make([]reflect.Type, ft.NumIn())
	for i := range params {
		params[i] = ft.In(i)
	}
	return params
}

// matchType classifies how a single supplied argument type fits a declared
// parameter type.
func matchType(arg, param reflect.Type, converter TypeConverter) matchKind {
	if arg == nil {
		// A null argument fits any nilable parameter without conversion.
		switch param.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
			return closeMatch
		}
		return noMatch
	}
	if arg == param {
		return exactMatch
	}
	if arg.AssignableTo(param) {
		return closeMatch
	}
	if converter != nil && converter.CanConvert(arg, param) {
		return convertMatch
	}
	return noMatch
}

// compareArguments runs the fixed-arity comparison: exact only when every
// position is exact, convertible when any position needs coercion.
func compareArguments(params, argTypes []reflect.Type, converter TypeConverter) argsMatchInfo {
	overall := exactMatch
	var toConvert []int
	for i, arg := range argTypes {
		switch matchType(arg, params[i], converter) {
		case noMatch:
			return argsMatchInfo{kind: noMatch}
		case convertMatch:
			overall = convertMatch
			toConvert = append(toConvert, i)
		case closeMatch:
			if overall == exactMatch {
				overall = closeMatch
			}
		}
	}
	return argsMatchInfo{kind: overall, argsToConvert: toConvert}
}

// compareArgumentsVarargs is the distinct comparison routine for variadic
// candidates, applicable when the supplied count is at least the declared
// fixed count. A variadic spread never ranks better than close; passing a
// slice directly into the variadic slot can still be exact.
func compareArgumentsVarargs(params, argTypes []reflect.Type, converter TypeConverter) argsMatchInfo {
	fixed := len(params) - 1
	overall := exactMatch
	var toConvert []int
	for i := 0; i < fixed; i++ {
		switch matchType(argTypes[i], params[i], converter) {
		case noMatch:
			return argsMatchInfo{kind: noMatch}
		case convertMatch:
			overall = convertMatch
			toConvert = append(toConvert, i)
		case closeMatch:
			if overall == exactMatch {
				overall = closeMatch
			}
		}
	}

	sliceParam := params[fixed]
	if len(argTypes) == len(params) && argTypes[fixed] != nil && argTypes[fixed] == sliceParam {
		// Whole slice handed straight through.
		return argsMatchInfo{kind: overall, argsToConvert: toConvert}
	}

	elem := sliceParam.Elem()
	if overall == exactMatch {
		overall = closeMatch
	}
	for i := fixed; i < len(argTypes); i++ {
		switch matchType(argTypes[i], elem, converter) {
		case noMatch:
			return argsMatchInfo{kind: noMatch}
		case convertMatch:
			overall = convertMatch
			toConvert = append(toConvert, i)
		}
	}
	return argsMatchInfo{kind: overall, argsToConvert: toConvert}
}

// ReflectiveMethodExecutor invokes a resolved candidate. Execute reports a
// shape mismatch (wrong receiver type, wrong arity, unassignable argument)
// as an AccessError without a cause, which call sites treat as a stale
// cached executor; a panic inside the method or a non-nil trailing error
// result becomes an AccessError with that cause attached.
type ReflectiveMethodExecutor struct {
	name          string
	fn            reflect.Value
	params        []reflect.Type
	variadic      bool
	typeLevel     bool
	expectedRecv  reflect.Type
	argsToConvert []int
}

func newReflectiveExecutor(name string, cand methodCandidate, recvType reflect.Type, typeLevel bool, argsToConvert []int) *ReflectiveMethodExecutor {
	return &ReflectiveMethodExecutor{
		name:          name,
		fn:            cand.fn,
		params:        cand.params,
		variadic:      cand.variadic,
		typeLevel:     typeLevel,
		expectedRecv:  recvType,
		argsToConvert: argsToConvert,
	}
}

// Execute implements MethodExecutor.
func (e *ReflectiveMethodExecutor) Execute(ctx EvaluationContext, target any, args []any) (tv value.TypedValue, err error) {
	callArgs := args
	if !e.typeLevel {
		if reflect.TypeOf(target) != e.expectedRecv {
			return value.Null, &AccessError{Message: fmt.Sprintf("receiver type changed for %s", e.name)}
		}
		callArgs = append([]any{target}, args...)
	}

	convertAt := make(map[int]bool, len(e.argsToConvert))
	offset := 0
	if !e.typeLevel {
		offset = 1
	}
	for _, i := range e.argsToConvert {
		convertAt[i+offset] = true
	}

	in, aerr := e.assembleCallArgs(ctx, callArgs, convertAt)
	if aerr != nil {
		return value.Null, aerr
	}

	defer func() {
		if p := recover(); p != nil {
			err = &AccessError{
				Message: fmt.Sprintf("method %s panicked", e.name),
				Cause:   fmt.Errorf("%v", p),
			}
		}
	}()

	var out []reflect.Value
	if e.variadic {
		// assembleCallArgs always packs the variadic tail into one slice.
		out = e.fn.CallSlice(in)
	} else {
		out = e.fn.Call(in)
	}
	return resultValue(e.name, out)
}

func (e *ReflectiveMethodExecutor) assembleCallArgs(ctx EvaluationContext, callArgs []any, convertAt map[int]bool) ([]reflect.Value, error) {
	fixed := len(e.params)
	if e.variadic {
		fixed--
		if len(callArgs) < fixed {
			return nil, &AccessError{Message: fmt.Sprintf("argument count changed for %s", e.name)}
		}
	} else if len(callArgs) != len(e.params) {
		return nil, &AccessError{Message: fmt.Sprintf("argument count changed for %s", e.name)}
	}

	in := make([]reflect.Value, 0, len(callArgs))
	for i := 0; i < fixed; i++ {
		v, err := e.prepareArg(ctx, callArgs[i], e.params[i], convertAt[i])
		if err != nil {
			return nil, err
		}
		in = append(in, v)
	}
	if !e.variadic {
		return in, nil
	}

	sliceParam := e.params[len(e.params)-1]
	if len(callArgs) == len(e.params) {
		if last := callArgs[len(callArgs)-1]; last != nil && reflect.TypeOf(last) == sliceParam {
			in = append(in, reflect.ValueOf(last))
			return in, nil
		}
	}
	elem := sliceParam.Elem()
	spread := reflect.MakeSlice(sliceParam, 0, len(callArgs)-fixed)
	for i := fixed; i < len(callArgs); i++ {
		v, err := e.prepareArg(ctx, callArgs[i], elem, convertAt[i])
		if err != nil {
			return nil, err
		}
		spread = reflect.Append(spread, v)
	}
	in = append(in, spread)
	return in, nil
}

func (e *ReflectiveMethodExecutor) prepareArg(ctx EvaluationContext, arg any, param reflect.Type, convert bool) (reflect.Value, error) {
	if arg == nil {
		switch param.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
			return reflect.Zero(param), nil
		}
		return reflect.Value{}, &AccessError{Message: fmt.Sprintf("null argument no longer fits %s", e.name)}
	}
	if convert {
		converted, err := ctx.TypeConverter().Convert(arg, param)
		if err != nil {
			return reflect.Value{}, &AccessError{Message: fmt.Sprintf("argument conversion failed for %s: %v", e.name, err)}
		}
		arg = converted
	}
	v := reflect.ValueOf(arg)
	if !v.Type().AssignableTo(param) {
		return reflect.Value{}, &AccessError{Message: fmt.Sprintf("argument shape changed for %s", e.name)}
	}
	return v, nil
}

func resultValue(name string, out []reflect.Value) (value.TypedValue, error) {
	if n := len(out); n > 0 {
		if last := out[n-1]; last.Type() == errorType {
			if !last.IsNil() {
				return value.Null, &AccessError{
					Message: fmt.Sprintf("method %s returned error", name),
					Cause:   last.Interface().(error),
				}
			}
			out = out[:n-1]
		}
	}
	if len(out) == 0 {
		return value.Null, nil
	}
	return value.New(out[0].Interface()), nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()
