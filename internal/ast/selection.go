package ast

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/spellang/spel/internal/evalcontext"
	"github.com/spellang/spel/internal/value"
)

// SelectionVariant distinguishes ?[...] (all), ^[...] (first) and $[...]
// (last).
type SelectionVariant int

const (
	SelectAll SelectionVariant = iota
	SelectFirst
	SelectLast
)

// MapEntry is the active context object pushed per map entry during
// selection and projection; predicates reach it as key and value.
type MapEntry struct {
	Key   any
	Value any
}

// Selection filters a map or collection source by a boolean predicate,
// re-entering the interpreter per element with a pushed context frame. For
// collection sources the current position is also published as the scoped
// #index variable. ALL over zero matches yields an empty result of the
// source's kind, never null; FIRST and LAST over zero matches yield typed
// null. Frames are popped per element in all paths.
type Selection struct {
	nodeBase
	Variant   SelectionVariant
	Predicate Node
}

func NewSelection(pos int, variant SelectionVariant, predicate Node) *Selection {
	return &Selection{nodeBase{pos}, variant, predicate}
}

func (n *Selection) Evaluate(state *evalcontext.ExpressionState) (value.TypedValue, error) {
	target := state.ActiveContextObject()
	if target.IsNull() {
		return value.Null, evalcontext.NewEvalError(evalcontext.CodeInvalidTypeForSelection, n.pos,
			"selection cannot be applied to a null object")
	}

	rv := reflect.ValueOf(target.Value())
	switch rv.Kind() {
	case reflect.Map:
		return n.evaluateMap(state, rv)
	case reflect.Slice, reflect.Array:
		return n.evaluateCollection(state, rv)
	}
	return value.Null, evalcontext.NewEvalError(evalcontext.CodeInvalidTypeForSelection, n.pos,
		"selection requires a map or collection source, got %T", target.Value())
}

func (n *Selection) evaluateMap(state *evalcontext.ExpressionState, rv reflect.Value) (value.TypedValue, error) {
	result := reflect.MakeMap(rv.Type())
	var lastKey reflect.Value
	matched := false

	for _, key := range sortedMapKeys(rv) {
		entry := MapEntry{Key: key.Interface(), Value: rv.MapIndex(key).Interface()}
		match, err := n.matchesPredicate(state, value.New(entry), -1)
		if err != nil {
			return value.Null, err
		}
		if !match {
			continue
		}
		if n.Variant == SelectFirst {
			single := reflect.MakeMap(rv.Type())
			single.SetMapIndex(key, rv.MapIndex(key))
			return value.New(single.Interface()), nil
		}
		result.SetMapIndex(key, rv.MapIndex(key))
		lastKey = key
		matched = true
	}

	switch n.Variant {
	case SelectAll:
		return value.New(result.Interface()), nil
	case SelectLast:
		if !matched {
			return value.Null, nil
		}
		single := reflect.MakeMap(rv.Type())
		single.SetMapIndex(lastKey, rv.MapIndex(lastKey))
		return value.New(single.Interface()), nil
	default:
		// FIRST with no match.
		return value.Null, nil
	}
}

func (n *Selection) evaluateCollection(state *evalcontext.ExpressionState, rv reflect.Value) (value.TypedValue, error) {
	elemDesc := value.ValueOf(rv.Type().Elem())
	result := reflect.MakeSlice(reflect.SliceOf(rv.Type().Elem()), 0, 0)
	lastIdx := -1

	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i)
		match, err := n.matchesPredicate(state, value.NewWithDescriptor(elem.Interface(), elemDesc), i)
		if err != nil {
			return value.Null, err
		}
		if !match {
			continue
		}
		if n.Variant == SelectFirst {
			return value.NewWithDescriptor(elem.Interface(), elemDesc), nil
		}
		result = reflect.Append(result, elem)
		lastIdx = i
	}

	switch n.Variant {
	case SelectAll:
		return value.New(result.Interface()), nil
	case SelectLast:
		if lastIdx < 0 {
			return value.Null, nil
		}
		return value.NewWithDescriptor(rv.Index(lastIdx).Interface(), elemDesc), nil
	default:
		return value.Null, nil
	}
}

// matchesPredicate evaluates the predicate with element pushed as the
// active context object; index >= 0 additionally publishes the scoped
// #index variable.
func (n *Selection) matchesPredicate(state *evalcontext.ExpressionState, element value.TypedValue, index int) (bool, error) {
	state.PushActiveContextObject(element)
	defer state.PopActiveContextObject()
	if index >= 0 {
		state.EnterScope()
		defer state.ExitScope()
		state.SetLocalVariable("index", index)
	}

	v, err := n.Predicate.Evaluate(state)
	if err != nil {
		return false, err
	}
	b, ok := v.Value().(bool)
	if !ok {
		return false, evalcontext.NewEvalError(evalcontext.CodeSelectionCriteriaNotBoolean, n.Predicate.Position(),
			"selection predicate %q did not yield a boolean", n.Predicate.StringAST())
	}
	return b, nil
}

func (n *Selection) StringAST() string {
	var prefix string
	switch n.Variant {
	case SelectFirst:
		prefix = "^["
	case SelectLast:
		prefix = "$["
	default:
		prefix = "?["
	}
	return prefix + n.Predicate.StringAST() + "]"
}

// sortedMapKeys fixes an iteration order for map sources. Go randomizes map
// iteration, so keys are ordered by their rendered form to keep selection
// and projection deterministic across evaluations.
func sortedMapKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	return keys
}
