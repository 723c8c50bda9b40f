package ast

import (
	"reflect"

	"github.com/spellang/spel/internal/evalcontext"
	"github.com/spellang/spel/internal/value"
)

// Indexer reads container[index] off the active context object: integer
// indexing into slices, arrays and strings, key indexing into maps.
type Indexer struct {
	nodeBase
	Index Node
}

func NewIndexer(pos int, index Node) *Indexer {
	return &Indexer{nodeBase{pos}, index}
}

func (n *Indexer) Evaluate(state *evalcontext.ExpressionState) (value.TypedValue, error) {
	target := state.ActiveContextObject()
	if target.IsNull() {
		return value.Null, evalcontext.NewEvalError(evalcontext.CodeInvalidIndexTarget, n.pos,
			"cannot index into a null object")
	}

	idx, err := n.Index.Evaluate(state)
	if err != nil {
		return value.Null, err
	}

	rv := reflect.ValueOf(target.Value())
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		i, ok := asInt(idx.Value())
		if !ok {
			return value.Null, evalcontext.NewEvalError(evalcontext.CodeInvalidIndexTarget, n.pos,
				"%T index must be an integer, got %T", target.Value(), idx.Value())
		}
		if i < 0 || int(i) >= rv.Len() {
			return value.Null, evalcontext.NewEvalError(evalcontext.CodeIndexOutOfRange, n.pos,
				"index %d out of range for length %d", i, rv.Len())
		}
		elemDesc := value.ValueOf(rv.Type().Elem())
		return value.NewWithDescriptor(rv.Index(int(i)).Interface(), elemDesc), nil

	case reflect.Map:
		key, err := mapKeyFor(state, rv.Type(), idx.Value())
		if err != nil {
			return value.Null, evalcontext.WrapEvalError(err, evalcontext.CodeInvalidIndexTarget, n.pos,
				"map key %v does not fit %s", idx.Value(), rv.Type().Key())
		}
		entry := rv.MapIndex(key)
		if !entry.IsValid() {
			return value.Null, nil
		}
		return value.NewWithDescriptor(entry.Interface(), value.ValueOf(rv.Type().Elem())), nil

	case reflect.String:
		i, ok := asInt(idx.Value())
		if !ok {
			return value.Null, evalcontext.NewEvalError(evalcontext.CodeInvalidIndexTarget, n.pos,
				"string index must be an integer, got %T", idx.Value())
		}
		runes := []rune(rv.String())
		if i < 0 || int(i) >= len(runes) {
			return value.Null, evalcontext.NewEvalError(evalcontext.CodeIndexOutOfRange, n.pos,
				"index %d out of range for length %d", i, len(runes))
		}
		return value.New(string(runes[i])), nil
	}
	return value.Null, evalcontext.NewEvalError(evalcontext.CodeInvalidIndexTarget, n.pos,
		"cannot index into %T", target.Value())
}

// IsWritable implements Writable for slice elements and map entries.
func (n *Indexer) IsWritable(state *evalcontext.ExpressionState) bool {
	target := state.ActiveContextObject()
	if target.IsNull() {
		return false
	}
	k := reflect.ValueOf(target.Value()).Kind()
	return k == reflect.Slice || k == reflect.Map
}

// SetValue implements Writable.
func (n *Indexer) SetValue(state *evalcontext.ExpressionState, newValue any) error {
	target := state.ActiveContextObject()
	if target.IsNull() {
		return evalcontext.NewEvalError(evalcontext.CodeInvalidIndexTarget, n.pos,
			"cannot index into a null object")
	}
	idx, err := n.Index.Evaluate(state)
	if err != nil {
		return err
	}

	rv := reflect.ValueOf(target.Value())
	switch rv.Kind() {
	case reflect.Slice:
		i, ok := asInt(idx.Value())
		if !ok || i < 0 || int(i) >= rv.Len() {
			return evalcontext.NewEvalError(evalcontext.CodeIndexOutOfRange, n.pos,
				"index %v out of range for length %d", idx.Value(), rv.Len())
		}
		nv, err := coerceTo(state, newValue, rv.Type().Elem())
		if err != nil {
			return evalcontext.WrapEvalError(err, evalcontext.CodeNotAssignable, n.pos,
				"cannot assign %T into %s", newValue, rv.Type().Elem())
		}
		rv.Index(int(i)).Set(nv)
		return nil

	case reflect.Map:
		key, err := mapKeyFor(state, rv.Type(), idx.Value())
		if err != nil {
			return evalcontext.WrapEvalError(err, evalcontext.CodeInvalidIndexTarget, n.pos,
				"map key %v does not fit %s", idx.Value(), rv.Type().Key())
		}
		nv, err := coerceTo(state, newValue, rv.Type().Elem())
		if err != nil {
			return evalcontext.WrapEvalError(err, evalcontext.CodeNotAssignable, n.pos,
				"cannot assign %T into %s", newValue, rv.Type().Elem())
		}
		rv.SetMapIndex(key, nv)
		return nil
	}
	return evalcontext.NewEvalError(evalcontext.CodeNotAssignable, n.pos,
		"cannot assign into %T", target.Value())
}

func (n *Indexer) StringAST() string {
	return "[" + n.Index.StringAST() + "]"
}

func mapKeyFor(state *evalcontext.ExpressionState, mapType reflect.Type, key any) (reflect.Value, error) {
	kv := reflect.ValueOf(key)
	kt := mapType.Key()
	if key == nil {
		return reflect.Zero(kt), nil
	}
	if kv.Type().AssignableTo(kt) {
		return kv, nil
	}
	converted, err := state.EvaluationContext().TypeConverter().Convert(key, kt)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(converted), nil
}

func coerceTo(state *evalcontext.ExpressionState, v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	converted, err := state.EvaluationContext().TypeConverter().Convert(v, t)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(converted), nil
}
