package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spellang/spel/internal/evalcontext"
)

func newState(root any) *evalcontext.ExpressionState {
	return evalcontext.NewExpressionState(evalcontext.NewStandardContext(root), evalcontext.Config{})
}

// (#this % 2) == 0
func evenPredicate() Node {
	return NewOperatorBinary(0, OpEq,
		NewOperatorBinary(0, OpMod, NewVariableReference(0, "this"), NewIntLiteral(0, 2)),
		NewIntLiteral(0, 0))
}

// #this > n
func greaterThan(n int64) Node {
	return NewOperatorBinary(0, OpGt, NewVariableReference(0, "this"), NewIntLiteral(0, n))
}

func TestSelection_Collection(t *testing.T) {
	nums := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	t.Run("all keeps matches in order", func(t *testing.T) {
		tv, err := NewSelection(0, SelectAll, evenPredicate()).Evaluate(newState(nums))
		require.NoError(t, err)
		assert.Equal(t, []int{2, 4, 6, 8, 10}, tv.Value())
	})

	t.Run("first returns the element itself", func(t *testing.T) {
		tv, err := NewSelection(0, SelectFirst, evenPredicate()).Evaluate(newState(nums))
		require.NoError(t, err)
		assert.Equal(t, 2, tv.Value())
	})

	t.Run("last returns the element itself", func(t *testing.T) {
		tv, err := NewSelection(0, SelectLast, evenPredicate()).Evaluate(newState(nums))
		require.NoError(t, err)
		assert.Equal(t, 10, tv.Value())
	})

	t.Run("all with no match is empty, not null", func(t *testing.T) {
		tv, err := NewSelection(0, SelectAll, greaterThan(100)).Evaluate(newState(nums))
		require.NoError(t, err)
		require.False(t, tv.IsNull())
		assert.Empty(t, tv.Value())
		assert.IsType(t, []int{}, tv.Value())
	})

	t.Run("first with no match is null", func(t *testing.T) {
		tv, err := NewSelection(0, SelectFirst, greaterThan(100)).Evaluate(newState(nums))
		require.NoError(t, err)
		assert.True(t, tv.IsNull())
	})

	t.Run("last with no match is null", func(t *testing.T) {
		tv, err := NewSelection(0, SelectLast, greaterThan(100)).Evaluate(newState(nums))
		require.NoError(t, err)
		assert.True(t, tv.IsNull())
	})

	t.Run("index variable is in scope during the predicate", func(t *testing.T) {
		// #index == 2
		pred := NewOperatorBinary(0, OpEq, NewVariableReference(0, "index"), NewIntLiteral(0, 2))
		tv, err := NewSelection(0, SelectAll, pred).Evaluate(newState([]string{"a", "b", "c"}))
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, tv.Value())
	})
}

func TestSelection_Map(t *testing.T) {
	ages := map[string]int{"ada": 36, "bob": 17, "cam": 52}
	// value >= 18, reaching the entry's value field
	adults := NewOperatorBinary(0, OpGe, NewPropertyReference(0, "value", false), NewIntLiteral(0, 18))
	nobody := NewOperatorBinary(0, OpGt, NewPropertyReference(0, "value", false), NewIntLiteral(0, 100))

	t.Run("all yields the matching entries", func(t *testing.T) {
		tv, err := NewSelection(0, SelectAll, adults).Evaluate(newState(ages))
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"ada": 36, "cam": 52}, tv.Value())
	})

	t.Run("first yields a single-entry map in key order", func(t *testing.T) {
		tv, err := NewSelection(0, SelectFirst, adults).Evaluate(newState(ages))
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"ada": 36}, tv.Value())
	})

	t.Run("last yields the final matching entry", func(t *testing.T) {
		tv, err := NewSelection(0, SelectLast, adults).Evaluate(newState(ages))
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"cam": 52}, tv.Value())
	})

	t.Run("all with no match is an empty map, not null", func(t *testing.T) {
		tv, err := NewSelection(0, SelectAll, nobody).Evaluate(newState(ages))
		require.NoError(t, err)
		require.False(t, tv.IsNull())
		assert.Equal(t, map[string]int{}, tv.Value())
	})

	t.Run("first and last with no match are null", func(t *testing.T) {
		for _, variant := range []SelectionVariant{SelectFirst, SelectLast} {
			tv, err := NewSelection(0, variant, nobody).Evaluate(newState(ages))
			require.NoError(t, err)
			assert.True(t, tv.IsNull())
		}
	})

	t.Run("keys are reachable in the predicate", func(t *testing.T) {
		// key == 'bob'
		pred := NewOperatorBinary(0, OpEq, NewPropertyReference(0, "key", false), NewStringLiteral(0, "bob"))
		tv, err := NewSelection(0, SelectAll, pred).Evaluate(newState(ages))
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"bob": 17}, tv.Value())
	})
}

func TestSelection_Errors(t *testing.T) {
	t.Run("non-boolean predicate reports its position", func(t *testing.T) {
		pred := NewIntLiteral(7, 1)
		_, err := NewSelection(0, SelectAll, pred).Evaluate(newState([]int{1, 2}))
		var evalErr *evalcontext.EvalError
		require.ErrorAs(t, err, &evalErr)
		assert.Equal(t, evalcontext.CodeSelectionCriteriaNotBoolean, evalErr.Code)
		assert.Equal(t, 7, evalErr.Position)
	})

	t.Run("non-collection source", func(t *testing.T) {
		_, err := NewSelection(3, SelectAll, evenPredicate()).Evaluate(newState(42))
		var evalErr *evalcontext.EvalError
		require.ErrorAs(t, err, &evalErr)
		assert.Equal(t, evalcontext.CodeInvalidTypeForSelection, evalErr.Code)
		assert.Equal(t, 3, evalErr.Position)
	})

	t.Run("null source", func(t *testing.T) {
		_, err := NewSelection(0, SelectAll, evenPredicate()).Evaluate(newState(nil))
		var evalErr *evalcontext.EvalError
		require.ErrorAs(t, err, &evalErr)
		assert.Equal(t, evalcontext.CodeInvalidTypeForSelection, evalErr.Code)
	})

	t.Run("frames and scopes balance after a predicate failure", func(t *testing.T) {
		state := newState([]int{1, 2, 3})
		pred := NewVariableReference(0, "missing")
		_, err := NewSelection(0, SelectAll, pred).Evaluate(state)
		require.Error(t, err)
		assert.Zero(t, state.FrameDepth())
		assert.Zero(t, state.ScopeDepth())
	})
}

func TestProjection(t *testing.T) {
	t.Run("collection elements map through the expression", func(t *testing.T) {
		// #this * #this
		expr := NewOperatorBinary(0, OpMul, NewVariableReference(0, "this"), NewVariableReference(0, "this"))
		tv, err := NewProjection(0, expr).Evaluate(newState([]int{1, 2, 3}))
		require.NoError(t, err)
		assert.Equal(t, []any{int64(1), int64(4), int64(9)}, tv.Value())
	})

	t.Run("map entries project in key order", func(t *testing.T) {
		expr := NewPropertyReference(0, "value", false)
		tv, err := NewProjection(0, expr).Evaluate(newState(map[string]int{"c": 3, "a": 1, "b": 2}))
		require.NoError(t, err)
		assert.Equal(t, []any{1, 2, 3}, tv.Value())
	})

	t.Run("empty source projects to an empty list", func(t *testing.T) {
		tv, err := NewProjection(0, NewVariableReference(0, "this")).Evaluate(newState([]int{}))
		require.NoError(t, err)
		require.False(t, tv.IsNull())
		assert.Empty(t, tv.Value())
	})

	t.Run("non-collection source", func(t *testing.T) {
		_, err := NewProjection(0, NewVariableReference(0, "this")).Evaluate(newState("text"))
		var evalErr *evalcontext.EvalError
		require.ErrorAs(t, err, &evalErr)
		assert.Equal(t, evalcontext.CodeInvalidTypeForProjection, evalErr.Code)
	})

	t.Run("frames balance after an element failure", func(t *testing.T) {
		state := newState([]int{1, 2})
		_, err := NewProjection(0, NewVariableReference(0, "missing")).Evaluate(state)
		require.Error(t, err)
		assert.Zero(t, state.FrameDepth())
		assert.Zero(t, state.ScopeDepth())
	})
}
