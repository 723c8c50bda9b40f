package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spellang/spel/internal/evalcontext"
)

type inventory struct {
	Name   string
	Prices []int
	Labels map[string]string
}

func (inv inventory) Count() int { return len(inv.Prices) }

func sampleRoot() inventory {
	return inventory{
		Name:   "store",
		Prices: []int{5, 150, 30, 99, 200},
		Labels: map[string]string{"tier": "gold"},
	}
}

func TestExpression_Value(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected any
	}{
		{"literal arithmetic", "1 + 2 * 3", int64(7)},
		{"root property", "name", "store"},
		{"indexed property", "prices[1]", 150},
		{"map property", "labels['tier']", "gold"},
		{"method call", "count()", 5},
		{"selection all", "prices.?[#this < 100]", []int{5, 30, 99}},
		{"selection first", "prices.^[#this > 100]", 150},
		{"selection last", "prices.$[#this > 100]", 200},
		{"projection", "prices.![#this / 5]", []any{int64(1), int64(30), int64(6), int64(19), int64(40)}},
		{"chained selection and projection", "prices.?[#this > 50].![#this + 1]", []any{int64(151), int64(100), int64(201)}},
		{"ternary", "count() > 3 ? 'many' : 'few'", "many"},
		{"elvis on null-safe miss", "labels['missing'] ?: 'default'", "default"},
		{"string building", "'shop: ' + name", "shop: store"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Parse(tt.source)
			require.NoError(t, err)
			v, err := expr.Value(sampleRoot())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestExpression_Reevaluation(t *testing.T) {
	expr := MustParse("name")

	v, err := expr.Value(inventory{Name: "first"})
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	v, err = expr.Value(inventory{Name: "second"})
	require.NoError(t, err)
	assert.Equal(t, "second", v)
}

func TestExpression_Variables(t *testing.T) {
	ctx := evalcontext.NewStandardContext(sampleRoot())
	ctx.SetVariable("limit", 100)

	v, err := MustParse("prices.?[#this < #limit]").ValueWithContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 30, 99}, v)

	t.Run("undefined variable fails by default", func(t *testing.T) {
		_, err := MustParse("#ghost").ValueWithContext(ctx)
		var evalErr *evalcontext.EvalError
		require.ErrorAs(t, err, &evalErr)
		assert.Equal(t, evalcontext.CodeVariableNotFound, evalErr.Code)
	})

	t.Run("undefined variable allowed by config", func(t *testing.T) {
		expr, err := ParseWithConfig("#ghost", Config{AllowUndefinedVariables: true})
		require.NoError(t, err)
		v, err := expr.ValueWithContext(ctx)
		require.NoError(t, err)
		assert.Nil(t, v)
	})
}

func TestExpression_RegisteredFunctions(t *testing.T) {
	ctx := evalcontext.NewStandardContext(sampleRoot())
	ctx.RegisterFunction("tagline", func(inv inventory, suffix string) string {
		return inv.Name + suffix
	})

	v, err := MustParse("tagline('!')").ValueWithContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "store!", v)
}

func TestExpression_SetValue(t *testing.T) {
	t.Run("writes through a property chain", func(t *testing.T) {
		root := &inventory{Name: "old"}
		ctx := evalcontext.NewStandardContext(root)
		expr := MustParse("name")

		require.True(t, expr.IsWritable(ctx))
		require.NoError(t, expr.SetValue(ctx, "new"))
		assert.Equal(t, "new", root.Name)
	})

	t.Run("writes into an indexed slot", func(t *testing.T) {
		root := inventory{Prices: []int{1, 2, 3}}
		ctx := evalcontext.NewStandardContext(root)
		require.NoError(t, MustParse("prices[0]").SetValue(ctx, 10))
		assert.Equal(t, []int{10, 2, 3}, root.Prices)
	})

	t.Run("literals are not writable", func(t *testing.T) {
		ctx := evalcontext.NewStandardContext(nil)
		expr := MustParse("42")
		assert.False(t, expr.IsWritable(ctx))
		err := expr.SetValue(ctx, 1)
		var evalErr *evalcontext.EvalError
		require.ErrorAs(t, err, &evalErr)
		assert.Equal(t, evalcontext.CodeNotAssignable, evalErr.Code)
	})

	t.Run("assignment expressions bind variables", func(t *testing.T) {
		ctx := evalcontext.NewStandardContext(nil)
		v, err := MustParse("#x = 41 + 1").ValueWithContext(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(42), v)

		bound, ok := ctx.LookupVariable("x")
		require.True(t, ok)
		assert.Equal(t, int64(42), bound)
	})
}

func TestExpression_ValueType(t *testing.T) {
	ctx := evalcontext.NewStandardContext(sampleRoot())

	d, err := MustParse("prices").ValueType(ctx)
	require.NoError(t, err)
	assert.Equal(t, "int[]", d.AsString())

	d, err = MustParse("labels").ValueType(ctx)
	require.NoError(t, err)
	assert.Equal(t, "map<string, string>", d.AsString())
}

func TestExpression_ErrorPositions(t *testing.T) {
	ctx := evalcontext.NewStandardContext(sampleRoot())

	_, err := MustParse("name.vanish").ValueWithContext(ctx)
	var evalErr *evalcontext.EvalError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, evalcontext.CodePropertyNotFound, evalErr.Code)
	assert.Equal(t, 5, evalErr.Position)
}

func TestExpression_Source(t *testing.T) {
	expr := MustParse("1 + 2")
	assert.Equal(t, "1 + 2", expr.Source())
	assert.Equal(t, "(1 + 2)", expr.StringAST())
}

func TestEvaluate_OneShot(t *testing.T) {
	v, err := Evaluate("name", sampleRoot())
	require.NoError(t, err)
	assert.Equal(t, "store", v)

	_, err = Evaluate("1 +", nil)
	assert.Error(t, err)
}
