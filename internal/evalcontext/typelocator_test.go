package evalcontext

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y int
}

func TestStandardTypeLocator_FindType(t *testing.T) {
	locator := NewStandardTypeLocator()
	locator.RegisterType("Point", reflect.TypeOf(point{}))

	found, err := locator.FindType("Point")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(point{}), found)

	_, err = locator.FindType("Missing")
	assert.Error(t, err)
}

func TestFactoryConstructorResolver(t *testing.T) {
	newCtx := func() *StandardEvaluationContext {
		ctx := NewStandardContext(nil)
		ctx.RegisterConstructor("Point", func(x, y int) point { return point{X: x, Y: y} })
		return ctx
	}
	intType := reflect.TypeOf(0)

	t.Run("exact factory match", func(t *testing.T) {
		ctx := newCtx()
		exec, err := ctx.ConstructorResolvers()[0].Resolve(ctx, "Point", []reflect.Type{intType, intType})
		require.NoError(t, err)
		require.NotNil(t, exec)

		tv, err := exec.Execute(ctx, []any{1, 2})
		require.NoError(t, err)
		assert.Equal(t, point{X: 1, Y: 2}, tv.Value())
	})

	t.Run("convertible factory match", func(t *testing.T) {
		ctx := newCtx()
		exec, err := ctx.ConstructorResolvers()[0].Resolve(ctx, "Point",
			[]reflect.Type{reflect.TypeOf(0.0), intType})
		require.NoError(t, err)
		require.NotNil(t, exec)

		tv, err := exec.Execute(ctx, []any{1.0, 2})
		require.NoError(t, err)
		assert.Equal(t, point{X: 1, Y: 2}, tv.Value())
	})

	t.Run("unknown type name passes", func(t *testing.T) {
		ctx := newCtx()
		exec, err := ctx.ConstructorResolvers()[0].Resolve(ctx, "Circle", nil)
		require.NoError(t, err)
		assert.Nil(t, exec)
	})

	t.Run("wrong arity passes", func(t *testing.T) {
		ctx := newCtx()
		exec, err := ctx.ConstructorResolvers()[0].Resolve(ctx, "Point", []reflect.Type{intType})
		require.NoError(t, err)
		assert.Nil(t, exec)
	})

	t.Run("two convertible factories are ambiguous", func(t *testing.T) {
		ctx := newCtx()
		ctx.RegisterConstructor("Wide", func(f float64) point { return point{X: int(f)} })
		ctx.RegisterConstructor("Wide", func(i int8) point { return point{X: int(i)} })

		_, err := ctx.ConstructorResolvers()[0].Resolve(ctx, "Wide", []reflect.Type{intType})
		var evalErr *EvalError
		require.ErrorAs(t, err, &evalErr)
		assert.Equal(t, CodeMultiplePossibleMethods, evalErr.Code)
	})

	t.Run("factory error carries the cause", func(t *testing.T) {
		ctx := newCtx()
		ctx.RegisterConstructor("Strict", func(x int) (point, error) {
			return point{}, errors.New("invalid coordinate")
		})
		exec, err := ctx.ConstructorResolvers()[0].Resolve(ctx, "Strict", []reflect.Type{intType})
		require.NoError(t, err)
		require.NotNil(t, exec)

		_, err = exec.Execute(ctx, []any{-1})
		var access *AccessError
		require.ErrorAs(t, err, &access)
		require.NotNil(t, access.Cause)
		assert.EqualError(t, access.Cause, "invalid coordinate")
	})
}
