package evalcontext

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type calc struct {
	Base int
}

func (c calc) Add(n int) int          { return c.Base + n }
func (c calc) Show(v any) string      { return fmt.Sprintf("%v", v) }
func (c calc) Half(f float64) float64 { return f / 2 }
func (c calc) Fail() (int, error)     { return 0, errors.New("boom") }
func (c calc) Explode() int           { panic("kaboom") }

func (c calc) Sum(ns ...int) int {
	total := c.Base
	for _, n := range ns {
		total += n
	}
	return total
}

func resolveOn(t *testing.T, ctx EvaluationContext, target any, name string, args ...any) MethodExecutor {
	t.Helper()
	argTypes := make([]reflect.Type, len(args))
	for i, a := range args {
		if a != nil {
			argTypes[i] = reflect.TypeOf(a)
		}
	}
	exec, err := ctx.MethodResolvers()[0].Resolve(ctx, target, name, argTypes)
	require.NoError(t, err)
	return exec
}

func TestReflectiveMethodResolver_InstanceCalls(t *testing.T) {
	ctx := NewStandardContext(nil)

	tests := []struct {
		name     string
		method   string
		args     []any
		expected any
	}{
		{"exact match on declared name", "Add", []any{3}, 5},
		{"lower camel name reaches Go method", "add", []any{3}, 5},
		{"close match into any parameter", "Show", []any{42}, "42"},
		{"convertible match coerces int to float64", "Half", []any{5}, 2.5},
		{"varargs spread", "Sum", []any{1, 2, 3}, 8},
		{"varargs whole slice passed through", "Sum", []any{[]int{1, 2, 3}}, 8},
		{"varargs empty tail", "Sum", []any{}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := resolveOn(t, ctx, calc{Base: 2}, tt.method, tt.args...)
			require.NotNil(t, exec)
			tv, err := exec.Execute(ctx, calc{Base: 2}, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tv.Value())
		})
	}
}

func TestReflectiveMethodResolver_NoCandidate(t *testing.T) {
	ctx := NewStandardContext(nil)

	t.Run("nil target resolves to nothing", func(t *testing.T) {
		exec, err := ctx.MethodResolvers()[0].Resolve(ctx, nil, "Add", nil)
		require.NoError(t, err)
		assert.Nil(t, exec)
	})

	t.Run("unknown name resolves to nothing", func(t *testing.T) {
		assert.Nil(t, resolveOn(t, ctx, calc{}, "NoSuchMethod"))
	})

	t.Run("wrong arity resolves to nothing", func(t *testing.T) {
		assert.Nil(t, resolveOn(t, ctx, calc{}, "Add", 1, 2))
	})

	t.Run("incompatible argument resolves to nothing", func(t *testing.T) {
		assert.Nil(t, resolveOn(t, ctx, calc{}, "Add", []string{"x"}))
	})
}

func TestReflectiveMethodResolver_OverloadSelection(t *testing.T) {
	t.Run("first exact match wins over a close match", func(t *testing.T) {
		ctx := NewStandardContext(nil)
		ctx.RegisterFunction("pick", func(c calc, v any) string { return "any" })
		ctx.RegisterFunction("pick", func(c calc, n int) string { return "int" })

		exec := resolveOn(t, ctx, calc{}, "pick", 7)
		require.NotNil(t, exec)
		tv, err := exec.Execute(ctx, calc{}, []any{7})
		require.NoError(t, err)
		assert.Equal(t, "int", tv.Value())
	})

	t.Run("last close match wins when no exact exists", func(t *testing.T) {
		ctx := NewStandardContext(nil)
		ctx.RegisterFunction("tag", func(c calc, v any) string { return "first" })
		ctx.RegisterFunction("tag", func(c calc, v any) string { return "second" })

		exec := resolveOn(t, ctx, calc{}, "tag", "x")
		require.NotNil(t, exec)
		tv, err := exec.Execute(ctx, calc{}, []any{"x"})
		require.NoError(t, err)
		assert.Equal(t, "second", tv.Value())
	})

	t.Run("close match beats convertible match", func(t *testing.T) {
		ctx := NewStandardContext(nil)
		ctx.RegisterFunction("rank", func(c calc, f float64) string { return "convert" })
		ctx.RegisterFunction("rank", func(c calc, v any) string { return "close" })

		exec := resolveOn(t, ctx, calc{}, "rank", 3)
		require.NotNil(t, exec)
		tv, err := exec.Execute(ctx, calc{}, []any{3})
		require.NoError(t, err)
		assert.Equal(t, "close", tv.Value())
	})

	t.Run("two distinct convertible candidates are ambiguous", func(t *testing.T) {
		ctx := NewStandardContext(nil)
		ctx.RegisterFunction("scale", func(c calc, f float64) string { return "f" })
		ctx.RegisterFunction("scale", func(c calc, i int8) string { return "i" })

		_, err := ctx.MethodResolvers()[0].Resolve(ctx, calc{}, "scale",
			[]reflect.Type{reflect.TypeOf(0)})
		require.Error(t, err)
		var evalErr *EvalError
		require.ErrorAs(t, err, &evalErr)
		assert.Equal(t, CodeMultiplePossibleMethods, evalErr.Code)
	})
}

func TestReflectiveMethodResolver_TypeLevelCall(t *testing.T) {
	ctx := NewStandardContext(nil)

	// Type-level resolution takes the receiver as the first argument, the way
	// a Go method expression does.
	argTypes := []reflect.Type{reflect.TypeOf(calc{}), reflect.TypeOf(0)}
	exec, err := ctx.MethodResolvers()[0].Resolve(ctx, reflect.TypeOf(calc{}), "Add", argTypes)
	require.NoError(t, err)
	require.NotNil(t, exec)

	tv, err := exec.Execute(ctx, nil, []any{calc{Base: 10}, 4})
	require.NoError(t, err)
	assert.Equal(t, 14, tv.Value())
}

func TestReflectiveMethodResolver_MethodFilter(t *testing.T) {
	ctx := NewStandardContext(nil)
	ctx.RegisterMethodFilter(reflect.TypeOf(calc{}), func(methods []reflect.Method) []reflect.Method {
		var kept []reflect.Method
		for _, m := range methods {
			if m.Name != "Add" {
				kept = append(kept, m)
			}
		}
		return kept
	})

	assert.Nil(t, resolveOn(t, ctx, calc{}, "Add", 1), "filtered method must not resolve")
	assert.NotNil(t, resolveOn(t, ctx, calc{}, "Show", 1), "unfiltered methods still resolve")
}

func TestReflectiveMethodExecutor_Failures(t *testing.T) {
	ctx := NewStandardContext(nil)

	t.Run("receiver type change is a stale executor, no cause", func(t *testing.T) {
		exec := resolveOn(t, ctx, calc{}, "Add", 1)
		require.NotNil(t, exec)
		_, err := exec.Execute(ctx, "not a calc", []any{1})
		var access *AccessError
		require.ErrorAs(t, err, &access)
		assert.Nil(t, access.Cause)
	})

	t.Run("argument count change is a stale executor, no cause", func(t *testing.T) {
		exec := resolveOn(t, ctx, calc{}, "Add", 1)
		require.NotNil(t, exec)
		_, err := exec.Execute(ctx, calc{}, []any{1, 2})
		var access *AccessError
		require.ErrorAs(t, err, &access)
		assert.Nil(t, access.Cause)
	})

	t.Run("error result carries the cause", func(t *testing.T) {
		exec := resolveOn(t, ctx, calc{}, "Fail")
		require.NotNil(t, exec)
		_, err := exec.Execute(ctx, calc{}, nil)
		var access *AccessError
		require.ErrorAs(t, err, &access)
		require.NotNil(t, access.Cause)
		assert.EqualError(t, access.Cause, "boom")
	})

	t.Run("panic carries the cause", func(t *testing.T) {
		exec := resolveOn(t, ctx, calc{}, "Explode")
		require.NotNil(t, exec)
		_, err := exec.Execute(ctx, calc{}, nil)
		var access *AccessError
		require.ErrorAs(t, err, &access)
		require.NotNil(t, access.Cause)
		assert.Contains(t, access.Cause.Error(), "kaboom")
	})
}

func TestCompareArguments_NullHandling(t *testing.T) {
	conv := &StandardTypeConverter{}

	t.Run("null fits pointer and interface parameters", func(t *testing.T) {
		assert.Equal(t, closeMatch, matchType(nil, reflect.TypeOf((*calc)(nil)), conv))
		assert.Equal(t, closeMatch, matchType(nil, reflect.TypeOf((*any)(nil)).Elem(), conv))
		assert.Equal(t, closeMatch, matchType(nil, reflect.TypeOf([]int(nil)), conv))
	})

	t.Run("null never fits a value parameter", func(t *testing.T) {
		assert.Equal(t, noMatch, matchType(nil, reflect.TypeOf(0), conv))
		assert.Equal(t, noMatch, matchType(nil, reflect.TypeOf(calc{}), conv))
	})
}
