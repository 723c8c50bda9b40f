package evalcontext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type person struct {
	Name string
	Age  int

	nickname string
}

func (p person) Initials() string   { return p.Name[:1] }
func (p person) GetNickname() string { return p.nickname }

func TestReflectivePropertyAccessor_Read(t *testing.T) {
	ctx := NewStandardContext(nil)
	accessor := &ReflectivePropertyAccessor{}

	tests := []struct {
		name     string
		target   any
		property string
		expected any
	}{
		{"map key", map[string]any{"city": "Oslo"}, "city", "Oslo"},
		{"struct field by exact name", person{Name: "Ada"}, "Name", "Ada"},
		{"struct field by expression name", person{Name: "Ada"}, "name", "Ada"},
		{"pointer to struct", &person{Age: 30}, "age", 30},
		{"plain getter method", person{Name: "Ada"}, "initials", "A"},
		{"get-prefixed getter method", person{nickname: "ace"}, "nickname", "ace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.True(t, accessor.CanRead(ctx, tt.target, tt.property))
			tv, err := accessor.Read(ctx, tt.target, tt.property)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tv.Value())
		})
	}
}

func TestReflectivePropertyAccessor_ReadFailures(t *testing.T) {
	ctx := NewStandardContext(nil)
	accessor := &ReflectivePropertyAccessor{}

	t.Run("nil target", func(t *testing.T) {
		assert.False(t, accessor.CanRead(ctx, nil, "name"))
		_, err := accessor.Read(ctx, nil, "name")
		var access *AccessError
		require.ErrorAs(t, err, &access)
	})

	t.Run("missing map key", func(t *testing.T) {
		assert.False(t, accessor.CanRead(ctx, map[string]any{}, "city"))
	})

	t.Run("missing struct member", func(t *testing.T) {
		assert.False(t, accessor.CanRead(ctx, person{}, "salary"))
		_, err := accessor.Read(ctx, person{}, "salary")
		var access *AccessError
		require.ErrorAs(t, err, &access)
		assert.Nil(t, access.Cause)
	})
}

func TestReflectivePropertyAccessor_Write(t *testing.T) {
	ctx := NewStandardContext(nil)
	accessor := &ReflectivePropertyAccessor{}

	t.Run("map entry", func(t *testing.T) {
		m := map[string]any{}
		require.True(t, accessor.CanWrite(ctx, m, "city"))
		require.NoError(t, accessor.Write(ctx, m, "city", "Oslo"))
		assert.Equal(t, "Oslo", m["city"])
	})

	t.Run("map entry with conversion", func(t *testing.T) {
		m := map[string]int{}
		require.NoError(t, accessor.Write(ctx, m, "count", "12"))
		assert.Equal(t, 12, m["count"])
	})

	t.Run("settable struct field", func(t *testing.T) {
		p := &person{}
		require.True(t, accessor.CanWrite(ctx, p, "name"))
		require.NoError(t, accessor.Write(ctx, p, "name", "Ada"))
		assert.Equal(t, "Ada", p.Name)
	})

	t.Run("struct field with conversion", func(t *testing.T) {
		p := &person{}
		require.NoError(t, accessor.Write(ctx, p, "age", int64(41)))
		assert.Equal(t, 41, p.Age)
	})

	t.Run("value struct is not settable", func(t *testing.T) {
		assert.False(t, accessor.CanWrite(ctx, person{}, "name"))
		err := accessor.Write(ctx, person{}, "name", "Ada")
		var access *AccessError
		require.ErrorAs(t, err, &access)
	})

	t.Run("nil clears a field", func(t *testing.T) {
		p := &person{Name: "Ada"}
		require.NoError(t, accessor.Write(ctx, p, "name", nil))
		assert.Empty(t, p.Name)
	})
}
