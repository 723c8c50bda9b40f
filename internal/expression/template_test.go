package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spellang/spel/internal/evalcontext"
)

func TestRenderTemplate(t *testing.T) {
	ctx := evalcontext.NewStandardContext(map[string]any{
		"name":  "Ada",
		"count": 3,
	})

	tests := []struct {
		name     string
		template string
		expected any
	}{
		{"no expressions pass through", "plain text", "plain text"},
		{"single expression keeps its type", "#{count + 1}", int64(4)},
		{"interpolation renders to string", "hello #{name}, you have #{2 + 1} items", "hello Ada, you have 3 items"},
		{"escaped expression stays literal", `\#{name}`, "#{name}"},
		{"escape beside a live expression", `\#{x} is #{name}`, "#{x} is Ada"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderTemplate(tt.template, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRenderTemplate_SingleExpressionValue(t *testing.T) {
	ctx := evalcontext.NewStandardContext(map[string]any{"nums": []int{1, 2}})

	got, err := RenderTemplate("#{nums}", ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got, "a lone expression returns the raw value")

	got, err = RenderTemplate("total: #{nums[0] + nums[1]}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "total: 3", got)
}

func TestRenderTemplate_Errors(t *testing.T) {
	ctx := evalcontext.NewStandardContext(nil)

	_, err := RenderTemplate("#{1 +}", ctx)
	assert.Error(t, err)

	_, err = RenderTemplate("#{#ghost}", ctx)
	assert.Error(t, err)
}
