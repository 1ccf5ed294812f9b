package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlebarsRenderer_Render(t *testing.T) {
	r := NewHandlebarsRenderer()
	data := map[string]any{
		"subscriber": map[string]any{"first_name": "Ada"},
		"orderId":    "A-17",
		"step":       map[string]any{"digest": true, "total_count": 3},
	}

	out, err := r.Render("Hi {{subscriber.first_name}}, order {{orderId}}", data)
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada, order A-17", out)

	out, err = r.Render("{{#if step.digest}}{{step.total_count}} updates{{/if}}", data)
	require.NoError(t, err)
	assert.Equal(t, "3 updates", out)

	// cached template path
	out, err = r.Render("Hi {{subscriber.first_name}}, order {{orderId}}", data)
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada, order A-17", out)
}

func TestHandlebarsRenderer_EmptyTemplate(t *testing.T) {
	out, err := NewHandlebarsRenderer().Render("", nil)
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestHandlebarsRenderer_MalformedTemplate(t *testing.T) {
	_, err := NewHandlebarsRenderer().Render("Hello {{#if name}}", map[string]any{"name": "x"})
	require.Error(t, err)

	var renderErr *RenderError
	assert.True(t, errors.As(err, &renderErr))
}

func TestRenderStep(t *testing.T) {
	r := NewHandlebarsRenderer()

	title, content, err := RenderStep(r, "{{a}}", "{{b}}!", map[string]any{"a": "T", "b": "C"})
	require.NoError(t, err)
	assert.Equal(t, "T", title)
	assert.Equal(t, "C!", content)

	_, _, err = RenderStep(r, "ok", "{{/if}}", map[string]any{})
	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, "content", renderErr.Field)
	assert.Contains(t, err.Error(), "content")
}
