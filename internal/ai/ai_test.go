package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/cloneplan/internal/config"
)

func TestStubGenerateText(t *testing.T) {
	stub := NewStub()
	ctx := context.Background()

	t.Run("deterministic for same prompt", func(t *testing.T) {
		a, err := stub.GenerateText(ctx, "t1", "describe the design")
		require.NoError(t, err)
		b, err := stub.GenerateText(ctx, "t2", "describe the design")
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.NotEmpty(t, a)
	})

	t.Run("idea prompts return one idea per line", func(t *testing.T) {
		out, err := stub.GenerateText(ctx, "t1", "Suggest three business ideas for this site")
		require.NoError(t, err)
		assert.Len(t, splitLines(out), 3)
	})

	t.Run("honors cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := stub.GenerateText(cancelled, "t1", "anything")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestStubGenerateImage(t *testing.T) {
	stub := NewStub()
	out, err := stub.GenerateImage(context.Background(), "t1", "wireframe of a shop main page")
	require.NoError(t, err)
	assert.Contains(t, out, "https://placehold.co/")
	assert.Contains(t, out, "wireframe")
}

func TestRegistry(t *testing.T) {
	t.Run("stub always available", func(t *testing.T) {
		r, err := NewRegistry(config.AIConfig{}, nil, nil)
		require.NoError(t, err)

		p, err := r.Bind(Selection{Text: BackendStub, Image: BackendStub, Ideas: BackendStub})
		require.NoError(t, err)
		require.NotNil(t, p.Text)
		require.NotNil(t, p.Image)
		require.NotNil(t, p.Ideas)
	})

	t.Run("openai unavailable without key", func(t *testing.T) {
		r, err := NewRegistry(config.AIConfig{}, nil, nil)
		require.NoError(t, err)

		_, err = r.Bind(Selection{Text: BackendOpenAI, Image: BackendStub, Ideas: BackendStub})
		assert.Error(t, err)
	})

	t.Run("unknown backend rejected", func(t *testing.T) {
		r, err := NewRegistry(config.AIConfig{}, nil, nil)
		require.NoError(t, err)

		_, err = r.Bind(Selection{Text: BackendStub, Image: "local", Ideas: BackendStub})
		assert.Error(t, err)
	})
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	return lines
}
