package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractObjectBare(t *testing.T) {
	obj, ok := ExtractObject(`{"decision":"buy"}`)
	assert.True(t, ok)
	assert.Equal(t, `{"decision":"buy"}`, obj)
}

func TestExtractObjectFromFence(t *testing.T) {
	raw := "Here is my analysis.\n```json\n{\"decision\": \"hold\", \"percentage\": 0}\n```\nLet me know."
	obj, ok := ExtractObject(raw)
	assert.True(t, ok)
	assert.Equal(t, `{"decision": "hold", "percentage": 0}`, obj)
}

func TestExtractObjectWithSurroundingProse(t *testing.T) {
	raw := `Based on the data, my decision: {"decision":"sell","reason":"overbought {RSI}"} and that is final.`
	obj, ok := ExtractObject(raw)
	assert.True(t, ok)
	assert.Equal(t, `{"decision":"sell","reason":"overbought {RSI}"}`, obj)
}

func TestExtractObjectHandlesBracesInStrings(t *testing.T) {
	raw := `{"reason":"support at {60k} holds","note":"quote \" inside"}`
	obj, ok := ExtractObject(raw)
	assert.True(t, ok)
	assert.Equal(t, raw, obj)
}

func TestExtractObjectFailures(t *testing.T) {
	for _, raw := range []string{"", "no json here", "[1,2,3]", `{"unterminated": true`} {
		_, ok := ExtractObject(raw)
		assert.False(t, ok, "raw=%q", raw)
	}
}
