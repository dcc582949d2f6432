package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseText(t *testing.T) {
	text, finish, err := ResponseText([]byte(`{"candidates":[{"content":{"parts":[{"text":"\n hello \n"},{"text":"ignored"}]},"finishReason":"STOP"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, "STOP", finish)
}

func TestResponseText_EmptyTextIsNotAnError(t *testing.T) {
	text, _, err := ResponseText([]byte(`{"candidates":[{"content":{"parts":[{"text":""}]}}]}`))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestResponseText_RejectsMalformedEnvelopes(t *testing.T) {
	for name, raw := range map[string]string{
		"no candidates":   `{"candidates":[]}`,
		"no parts":        `{"candidates":[{"content":{"parts":[]}}]}`,
		"text not string": `{"candidates":[{"content":{"parts":[{"text":5}]}}]}`,
		"not json":        `<html>`,
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := ResponseText([]byte(raw))
			assert.Error(t, err)
		})
	}
}
