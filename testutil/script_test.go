package testutil

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gptcommands "github.com/keenua/gpt-commands-go"
)

func drain(t *testing.T, s gptcommands.DeltaStream) []gptcommands.Delta {
	t.Helper()
	var out []gptcommands.Delta
	for {
		d, err := s.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, d)
	}
}

func TestScriptTransport_TextTurn(t *testing.T) {
	tr := &ScriptTransport{Turns: []ScriptTurn{
		{Text: []string{"one", "two"}},
	}}

	stream, err := tr.Open(context.Background(), gptcommands.Request{Model: "m"})
	require.NoError(t, err)
	defer stream.Close()

	deltas := drain(t, stream)
	require.Len(t, deltas, 3)
	assert.Equal(t, "one", deltas[0].Text)
	assert.Equal(t, "two", deltas[1].Text)
	assert.Equal(t, gptcommands.FinishStop, deltas[2].FinishReason)

	require.Len(t, tr.Requests, 1)
	assert.Equal(t, "m", tr.Requests[0].Model)
}

func TestScriptTransport_CallTurn(t *testing.T) {
	tr := &ScriptTransport{Turns: []ScriptTurn{
		{CallName: "spell", CallArgs: []string{`{"a":`, `1}`}},
	}}

	stream, err := tr.Open(context.Background(), gptcommands.Request{})
	require.NoError(t, err)
	defer stream.Close()

	deltas := drain(t, stream)
	require.Len(t, deltas, 4)

	first := deltas[0].Call
	require.NotNil(t, first)
	assert.Equal(t, "spell", first.Name)
	assert.True(t, strings.HasPrefix(first.ID, "call_"), first.ID)

	args := deltas[1].Call.Arguments + deltas[2].Call.Arguments
	assert.Equal(t, `{"a":1}`, args)
	assert.Equal(t, gptcommands.FinishToolCalls, deltas[3].FinishReason)
}

func TestScriptTransport_Exhausted(t *testing.T) {
	tr := &ScriptTransport{}
	_, err := tr.Open(context.Background(), gptcommands.Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script exhausted")
}

func TestScriptStream_CloseStopsDelivery(t *testing.T) {
	tr := &ScriptTransport{Turns: []ScriptTurn{{Text: []string{"a", "b"}}}}
	stream, err := tr.Open(context.Background(), gptcommands.Request{})
	require.NoError(t, err)

	_, err = stream.Next()
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)
}
