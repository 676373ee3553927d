// Package testutil provides test helpers for gptcommands (e.g. ScriptTransport).
package testutil

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	gptcommands "github.com/keenua/gpt-commands-go"
)

// ScriptTurn is one scripted assistant turn: either text fragments or one
// tool call delivered as argument fragments.
type ScriptTurn struct {
	Text     []string // text fragments, forwarded one delta each
	CallName string   // when set, the turn is a tool call
	CallArgs []string // argument fragments, concatenated by the consumer
	CallID   string   // generated when empty
}

// ScriptTransport replays scripted turns as streamed deltas, one turn per
// Open. It records every outbound request for assertions.
type ScriptTransport struct {
	Turns    []ScriptTurn
	Requests []gptcommands.Request
	next     int
}

// Open replays the next scripted turn. Fails when the script is exhausted.
func (t *ScriptTransport) Open(_ context.Context, req gptcommands.Request) (gptcommands.DeltaStream, error) {
	t.Requests = append(t.Requests, req)
	if t.next >= len(t.Turns) {
		return nil, fmt.Errorf("script exhausted after %d turns", t.next)
	}
	turn := t.Turns[t.next]
	t.next++

	var deltas []gptcommands.Delta
	if turn.CallName != "" {
		id := turn.CallID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		deltas = append(deltas, gptcommands.Delta{
			Call: &gptcommands.CallDelta{ID: id, Name: turn.CallName},
		})
		for _, fragment := range turn.CallArgs {
			deltas = append(deltas, gptcommands.Delta{
				Call: &gptcommands.CallDelta{ID: id, Arguments: fragment},
			})
		}
		deltas = append(deltas, gptcommands.Delta{FinishReason: gptcommands.FinishToolCalls})
	} else {
		for _, fragment := range turn.Text {
			deltas = append(deltas, gptcommands.Delta{Text: fragment})
		}
		deltas = append(deltas, gptcommands.Delta{FinishReason: gptcommands.FinishStop})
	}
	return &scriptStream{deltas: deltas}, nil
}

type scriptStream struct {
	deltas []gptcommands.Delta
	pos    int
	closed bool
}

func (s *scriptStream) Next() (gptcommands.Delta, error) {
	if s.closed || s.pos >= len(s.deltas) {
		return gptcommands.Delta{}, io.EOF
	}
	d := s.deltas[s.pos]
	s.pos++
	return d, nil
}

func (s *scriptStream) Close() error {
	s.closed = true
	return nil
}

var _ gptcommands.Transport = (*ScriptTransport)(nil)
