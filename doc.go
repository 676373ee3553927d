// Package gptcommands exposes a host object's methods as callable tools to an
// LLM chat API and marshals model-issued calls back into real invocations.
//
// # Overview
//
// The model produces tool calls as streamed JSON fragments. This package turns
// them into concrete Go function calls: introspect the registered commands into
// JSON Schema tool declarations, stream one assistant turn, reassemble the
// fragmented arguments, validate them against the exact schema the model was
// shown, invoke the bound function, and feed the result back into the
// conversation until the model answers with plain text.
//
// Pipeline: Go function + doc string → NewCommand (reflection + schema) →
// Registry → Client.ChatStream (turn loop) ⇄ chat API.
//
// # Key concepts
//
//   - Single Source of Truth: the schema advertised to the model is the schema
//     incoming arguments are validated against.
//   - Strict rejection: a call with missing or unexpected argument keys fails
//     with *ArgumentError before any user code runs.
//   - Self-Correction: validation and handler failures become tool-result
//     messages, so the model sees every failure and can retry with corrected
//     arguments instead of crashing the loop.
//
// See NewCommand, NewRegistry, and New for setup; Transport for swapping the
// network boundary (the default speaks OpenAI chat completions with SSE).
//
// # Example
//
//	type Game struct{ ... }
//	func (g *Game) Expelliarmus(target string) { ... }
//
//	cmd, err := gptcommands.NewCommand("expelliarmus", `Disarm the target
//
//	Args:
//	    target (str): The target to disarm`, game.Expelliarmus, "target")
//	if err != nil { ... }
//	reg, err := gptcommands.NewRegistry([]*gptcommands.Command{cmd})
//	if err != nil { ... }
//	client := gptcommands.New("gpt-4o", systemPrompt, reg)
//	defer client.Close()
//	err = client.ChatStream(ctx, "A Death Eater appears!", func(chunk string) error {
//	    fmt.Print(chunk)
//	    return nil
//	})
package gptcommands
