package gptcommands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Registry holds the commands advertised to the model and invokes them with
// strict argument validation. Immutable after construction: it is built once
// per command set and lives for the session.
type Registry struct {
	commands map[string]*Command
	invokers map[string]Invoker
	order    []string // registration order, used by Export
	opts     registryOptions
}

// NewRegistry builds a Registry from the given commands. Duplicate command
// names are rejected. Middlewares and hooks from opts are baked in here; the
// registry cannot be changed afterwards.
func NewRegistry(cmds []*Command, opts ...RegistryOption) (*Registry, error) {
	o := registryOptions{recoverPanics: true}
	for _, opt := range opts {
		opt(&o)
	}
	r := &Registry{
		commands: make(map[string]*Command, len(cmds)),
		invokers: make(map[string]Invoker, len(cmds)),
		opts:     o,
	}
	for _, cmd := range cmds {
		if cmd == nil {
			return nil, fmt.Errorf("nil command")
		}
		name := cmd.Name()
		if _, dup := r.commands[name]; dup {
			return nil, fmt.Errorf("duplicate command %q", name)
		}
		inv := cmd.invoke
		if o.recoverPanics {
			inv = WithRecovery()(cmd, inv)
		}
		for i := len(o.middlewares) - 1; i >= 0; i-- {
			inv = o.middlewares[i](cmd, inv)
		}
		r.commands[name] = cmd
		r.invokers[name] = inv
		r.order = append(r.order, name)
	}
	return r, nil
}

// Len returns the number of registered commands.
func (r *Registry) Len() int { return len(r.order) }

// Export returns the tool schemas of all commands in registration order, for
// inclusion in every request to the model.
func (r *Registry) Export() []FunctionSpec {
	out := make([]FunctionSpec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.commands[name].Spec())
	}
	return out
}

// Resolve returns the command with the given name, or ErrUnknownCommand. An
// unknown name means the model asked for something never advertised; it must
// be surfaced, not silently ignored.
func (r *Registry) Resolve(name string) (*Command, error) {
	cmd, ok := r.commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return cmd, nil
}

// Invoke validates args against the named command's declared parameters and
// calls it. Missing required keys or extraneous keys fail with *ArgumentError
// before any user code runs; type mismatches fail schema validation. The
// result is the command's return value as tool-result content (strings as-is,
// other values as JSON, no return value as "null").
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]json.RawMessage) (string, error) {
	inv, ok := r.invokers[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	if r.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.timeout)
		defer cancel()
	}
	if r.opts.onBefore != nil {
		r.opts.onBefore(ctx, name, args)
	}
	start := time.Now()
	res, err := inv(ctx, args)
	if r.opts.onAfter != nil {
		r.opts.onAfter(ctx, name, res, err, time.Since(start))
	}
	return res, err
}

// panicError wraps a recovered panic value for SystemError.
type panicError struct{ p any }

func (e *panicError) Error() string {
	return "panic: " + fmt.Sprint(e.p)
}
