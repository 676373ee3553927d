package gptcommands

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ParameterSpec describes one declared parameter of a command.
type ParameterSpec struct {
	Name        string
	Schema      *TypeSchema
	Required    bool // non-pointer parameters are required
	Description string
}

// FunctionSpec is the exported tool schema of one command: name, summary
// description, and the parameters in declaration order.
type FunctionSpec struct {
	Name        string
	Description string
	Parameters  []ParameterSpec
}

// JSONMap renders the spec in the tool-declaration wire shape:
// an object schema whose top-level fields are the parameters, with `required`
// listing exactly the required parameter names.
func (s FunctionSpec) JSONMap() map[string]any {
	props := make(map[string]any, len(s.Parameters))
	required := make([]string, 0, len(s.Parameters))
	for _, p := range s.Parameters {
		m := p.Schema.jsonMap()
		if p.Description != "" {
			m["description"] = p.Description
		}
		props[p.Name] = m
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"name":        s.Name,
		"description": s.Description,
		"parameters": map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		},
	}
}

// return shapes supported by command functions
type returnShape int

const (
	retNone returnShape = iota
	retErrOnly
	retValue
	retValueErr
)

// Command binds one callable to its exported schema. Built once by NewCommand;
// immutable afterwards.
type Command struct {
	spec     FunctionSpec
	fn       reflect.Value
	params   []reflect.Type // declared parameter types, ctx excluded
	wantsCtx bool
	ret      returnShape
	compiled *jsonschema.Schema // parameter schema, closed for validation
}

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// NewCommand builds a Command from a function, its doc string, and the names
// of its parameters in declaration order. Registration is explicit: Go
// reflection does not expose parameter names, so the host binds them here.
//
// An optional leading context.Context parameter is skipped (it is supplied at
// invoke time) and does not take a name. Every remaining parameter must be
// covered by exactly one name; a count mismatch fails with ErrMissingParamName.
// Parameter types must fall inside the supported schema grammar.
//
// The doc string supplies the command description (leading paragraph) and
// per-parameter descriptions ("Args:" section, "name (type): text" lines).
// A parameter absent from the doc gets an empty description; doc names with no
// matching parameter are ignored.
//
// fn may return nothing, R, error, or (R, error).
func NewCommand(name, doc string, fn any, paramNames ...string) (*Command, error) {
	if name == "" {
		return nil, fmt.Errorf("command name must not be empty")
	}
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, fmt.Errorf("command %s: fn must be a function", name)
	}
	t := v.Type()
	if t.IsVariadic() {
		return nil, fmt.Errorf("command %s: variadic functions are not supported", name)
	}

	offset := 0
	wantsCtx := t.NumIn() > 0 && t.In(0) == ctxType
	if wantsCtx {
		offset = 1
	}
	declared := t.NumIn() - offset
	if declared != len(paramNames) {
		return nil, fmt.Errorf("command %s: %d names for %d parameters: %w",
			name, len(paramNames), declared, ErrMissingParamName)
	}

	info := parseDoc(doc)
	cmd := &Command{
		spec:     FunctionSpec{Name: name, Description: info.Summary},
		fn:       v,
		wantsCtx: wantsCtx,
	}

	for i := 0; i < declared; i++ {
		pname := paramNames[i]
		if pname == "" {
			return nil, fmt.Errorf("command %s: parameter %d: empty name: %w", name, i, ErrMissingParamName)
		}
		if slices.ContainsFunc(cmd.spec.Parameters, func(p ParameterSpec) bool { return p.Name == pname }) {
			return nil, fmt.Errorf("command %s: duplicate parameter name %q", name, pname)
		}
		pt := t.In(offset + i)
		ps, err := schemaForType(pt)
		if err != nil {
			return nil, fmt.Errorf("command %s, parameter %s: %w", name, pname, err)
		}
		cmd.spec.Parameters = append(cmd.spec.Parameters, ParameterSpec{
			Name:        pname,
			Schema:      ps,
			Required:    !ps.Nullable,
			Description: info.Params[pname],
		})
		cmd.params = append(cmd.params, pt)
	}

	switch t.NumOut() {
	case 0:
		cmd.ret = retNone
	case 1:
		if t.Out(0) == errType {
			cmd.ret = retErrOnly
		} else {
			cmd.ret = retValue
		}
	case 2:
		if t.Out(1) != errType {
			return nil, fmt.Errorf("command %s: second return value must be error", name)
		}
		cmd.ret = retValueErr
	default:
		return nil, fmt.Errorf("command %s: at most two return values are supported", name)
	}

	compiled, err := compileSchema(cmd.validationSchema())
	if err != nil {
		return nil, fmt.Errorf("command %s: compile schema: %w", name, err)
	}
	cmd.compiled = compiled
	return cmd, nil
}

// MustCommand is NewCommand that panics on error. For static registrations.
func MustCommand(name, doc string, fn any, paramNames ...string) *Command {
	cmd, err := NewCommand(name, doc, fn, paramNames...)
	if err != nil {
		panic(err)
	}
	return cmd
}

func (c *Command) Name() string        { return c.spec.Name }
func (c *Command) Description() string { return c.spec.Description }

// Spec returns the exported schema. Deterministic and repeatable; callers must
// not mutate the nested schemas.
func (c *Command) Spec() FunctionSpec { return c.spec }

// validationSchema is the parameter object schema the incoming arguments are
// validated against: the advertised schema, closed at the top level.
func (c *Command) validationSchema() map[string]any {
	m := c.spec.JSONMap()["parameters"].(map[string]any)
	m["additionalProperties"] = false
	return m
}

// invoke validates args against the declared parameters and calls the bound
// function. Order: strict key check (before any user code), schema validation
// against the advertised schema, typed decode, call.
func (c *Command) invoke(ctx context.Context, args map[string]json.RawMessage) (string, error) {
	var missing []string
	declared := make(map[string]bool, len(c.spec.Parameters))
	for _, p := range c.spec.Parameters {
		declared[p.Name] = true
		if _, ok := args[p.Name]; !ok && p.Required {
			missing = append(missing, p.Name)
		}
	}
	var extra []string
	for key := range args {
		if !declared[key] {
			extra = append(extra, key)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		slices.Sort(extra)
		return "", &ArgumentError{Command: c.spec.Name, Missing: missing, Extra: extra}
	}

	obj, err := json.Marshal(args)
	if err != nil {
		return "", &SystemError{Err: err}
	}
	if err := validateAgainstSchema(c.compiled, obj); err != nil {
		return "", err
	}

	in := make([]reflect.Value, 0, len(c.params)+1)
	if c.wantsCtx {
		in = append(in, reflect.ValueOf(ctx))
	}
	for i, p := range c.spec.Parameters {
		pv := reflect.New(c.params[i])
		if raw, ok := args[p.Name]; ok {
			if err := json.Unmarshal(raw, pv.Interface()); err != nil {
				return "", &ClientError{
					Reason: fmt.Sprintf("parameter %s: %s", p.Name, err),
					Err:    ErrValidation,
				}
			}
		}
		in = append(in, pv.Elem())
	}

	out := c.fn.Call(in)
	switch c.ret {
	case retNone:
		return "null", nil
	case retErrOnly:
		if !out[0].IsNil() {
			return "", out[0].Interface().(error)
		}
		return "null", nil
	case retValue:
		return marshalResult(out[0].Interface())
	default: // retValueErr
		if !out[1].IsNil() {
			return "", out[1].Interface().(error)
		}
		return marshalResult(out[0].Interface())
	}
}

// marshalResult converts a command's return value into tool-result content:
// strings pass through, everything else is JSON.
func marshalResult(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", &SystemError{Err: err}
	}
	return string(b), nil
}
