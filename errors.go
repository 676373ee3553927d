package gptcommands

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for gptcommands. Use errors.Is to check.
var (
	// ErrUnsupportedType is returned at registration time when a parameter or
	// field type falls outside the supported schema grammar.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrUnsupportedMapKey is returned for map types whose key is not string.
	ErrUnsupportedMapKey = errors.New("unsupported map key type")
	// ErrMissingParamName is returned when a declared parameter has no name
	// bound to it (or a name has no parameter).
	ErrMissingParamName = errors.New("parameter name binding mismatch")
	// ErrUnknownCommand is returned when the model names a command that was
	// never advertised. It indicates a schema/registry mismatch and is surfaced
	// to the host, never turned into a tool result.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrValidation is wrapped by argument validation failures.
	ErrValidation = errors.New("validation failed")
	// ErrMalformedArguments is returned when the accumulated tool-call argument
	// buffer does not parse as a JSON object. The turn is aborted; no retry.
	ErrMalformedArguments = errors.New("malformed tool call arguments")
	// ErrStreamAborted is returned when the caller's yield stops consuming the
	// streamed output mid-turn.
	ErrStreamAborted = errors.New("stream aborted by consumer")
)

// ClientError is an error that should be sent back to the model for
// self-correction (e.g. invalid JSON, schema validation failure).
// Do not expose stack traces or internal details to the model.
// Err optionally wraps a sentinel (e.g. ErrValidation) for errors.Is/errors.As.
type ClientError struct {
	Reason string
	Err    error // wrapped sentinel for errors.Is/errors.As
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("invalid command input: %s", e.Reason)
}

// Unwrap supports errors.Is/errors.As on wrapped chains (e.g. errors.Is(err, ErrValidation)).
func (e *ClientError) Unwrap() error { return e.Err }

// SystemError represents an internal failure (marshal error, panic, etc.).
// The model should not see the underlying error message or stack.
type SystemError struct {
	Err error
}

func (e *SystemError) Error() string {
	return "internal error during command execution"
}

func (e *SystemError) Unwrap() error { return e.Err }

// IsClientError returns true if err is or wraps a ClientError.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}

// IsSystemError returns true if err is or wraps a SystemError.
func IsSystemError(err error) bool {
	var se *SystemError
	return errors.As(err, &se)
}

// ArgumentError reports a strict mismatch between the supplied argument keys
// and a command's declared parameters: required parameters that are absent and
// keys that match no parameter. It is raised before any user code runs and
// wraps ErrValidation, so it flows back into the conversation as a tool-result
// failure the model can correct.
type ArgumentError struct {
	Command string
	Missing []string // required parameters absent from the call, declaration order
	Extra   []string // supplied keys with no matching parameter, sorted
}

func (e *ArgumentError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "unexpected: "+strings.Join(e.Extra, ", "))
	}
	return fmt.Sprintf("invalid arguments for %s (%s)", e.Command, strings.Join(parts, "; "))
}

func (e *ArgumentError) Unwrap() error { return ErrValidation }

// wrapJSONParseError returns a ClientError for JSON unmarshal failures during
// argument decoding, so parse errors reported to the model are consistent.
func wrapJSONParseError(err error) error {
	return &ClientError{Reason: "json parse error: " + err.Error(), Err: ErrValidation}
}
