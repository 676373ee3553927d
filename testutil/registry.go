package testutil

import (
	gptcommands "github.com/keenua/gpt-commands-go"
)

// NewTestRegistry builds a Registry with panic recovery enabled and panics on
// construction errors, suitable for tests.
func NewTestRegistry(cmds ...*gptcommands.Command) *gptcommands.Registry {
	reg, err := gptcommands.NewRegistry(cmds, gptcommands.WithRecoverPanics(true))
	if err != nil {
		panic(err)
	}
	return reg
}
