// Package tools implements the closed, append-only tool registry and the
// bounded tool-use external-model client that satisfy the
// brain package's ExternalModel/ToolDefinition/ToolExecutor contracts
// without brain importing this package directly.
package tools

import (
	"context"
	"fmt"

	"github.com/meshrepublic/kudzu/internal/brain"
	"github.com/meshrepublic/kudzu/internal/kudzuerr"
)

// Handler executes one registered tool call.
type Handler func(ctx context.Context, input map[string]interface{}) (interface{}, error)

type entry struct {
	def     brain.ToolDefinition
	handler Handler
}

// registry is append-only and static: every Register call happens at
// package init from each tool's own file, never at request time.
var registry = map[string]entry{}

// Register adds a tool definition and its handler. Panics on a duplicate
// name, since tool names are a global-uniqueness invariant checked once at
// init rather than something a request can trip at runtime.
func Register(def brain.ToolDefinition, handler Handler) {
	if _, exists := registry[def.Name]; exists {
		panic(fmt.Sprintf("tools: duplicate registration for %q", def.Name))
	}
	registry[def.Name] = entry{def: def, handler: handler}
}

// Definitions returns every registered tool's definition, for handing to
// an ExternalModel.Converse call.
func Definitions() []brain.ToolDefinition {
	out := make([]brain.ToolDefinition, 0, len(registry))
	for _, e := range registry {
		out = append(out, e.def)
	}
	return out
}

// Execute dispatches a named tool call, satisfying brain.ToolExecutor.
func Execute(ctx context.Context, name string, input map[string]interface{}) (interface{}, error) {
	e, ok := registry[name]
	if !ok {
		return nil, kudzuerr.New(kudzuerr.KindNotFound, "tool %q not registered", name)
	}
	return e.handler(ctx, input)
}
