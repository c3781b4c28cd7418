// Package agent runs the tool-calling conversation loop for the intake agent.
package agent

import (
	"log/slog"

	"github.com/tooldesk-io/tooldesk/internal/provider"
	"github.com/tooldesk-io/tooldesk/internal/tool"
)

const defaultMaxIterations = 8

// Agent binds a provider, a tool registry, and the intake instructions.
type Agent struct {
	Provider      provider.Provider
	Tools         *tool.Registry
	Logger        *slog.Logger
	MaxIterations int
}

// New creates an Agent with sensible defaults.
func New(prov provider.Provider, tools *tool.Registry) *Agent {
	return &Agent{
		Provider:      prov,
		Tools:         tools,
		Logger:        slog.Default(),
		MaxIterations: defaultMaxIterations,
	}
}
