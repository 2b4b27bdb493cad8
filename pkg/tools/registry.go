package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"eolmatch/pkg/logx"
)

// Result is the outcome of Registry.Execute. Content is the JSON rendering of Payload.
type Result struct {
	Payload any
	Content string
	IsError bool
}

// Registry holds the tools offered to the model, in registration order.
type Registry struct {
	tools  map[string]Tool
	logger *logx.Logger
	order  []string
	mu     sync.RWMutex
}

// NewRegistry creates a registry containing tools.
func NewRegistry(logger *logx.Logger, tools ...Tool) (*Registry, error) {
	if logger == nil {
		logger = logx.NewLogger("tools")
	}
	r := &Registry{tools: make(map[string]Tool), logger: logger}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool '%s' already registered", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns tool definitions in registration order.
func (r *Registry) Definitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute runs the named tool. It never returns an error or panics: unknown
// names, tool errors and panics all become structured error payloads.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Tool %s panicked with args %v: %v", name, args, rec)
			result = render(errorEnvelope(ErrTypeServerError, fmt.Sprintf("tool %s failed: %v", name, rec)), true)
		}
	}()

	tool, ok := r.Get(name)
	if !ok {
		r.logger.Warn("Model requested unknown tool %q", name)
		return render(errorEnvelope(ErrTypeUnknownTool, fmt.Sprintf("Unknown tool: %s", name)), true)
	}

	r.logger.Debug("Executing %s with %v", name, args)
	res, err := tool.Exec(ctx, args)
	if err != nil {
		r.logger.Error("Tool %s failed with args %v: %v", name, args, err)
		return render(errorEnvelope(ErrTypeServerError, err.Error()), true)
	}
	if res == nil {
		return render(errorEnvelope(ErrTypeServerError, fmt.Sprintf("tool %s returned no result", name)), true)
	}
	return render(res.Payload, isErrorPayload(res.Payload))
}

func render(payload any, isError bool) Result {
	data, err := json.Marshal(payload)
	if err != nil {
		env := errorEnvelope(ErrTypeServerError, fmt.Sprintf("unserializable tool result: %v", err))
		data, _ = json.Marshal(env)
		return Result{Payload: env, Content: string(data), IsError: true}
	}
	return Result{Payload: payload, Content: string(data), IsError: isError}
}

// statusCarrier is implemented by payloads that report their own status.
type statusCarrier interface {
	StatusString() string
}

func isErrorPayload(payload any) bool {
	if sc, ok := payload.(statusCarrier); ok {
		return sc.StatusString() == "error"
	}
	return false
}
