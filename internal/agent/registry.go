package agent

import (
	"fmt"
	"sync"

	"github.com/stepflow/stepflow/pkg/core"
)

// Registry manages the set of known agent definitions: the built-ins
// plus any user-configured agents loaded on top. Satisfies
// tool.AgentDefinitionLookup.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
}

// NewRegistry creates a Registry seeded with BuiltInAgents.
func NewRegistry() *Registry {
	r := &Registry{agents: make(map[string]*Agent)}
	for name, a := range BuiltInAgents() {
		r.agents[name] = a
	}
	return r
}

// Get retrieves an agent by name.
func (r *Registry) Get(name string) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("agent not found: %s", name)
	}
	return a, nil
}

// Register adds or replaces an agent.
func (r *Registry) Register(a *Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.Name] = a
}

// Unregister removes an agent by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, name)
}

// List returns every registered agent.
func (r *Registry) List() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		agents = append(agents, a)
	}
	return agents
}

// ListPrimary returns agents usable as a session's primary agent.
func (r *Registry) ListPrimary() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var agents []*Agent
	for _, a := range r.agents {
		if a.IsPrimary() {
			agents = append(agents, a)
		}
	}
	return agents
}

// ListSubagents returns agents dispatchable via the Task tool.
func (r *Registry) ListSubagents() []*Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var agents []*Agent
	for _, a := range r.agents {
		if a.IsSubagent() {
			agents = append(agents, a)
		}
	}
	return agents
}

// Names returns every registered agent's name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	return names
}

// Exists reports whether name is registered.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[name]
	return ok
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// IsSubagent implements tool.AgentDefinitionLookup: reports whether name
// is known and dispatchable via the Task tool.
func (r *Registry) IsSubagent(name string) (bool, error) {
	a, err := r.Get(name)
	if err != nil {
		return false, err
	}
	return a.IsSubagent(), nil
}

// SubagentNames implements tool.AgentDefinitionLookup.
func (r *Registry) SubagentNames() []string {
	names := make([]string, 0)
	for _, a := range r.ListSubagents() {
		names = append(names, a.Name)
	}
	return names
}

// LoadFromConfig applies user configuration on top of existing (including
// built-in) agents, cloning a built-in before mutating it so the original
// preset is never modified in place.
func (r *Registry) LoadFromConfig(config map[string]Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, cfg := range config {
		a, exists := r.agents[name]
		if !exists {
			a = &Agent{Name: name, Mode: ModePrimary, Tools: make(map[string]bool)}
		} else {
			a = a.Clone()
			a.BuiltIn = false
		}

		if cfg.Description != "" {
			a.Description = cfg.Description
		}
		if cfg.Mode != "" {
			a.Mode = cfg.Mode
		}
		if cfg.Model != nil {
			a.Model = cfg.Model
		}
		if cfg.Prompt != "" {
			a.Prompt = cfg.Prompt
		}
		if cfg.Temperature > 0 {
			a.Temperature = cfg.Temperature
		}
		if cfg.TopP > 0 {
			a.TopP = cfg.TopP
		}
		if cfg.Color != "" {
			a.Color = cfg.Color
		}
		if cfg.Tools != nil {
			if a.Tools == nil {
				a.Tools = make(map[string]bool)
			}
			for k, v := range cfg.Tools {
				a.Tools[k] = v
			}
		}
		if cfg.Permission != nil {
			a.Permission = cfg.Permission.Merge(a.Permission)
		}
		if cfg.Options != nil {
			if a.Options == nil {
				a.Options = make(map[string]any)
			}
			for k, v := range cfg.Options {
				a.Options[k] = v
			}
		}

		r.agents[name] = a
	}
}

// Config is user-authored configuration for one agent, applied as an
// overlay over a built-in or previously-registered definition.
type Config struct {
	Description string             `json:"description,omitempty"`
	Mode        Mode               `json:"mode,omitempty"`
	Model       *ModelRef          `json:"model,omitempty"`
	Prompt      string             `json:"prompt,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
	TopP        float64            `json:"topP,omitempty"`
	Color       string             `json:"color,omitempty"`
	Tools       map[string]bool    `json:"tools,omitempty"`
	Permission  *PermissionOverlay `json:"permission,omitempty"`
	Options     map[string]any     `json:"options,omitempty"`
}

// PermissionOverlay is a partial PermissionConfiguration: rule lists here
// are appended after the base's, and DefaultAction/EnableSessionMemory
// replace the base's when set.
type PermissionOverlay struct {
	Allow               []string      `json:"allow,omitempty"`
	Deny                []string      `json:"deny,omitempty"`
	FinalDeny           []string      `json:"final_deny,omitempty"`
	Overrides           []string      `json:"overrides,omitempty"`
	DefaultAction       core.Decision `json:"default_action,omitempty"`
	EnableSessionMemory *bool         `json:"enable_session_memory,omitempty"`
}

// Merge layers the overlay over base: base's rule lists keep their
// entries, the overlay's are appended after, and scalar fields override
// base's when the overlay sets them.
func (p *PermissionOverlay) Merge(base core.PermissionConfiguration) core.PermissionConfiguration {
	result := base
	result.Allow = append(append([]string(nil), base.Allow...), p.Allow...)
	result.Deny = append(append([]string(nil), base.Deny...), p.Deny...)
	result.FinalDeny = append(append([]string(nil), base.FinalDeny...), p.FinalDeny...)
	result.Overrides = append(append([]string(nil), base.Overrides...), p.Overrides...)
	if p.DefaultAction != "" {
		result.DefaultAction = p.DefaultAction
	}
	if p.EnableSessionMemory != nil {
		result.EnableSessionMemory = *p.EnableSessionMemory
	}
	return result
}
