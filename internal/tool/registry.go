package tool

import (
	"fmt"
	"strings"
	"sync"
)

// Role is the pipeline job a registered tool performs.
type Role string

const (
	RoleTranscribe Role = "transcribe"
	RoleSanitize   Role = "sanitize"
	RolePlan       Role = "plan"
	RoleGenerate   Role = "generate"
	RoleFormat     Role = "format"
	RoleCheck      Role = "check"
)

// Roles lists every role in pipeline order.
var Roles = []Role{RoleTranscribe, RoleSanitize, RolePlan, RoleGenerate, RoleFormat, RoleCheck}

// Meta describes one registration.
type Meta struct {
	Role Role
	Name string
}

// Registry assigns configured tools to roles. One tool may serve several
// roles (the LLM plans and generates); a role keeps registration order.
type Registry struct {
	mu    sync.RWMutex
	roles map[Role][]Tool
}

func NewRegistry() *Registry {
	return &Registry{roles: map[Role][]Tool{}}
}

func (r *Registry) Register(role Role, t Tool) error {
	if t == nil {
		return fmt.Errorf("%s: tool is nil", role)
	}
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return fmt.Errorf("%s: tool name is empty", role)
	}
	if !knownRole(role) {
		return fmt.Errorf("unknown role %q", role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.roles[role] {
		if existing.Name() == name {
			return fmt.Errorf("%s: tool already registered: %s", role, name)
		}
	}
	r.roles[role] = append(r.roles[role], t)
	return nil
}

// Primary returns the first tool registered for role.
func (r *Registry) Primary(role Role) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := r.roles[role]
	if len(tools) == 0 {
		return nil, false
	}
	return tools[0], true
}

// All returns the tools registered for role in registration order.
func (r *Registry) All(role Role) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Tool(nil), r.roles[role]...)
}

// List returns every registration, roles in pipeline order.
func (r *Registry) List() []Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Meta
	for _, role := range Roles {
		for _, t := range r.roles[role] {
			out = append(out, Meta{Role: role, Name: t.Name()})
		}
	}
	return out
}

func knownRole(role Role) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}
