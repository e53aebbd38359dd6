package registry

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/wfcompiler/types"
)

type Role int

const (
	RoleNone     Role = 0
	RoleEntry    Role = 1
	RoleTerminal Role = 2
)

// ControlKind tells the linearizer whether a node type opens a composite plan entry.
type ControlKind int

const (
	ControlNone   ControlKind = 0
	ControlBranch ControlKind = 1
	ControlLoop   ControlKind = 2
)

type Port struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type FieldSchema struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required,omitempty"`
	Description string `json:"description,omitempty"`
}

// NodeType is the per-type metadata and codegen strategy looked up by a node's type key.
type NodeType struct {
	Name         string
	Role         Role
	Control      ControlKind
	ConfigSchema []FieldSchema
	InputPorts   []Port
	OutputPorts  []Port
	// PresetOutput is the example output used for template previews.
	PresetOutput any

	RequiredBindings func(config types.Data) []types.BindingDecl
	Codegen          CodegenStrategy
}

// Bindings returns the bindings the type needs for config, never nil.
func (nt *NodeType) Bindings(config types.Data) []types.BindingDecl {
	if nt.RequiredBindings == nil {
		return []types.BindingDecl{}
	}
	decls := nt.RequiredBindings(config)
	if decls == nil {
		return []types.BindingDecl{}
	}
	return decls
}

// Registry is an immutable set of node types. Build it once and share it,
// lookups take no lock.
type Registry struct {
	nodeTypes map[string]*NodeType
	names     []string
	// identity changes whenever the codegen of the set may change, artifact
	// caches key on it.
	identity  string
}

// New builds a registry with a random identity. Use Versioned to give it a
// stable one when artifacts should be shared across processes.
func New(nodeTypes ...*NodeType) (*Registry, error) {
	r := &Registry{
		nodeTypes: make(map[string]*NodeType, len(nodeTypes)),
		identity:  uuid.New().String(),
	}
	for _, nt := range nodeTypes {
		if nt == nil || nt.Name == "" {
			return nil, errors.BadRequestf("node type without a name")
		}
		if _, exists := r.nodeTypes[nt.Name]; exists {
			return nil, errors.AlreadyExistsf("node type: %s", nt.Name)
		}
		log.Debugf("registering node type %s", nt.Name)
		r.nodeTypes[nt.Name] = nt
		r.names = append(r.names, nt.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

func MustNew(nodeTypes ...*NodeType) *Registry {
	r, err := New(nodeTypes...)
	if err != nil {
		panic(err)
	}
	return r
}

// With returns a new registry holding the receiver's types plus extra.
func (r *Registry) With(extra ...*NodeType) (*Registry, error) {
	all := make([]*NodeType, 0, len(r.names)+len(extra))
	for _, name := range r.names {
		all = append(all, r.nodeTypes[name])
	}
	return New(append(all, extra...)...)
}

// Versioned returns a copy of the registry identified by version. Callers bump
// the version whenever a strategy of the set changes its output.
func (r *Registry) Versioned(version string) *Registry {
	return &Registry{nodeTypes: r.nodeTypes, names: r.names, identity: version}
}

func (r *Registry) Identity() string {
	return r.identity
}

func (r *Registry) Get(name string) (*NodeType, bool) {
	nt, exists := r.nodeTypes[name]
	return nt, exists
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

func (r *Registry) Role(name string) Role {
	if nt, exists := r.Get(name); exists {
		return nt.Role
	}
	return RoleNone
}

func (r *Registry) Control(name string) ControlKind {
	if nt, exists := r.Get(name); exists {
		return nt.Control
	}
	return ControlNone
}

// bindingFromConfig declares one binding named by config[key]. Empty and
// templated names declare nothing, the editor has not settled them yet.
func bindingFromConfig(key, bindingType, usage, def string) func(types.Data) []types.BindingDecl {
	return func(config types.Data) []types.BindingDecl {
		name := strings.TrimSpace(config.GetStringDefault(key, def))
		if name == "" || strings.Contains(name, "{{") {
			return nil
		}
		return []types.BindingDecl{{Name: name, Type: bindingType, UsageDetail: usage}}
	}
}
