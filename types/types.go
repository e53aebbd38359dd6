package types

type Accessor string

const (
	AccessorInput  Accessor = "input"
	AccessorOutput Accessor = "output"
)

// TemplateReference is the parsed form of one {{...}} token.
type TemplateReference struct {
	RefNodeID string   `json:"refNodeId"`
	Accessor  Accessor `json:"accessor"`
	Path      []string `json:"path"`
}

type ValidationKind string

const (
	DuplicateNodeId        ValidationKind = "DuplicateNodeId"
	DanglingEdge           ValidationKind = "DanglingEdge"
	MissingEntry           ValidationKind = "MissingEntry"
	MultipleEntry          ValidationKind = "MultipleEntry"
	MissingTerminal        ValidationKind = "MissingTerminal"
	MultipleTerminal       ValidationKind = "MultipleTerminal"
	UnconnectedNode        ValidationKind = "UnconnectedNode"
	ConflictingBindingType ValidationKind = "ConflictingBindingType"
	UnknownTemplateNode    ValidationKind = "UnknownTemplateNode"
	MalformedTemplate      ValidationKind = "MalformedTemplate"
)

type ResolutionKind string

const (
	UnknownNode ResolutionKind = "UnknownNode"
	UnknownPath ResolutionKind = "UnknownPath"
)
