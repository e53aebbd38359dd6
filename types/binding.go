package types

// BindingDecl is a single requirement returned by a node type for one node config.
type BindingDecl struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	UsageDetail string `json:"usageDetail,omitempty"`
}

type BindingUsage struct {
	NodeID      string `json:"nodeId"`
	NodeType    string `json:"nodeType"`
	UsageDetail string `json:"usageDetail,omitempty"`
}

// ResolvedBinding is one merged manifest entry, unique by Name.
type ResolvedBinding struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	RequiredBy []BindingUsage `json:"requiredBy"`
}

// BindingRef identifies a binding available in the deployment environment.
type BindingRef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (b ResolvedBinding) Ref() BindingRef {
	return BindingRef{Name: b.Name, Type: b.Type}
}

type BindingReport struct {
	Required  []ResolvedBinding `json:"required"`
	Available []BindingRef      `json:"available"`
	Missing   []ResolvedBinding `json:"missing"`
}
