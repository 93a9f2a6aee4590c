package apptype

// Entity is one entity as returned by read tools. Values hold the lexical
// form of every stored attribute: a string for single attributes, a list of
// strings for multi attributes.
type Entity struct {
	Kind   string         `json:"kind"`
	URN    string         `json:"urn"`
	Values map[string]any `json:"values"`
}

// Attribute describes one attribute of a kind.
type Attribute struct {
	Name        string `json:"name"`
	Predicate   string `json:"predicate"`
	Type        string `json:"type"`
	Cardinality string `json:"cardinality"`
	Required    bool   `json:"required,omitempty"`
}

// Kind describes the schema of one entity kind.
type Kind struct {
	Name       string      `json:"name"`
	Template   string      `json:"template"`
	CountBy    string      `json:"countBy"`
	Attributes []Attribute `json:"attributes"`
}
