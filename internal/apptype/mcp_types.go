package apptype

// ProjectArgs provides a standard way to pass project context to tools.
type ProjectArgs struct {
	ProjectName string `json:"projectName,omitempty" jsonschema:"The name of the project to operate on. If not provided, the default project is used."`
}

// CreateEntityArgs represents the arguments for the create_entity tool
type CreateEntityArgs struct {
	ProjectArgs ProjectArgs    `json:"projectArgs,omitempty" jsonschema:"Project context for the operation."`
	Kind        string         `json:"kind" jsonschema:"The entity kind to create."`
	Values      map[string]any `json:"values" jsonschema:"Attribute values keyed by attribute name. Multi attributes take a list."`
}

// CreateEntityResult carries the urn allocated by create_entity.
type CreateEntityResult struct {
	URN string `json:"urn"`
}

// ChangeEntityArgs represents the arguments for the change_entity tool
type ChangeEntityArgs struct {
	ProjectArgs ProjectArgs    `json:"projectArgs,omitempty" jsonschema:"Project context for the operation."`
	Kind        string         `json:"kind" jsonschema:"The entity kind, as listed by describe_schema."`
	URN         string         `json:"urn" jsonschema:"The urn of the entity."`
	Values      map[string]any `json:"values" jsonschema:"Attribute values to write. Single attributes are replaced, multi attributes are appended to."`
}

// ValueArgs addresses one attribute of an entity together with a value. It
// serves add_value and set_value.
type ValueArgs struct {
	ProjectArgs ProjectArgs `json:"projectArgs,omitempty" jsonschema:"Project context for the operation."`
	Kind        string      `json:"kind" jsonschema:"The entity kind, as listed by describe_schema."`
	URN         string      `json:"urn" jsonschema:"The urn of the entity."`
	Attribute   string      `json:"attribute" jsonschema:"The attribute name."`
	Value       any         `json:"value" jsonschema:"The value to write. Its JSON type must match the attribute type."`
}

// GetValueArgs represents the arguments for the get_value tool
type GetValueArgs struct {
	ProjectArgs ProjectArgs `json:"projectArgs,omitempty" jsonschema:"Project context for the operation."`
	Kind        string      `json:"kind" jsonschema:"The entity kind, as listed by describe_schema."`
	URN         string      `json:"urn" jsonschema:"The urn of the entity."`
	Attribute   string      `json:"attribute" jsonschema:"The attribute name."`
}

// GetValueResult is the typed value of one attribute. Value is null when the
// attribute is absent and a list for multi attributes.
type GetValueResult struct {
	Attribute string `json:"attribute"`
	Value     any    `json:"value"`
}

// DeleteValueArgs represents the arguments for the delete_value tool. Without
// a value every value of the attribute is deleted.
type DeleteValueArgs struct {
	ProjectArgs ProjectArgs `json:"projectArgs,omitempty" jsonschema:"Project context for the operation."`
	Kind        string      `json:"kind" jsonschema:"The entity kind, as listed by describe_schema."`
	URN         string      `json:"urn" jsonschema:"The urn of the entity."`
	Attribute   string      `json:"attribute" jsonschema:"The attribute name."`
	Value       any         `json:"value,omitempty" jsonschema:"The value to delete. Omit to delete every value of the attribute."`
}

// ReadEntityArgs represents the arguments for the read_entity tool
type ReadEntityArgs struct {
	ProjectArgs ProjectArgs `json:"projectArgs,omitempty" jsonschema:"Project context for the operation."`
	Kind        string      `json:"kind" jsonschema:"The entity kind, as listed by describe_schema."`
	URN         string      `json:"urn" jsonschema:"The urn of the entity."`
}

// DescribeSchemaArgs selects one kind, or every kind when empty.
type DescribeSchemaArgs struct {
	Kind string `json:"kind,omitempty" jsonschema:"The kind to describe. Omit to describe every kind."`
}

// DescribeSchemaResult lists kind schemas.
type DescribeSchemaResult struct {
	Kinds []Kind `json:"kinds"`
}

// Health
type HealthArgs struct {
	ProjectArgs ProjectArgs `json:"projectArgs,omitempty"`
}

type HealthResult struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Revision     string   `json:"revision"`
	BuildDate    string   `json:"buildDate"`
	Backend      string   `json:"backend"`
	MultiProject bool     `json:"multiProject"`
	Kinds        []string `json:"kinds"`
	Healthy      bool     `json:"healthy"`
	Error        string   `json:"error,omitempty"`
}
