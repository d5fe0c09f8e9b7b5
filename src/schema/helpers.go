package schema

import (
	jsonschema "github.com/swaggest/jsonschema-go"
)

// simple builds a schema of one simple type with a description.
func simple(simpleType, description string) *jsonschema.Schema {
	st := jsonschema.SimpleType(simpleType)
	return &jsonschema.Schema{
		Type:        &jsonschema.Type{SimpleTypes: &st},
		Description: &description,
	}
}

// CreateStringSchema creates a JSON schema for a string field
func CreateStringSchema(description string) *jsonschema.Schema {
	return simple("string", description)
}

// CreateStringSchemaEnum creates a JSON schema for a string field with enum values
func CreateStringSchemaEnum(description string, enumValues []string) *jsonschema.Schema {
	s := simple("string", description)
	enum := make([]interface{}, len(enumValues))
	for i, v := range enumValues {
		enum[i] = v
	}
	s.Enum = enum
	return s
}

// CreateBoolSchema creates a JSON schema for a boolean field with default value
func CreateBoolSchema(description string, defaultValue bool) *jsonschema.Schema {
	s := simple("boolean", description)
	defVal := interface{}(defaultValue)
	s.Default = &defVal
	return s
}

// CreateIntSchema creates a JSON schema for an integer field with default value
func CreateIntSchema(description string, defaultValue int) *jsonschema.Schema {
	s := simple("integer", description)
	defVal := interface{}(defaultValue)
	s.Default = &defVal
	return s
}

// CreateObjectSchema creates a JSON schema for an object with properties and required fields
func CreateObjectSchema(properties map[string]*jsonschema.Schema, required []string) *jsonschema.Schema {
	schemaProps := make(map[string]jsonschema.SchemaOrBool)
	for name, prop := range properties {
		schemaProps[name] = jsonschema.SchemaOrBool{TypeObject: prop}
	}

	objType := jsonschema.SimpleType("object")
	return &jsonschema.Schema{
		Type:       &jsonschema.Type{SimpleTypes: &objType},
		Properties: schemaProps,
		Required:   required,
	}
}
