// Package jsonschema derives JSON Schema descriptors from Go types via
// reflection. The schemas advertise tool parameters to the chat model, so the
// generator focuses on the subset of JSON Schema the tool-calling protocol
// understands: objects, arrays, maps, primitives, descriptions, enums, and
// required properties.
package jsonschema

import (
	"reflect"
	"strings"
)

// Schema represents the structure of a JSON Schema used for defining tool
// arguments and responses.
type Schema struct {
	// Type specifies the data type (e.g. "object", "array", "string", "number")
	Type        string   `json:"type,omitempty"`
	Description string   `json:"description,omitempty"`
	Required    []string `json:"required,omitempty"`
	// Properties of the arguments, each with its own schema
	Properties map[string]*Schema `json:"properties,omitempty"`
	// For array types, defines the schema of items in the array
	Items *Schema `json:"items,omitempty"`
	// AdditionalProperties controls whether properties not defined in Properties are allowed
	AdditionalProperties any `json:"additionalProperties,omitempty"`
	// Enum contains the list of allowed values for the parameter
	Enum []any `json:"enum,omitempty"`
}

// GenerateJSONSchema generates a JSON schema for the type T.
// Struct fields honour their `json` tags for naming and omission, and the
// `jsonschema` tag for metadata:
//
//	Field string `json:"field" jsonschema:"description=What it does,enum=a,enum=b,required"`
//
// Fields without `omitempty` are marked required by default.
func GenerateJSONSchema[T any]() *Schema {
	return generate(reflect.TypeFor[T]())
}

func generate(t reflect.Type) *Schema {
	switch t.Kind() {
	case reflect.Ptr:
		return generate(t.Elem())

	case reflect.Struct:
		return generateStruct(t)

	case reflect.Slice, reflect.Array:
		return &Schema{Type: "array", Items: generate(t.Elem())}

	case reflect.Map:
		return &Schema{Type: "object", AdditionalProperties: generate(t.Elem())}

	case reflect.String:
		return &Schema{Type: "string"}

	case reflect.Bool:
		return &Schema{Type: "boolean"}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}

	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}

	case reflect.Interface:
		// any: accept any JSON value
		return &Schema{}

	default:
		return &Schema{Type: "string"}
	}
}

func generateStruct(t reflect.Type) *Schema {
	schema := &Schema{
		Type:       "object",
		Properties: map[string]*Schema{},
	}
	required := make([]string, 0)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		fieldName := field.Name
		isOmitEmpty := false
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				fieldName = parts[0]
			}
			for _, option := range parts[1:] {
				if option == "omitempty" {
					isOmitEmpty = true
				}
			}
		}

		// Anonymous embedded structs are flattened into the parent object.
		if field.Anonymous && field.Type.Kind() == reflect.Struct && jsonTag == "" {
			embedded := generateStruct(field.Type)
			for name, property := range embedded.Properties {
				schema.Properties[name] = property
			}
			required = append(required, embedded.Required...)
			continue
		}

		fieldSchema := generate(field.Type)
		isRequired := !isOmitEmpty && field.Type.Kind() != reflect.Ptr

		applyFieldTag(field.Tag, fieldSchema, &isRequired)

		schema.Properties[fieldName] = fieldSchema
		if isRequired {
			required = append(required, fieldName)
		}
	}

	if len(required) > 0 {
		schema.Required = required
	}
	return schema
}

// applyFieldTag parses the `jsonschema` struct tag and applies its settings.
// Supported entries: "description=...", repeated "enum=..." values, and the
// bare flags "required" / "optional".
func applyFieldTag(tag reflect.StructTag, schema *Schema, isRequired *bool) {
	raw := tag.Get("jsonschema")
	if raw == "" {
		return
	}

	for _, entry := range strings.Split(raw, ",") {
		key, value, hasValue := strings.Cut(entry, "=")
		switch {
		case key == "description" && hasValue:
			schema.Description = value
		case key == "enum" && hasValue:
			schema.Enum = append(schema.Enum, value)
		case key == "required":
			*isRequired = true
		case key == "optional":
			*isRequired = false
		}
	}
}
