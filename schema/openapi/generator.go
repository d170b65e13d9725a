package openapi

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	props "github.com/goliatone/go-props"
)

// Generator turns property descriptors into an OpenAPI document describing
// the object that sets them as local values.
type Generator struct {
	config generatorConfig
}

// NewGenerator constructs a Generator.
func NewGenerator(opts ...GeneratorOption) Generator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return Generator{config: cfg}
}

// Generate builds the document for descriptors, as returned by
// props.Registry.Describe.
func (g Generator) Generate(descriptors []props.PropertyDescriptor) (map[string]any, error) {
	root := &schemaNode{Type: "object", Properties: map[string]map[string]any{}}
	for _, descriptor := range descriptors {
		if descriptor.Name == "" {
			return nil, fmt.Errorf("openapi: descriptor without name")
		}
		schema, required, err := propertySchema(descriptor)
		if err != nil {
			return nil, err
		}
		root.Properties[descriptor.Name] = schema
		if required {
			root.Required = append(root.Required, descriptor.Name)
		}
	}
	return newDocumentBuilder(g.config, root).build()
}

func baseSchema(typeName string) map[string]any {
	switch typeName {
	case "bool":
		return map[string]any{"type": "boolean"}
	case "int", "int8", "int16", "int32", "uint", "uint8", "uint16", "uint32":
		return map[string]any{"type": "integer"}
	case "int64", "uint64":
		return map[string]any{"type": "integer", "format": "int64"}
	case "float32":
		return map[string]any{"type": "number", "format": "float"}
	case "float64":
		return map[string]any{"type": "number", "format": "double"}
	case "string":
		return map[string]any{"type": "string"}
	case "time.Time":
		return map[string]any{"type": "string", "format": "date-time"}
	case "time.Duration":
		return map[string]any{"type": "integer", "format": "duration-ns"}
	default:
		return map[string]any{
			"type":   "string",
			"format": fmt.Sprintf("go:%s", typeName),
		}
	}
}

func propertySchema(descriptor props.PropertyDescriptor) (map[string]any, bool, error) {
	schema := baseSchema(descriptor.Type)
	if descriptor.Default != nil {
		schema["default"] = descriptor.Default
	}
	if descriptor.OwnerKind != "" {
		schema["x-owner-kind"] = descriptor.OwnerKind
	}

	required := false
	var unmapped []string
	for _, rule := range descriptor.Rules {
		for _, tag := range strings.Split(rule, ",") {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if tag == "required" {
				required = true
				continue
			}
			mapped, err := applyRule(schema, tag)
			if err != nil {
				return nil, false, fmt.Errorf("openapi: property %s: %w", descriptor.Name, err)
			}
			if !mapped {
				unmapped = append(unmapped, tag)
			}
		}
	}
	if len(unmapped) > 0 {
		schema["x-validate"] = strings.Join(unmapped, ",")
	}
	return schema, required, nil
}

// applyRule maps one validator tag onto schema keywords. It reports false for
// tags with no OpenAPI equivalent.
func applyRule(schema map[string]any, tag string) (bool, error) {
	name, param, _ := strings.Cut(tag, "=")
	kind, _ := schema["type"].(string)
	isString := kind == "string"

	switch name {
	case "gte", "lte", "gt", "lt", "min", "max", "len":
		if param == "" {
			return false, fmt.Errorf("rule %q needs a parameter", tag)
		}
	case "oneof":
		values := strings.Fields(param)
		enum := make([]any, 0, len(values))
		for _, value := range values {
			converted, err := enumValue(kind, value)
			if err != nil {
				return false, fmt.Errorf("rule %q: %w", tag, err)
			}
			enum = append(enum, converted)
		}
		schema["enum"] = enum
		return true, nil
	default:
		return false, nil
	}

	limit, err := ruleNumber(kind, param)
	if err != nil {
		return false, fmt.Errorf("rule %q: %w", tag, err)
	}
	switch {
	case isString && (name == "min" || name == "gte"):
		schema["minLength"] = limit
	case isString && (name == "max" || name == "lte"):
		schema["maxLength"] = limit
	case isString && name == "len":
		schema["minLength"] = limit
		schema["maxLength"] = limit
	case isString:
		return false, nil
	case name == "min" || name == "gte":
		schema["minimum"] = limit
	case name == "max" || name == "lte":
		schema["maximum"] = limit
	case name == "gt":
		schema["minimum"] = limit
		schema["exclusiveMinimum"] = true
	case name == "lt":
		schema["maximum"] = limit
		schema["exclusiveMaximum"] = true
	default:
		return false, nil
	}
	return true, nil
}

func ruleNumber(kind, param string) (any, error) {
	if kind == "number" {
		return cast.ToFloat64E(param)
	}
	return cast.ToInt64E(param)
}

func enumValue(kind, value string) (any, error) {
	switch kind {
	case "integer":
		return cast.ToInt64E(value)
	case "number":
		return cast.ToFloat64E(value)
	case "boolean":
		return cast.ToBoolE(value)
	default:
		return value, nil
	}
}
