// Package schema synthesizes a structured-output contract from a rubric:
// a JSON-schema argument shape plus an extraction tool descriptor that a
// tool-calling backend can be forced to invoke.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/elmes-ai/elmes/internal/backend"
	"github.com/elmes-ai/elmes/internal/models"
)

// ExtractionToolName is the tool the evaluation backend is asked to call
// with the extracted scores.
const ExtractionToolName = "save_result_to_database"

// Contract is the runtime artifact synthesized from a rubric. It is rebuilt
// whenever the rubric changes and cached for one evaluation run.
type Contract struct {
	Mode   models.FormatMode
	Tool   backend.ToolDescriptor
	Schema map[string]any

	// Example is a worked JSON example of a conforming payload, rendered in
	// rubric order. Used in prompt mode and as extraction guidance.
	Example string

	compiled *jsonschema.Schema
}

// Synthesize converts a rubric tree into a contract. Identical rubric input
// always yields a structurally identical contract: field order follows
// source rubric order. It returns a SchemaError when sibling field names
// collide or a declared kind is unrecognized.
func Synthesize(fields []models.RubricField, mode models.FormatMode) (*Contract, error) {
	if len(fields) == 0 {
		return nil, &models.SchemaError{Msg: "rubric has no fields"}
	}

	schemaMap, err := buildObject(fields, "")
	if err != nil {
		return nil, err
	}

	compiled, err := compile(schemaMap)
	if err != nil {
		return nil, &models.SchemaError{Msg: fmt.Sprintf("compiling synthesized schema: %v", err)}
	}

	var example strings.Builder
	renderExample(&example, fields, 0)

	return &Contract{
		Mode:   mode,
		Schema: schemaMap,
		Tool: backend.ToolDescriptor{
			Name:        ExtractionToolName,
			Description: "Save the evaluation results to the database.",
			Parameters:  schemaMap,
		},
		Example:  example.String(),
		compiled: compiled,
	}, nil
}

func buildObject(fields []models.RubricField, path string) (map[string]any, error) {
	properties := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))

	for _, f := range fields {
		if f.Field == "" {
			return nil, &models.SchemaError{Msg: fmt.Sprintf("rubric field at %q has no name", displayPath(path))}
		}
		if _, dup := properties[f.Field]; dup {
			return nil, &models.SchemaError{Msg: fmt.Sprintf("duplicate rubric field %q at %q", f.Field, displayPath(path))}
		}

		member, err := buildMember(f, join(path, f.Field))
		if err != nil {
			return nil, err
		}
		properties[f.Field] = member
		required = append(required, f.Field)
	}

	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}, nil
}

func buildMember(f models.RubricField, path string) (map[string]any, error) {
	var member map[string]any
	switch f.Kind {
	case models.RubricString:
		member = map[string]any{"type": "string"}
	case models.RubricInt:
		member = map[string]any{"type": "integer"}
	case models.RubricFloat:
		member = map[string]any{"type": "number"}
	case models.RubricBool:
		member = map[string]any{"type": "boolean"}
	case models.RubricGroup:
		if len(f.Items) == 0 {
			return nil, &models.SchemaError{Msg: fmt.Sprintf("group field %q has no items", path)}
		}
		nested, err := buildObject(f.Items, path)
		if err != nil {
			return nil, err
		}
		member = nested
	default:
		return nil, &models.SchemaError{Msg: fmt.Sprintf("field %q has unrecognized kind %q", path, f.Kind)}
	}
	if f.Description != "" {
		member["description"] = f.Description
	}
	return member, nil
}

// Validate checks a payload against the synthesized schema.
func (c *Contract) Validate(payload map[string]any) error {
	// Round-trip through JSON so integer kinds normalize the way the
	// validator expects.
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("serializing payload: %w", err)
	}
	value, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return fmt.Errorf("reparsing payload: %w", err)
	}
	return c.compiled.Validate(value)
}

func compile(schemaMap map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("serializing schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("reparsing schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rubric.json", doc); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}
	return compiler.Compile("rubric.json")
}

// renderExample writes a worked JSON example of the rubric, one field per
// line, preserving rubric order.
func renderExample(sb *strings.Builder, fields []models.RubricField, depth int) {
	indent := strings.Repeat("  ", depth)
	sb.WriteString("{\n")
	for i, f := range fields {
		sb.WriteString(indent + "  ")
		fmt.Fprintf(sb, "%q: ", f.Field)
		switch f.Kind {
		case models.RubricGroup:
			renderExample(sb, f.Items, depth+1)
		case models.RubricString:
			if f.Description != "" {
				fmt.Fprintf(sb, "%q", "<"+f.Description+">")
			} else {
				sb.WriteString(`"<text>"`)
			}
		case models.RubricBool:
			sb.WriteString("true")
		case models.RubricFloat:
			sb.WriteString("0.0")
		default:
			sb.WriteString("0")
		}
		if i < len(fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(indent + "}")
}

func join(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

func displayPath(path string) string {
	if path == "" {
		return "(root)"
	}
	return path
}
