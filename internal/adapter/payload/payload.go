// Package payload turns JSON text from the command line or tool calls into
// call arguments, validated against embedded JSON Schemas.
package payload

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonschema"

	"sugarcrm-client/internal/domain"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	fieldsSchema  = mustCompile("schemas/fields.json")
	optionsSchema = mustCompile("schemas/options.json")
	idsSchema     = mustCompile("schemas/ids.json")
)

func mustCompile(name string) *jsonschema.Schema {
	raw, err := schemaFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("payload: read %s: %v", name, err))
	}
	schema, err := jsonschema.NewCompiler().Compile(raw)
	if err != nil {
		panic(fmt.Sprintf("payload: compile %s: %v", name, err))
	}
	return schema
}

// ParseFields parses a name_value_list. An object such as
// {"last_name":"Doe"} yields domain.Args in document order; the list form
// [{"name":"last_name","value":"Doe"}] yields []domain.Args.
func ParseFields(raw string) (any, error) {
	const op = "payload.ParseFields"
	if err := validate(op, fieldsSchema, raw); err != nil {
		return nil, err
	}
	if strings.HasPrefix(strings.TrimSpace(raw), "[") {
		var list []domain.Args
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, domain.NewDomainError(op, domain.ErrInvalidInput, err.Error())
		}
		return list, nil
	}
	return decodeArgs(op, raw)
}

// ParseOptions parses get_entry_list options. Blank input yields nil.
func ParseOptions(raw string) (domain.Args, error) {
	const op = "payload.ParseOptions"
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	if err := validate(op, optionsSchema, raw); err != nil {
		return nil, err
	}
	return decodeArgs(op, raw)
}

// ParseIDs parses record ids given as a JSON array or a comma-separated list.
func ParseIDs(raw string) ([]string, error) {
	const op = "payload.ParseIDs"
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, domain.NewDomainError(op, domain.ErrInvalidInput, "no ids given")
	}
	if !strings.HasPrefix(trimmed, "[") {
		var ids []string
		for _, id := range strings.Split(trimmed, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return nil, domain.NewDomainError(op, domain.ErrInvalidInput, "no ids given")
		}
		return ids, nil
	}
	if err := validate(op, idsSchema, trimmed); err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(trimmed), &ids); err != nil {
		return nil, domain.NewDomainError(op, domain.ErrInvalidInput, err.Error())
	}
	return ids, nil
}

// ParseArgs parses free-form call arguments as an ordered JSON object.
// Blank input yields nil.
func ParseArgs(raw string) (domain.Args, error) {
	const op = "payload.ParseArgs"
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	if !strings.HasPrefix(trimmed, "{") {
		return nil, domain.NewDomainError(op, domain.ErrInvalidInput, "arguments must be a JSON object")
	}
	return decodeArgs(op, trimmed)
}

func validate(op string, schema *jsonschema.Schema, raw string) error {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return domain.NewDomainError(op, domain.ErrInvalidInput, fmt.Sprintf("invalid JSON: %v", err))
	}
	return validateValue(op, schema, v)
}

func validateValue(op string, schema *jsonschema.Schema, v any) error {
	result := schema.Validate(v)
	if !result.IsValid() {
		return domain.NewDomainError(op, domain.ErrInvalidInput, fmt.Sprintf("schema validation failed: %s", result.Error()))
	}
	return nil
}

func decodeArgs(op, raw string) (domain.Args, error) {
	var args domain.Args
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, domain.NewDomainError(op, domain.ErrInvalidInput, err.Error())
	}
	return args, nil
}
