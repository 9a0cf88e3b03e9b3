package record

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema validates records against a JSON Schema document.
//
// Every stage declares an output schema; the engine checks both real outputs
// and fallback outputs against it, so a downstream stage never observes a
// namespace missing a declared key.
type Schema struct {
	schema *gojsonschema.Schema
	source string
}

// CompileSchema compiles a JSON Schema document from its source text.
// The schema is compiled once at workflow construction, not per validation.
func CompileSchema(source string) (*Schema, error) {
	loader := gojsonschema.NewStringLoader(source)
	compiled, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{schema: compiled, source: source}, nil
}

// MustCompileSchema is CompileSchema for package-level schema literals.
// Panics on compile failure; schema text is static and covered by tests.
func MustCompileSchema(source string) *Schema {
	s, err := CompileSchema(source)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks the record against the schema.
// Returns a ValidationError listing every failed constraint, or nil.
func (s *Schema) Validate(r Record) error {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(map[string]any(r)))
	if err != nil {
		return fmt.Errorf("validate record: %w", err)
	}
	if result.Valid() {
		return nil
	}
	verr := &ValidationError{}
	for _, desc := range result.Errors() {
		verr.Failures = append(verr.Failures, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	sort.Strings(verr.Failures)
	return verr
}

// ValidationError reports which schema constraints a record failed.
type ValidationError struct {
	Failures []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record failed schema validation: %s", strings.Join(e.Failures, "; "))
}
