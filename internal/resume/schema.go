package resume

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

// ShapeError lists structural violations of the request payload.
type ShapeError struct {
	Problems []string
}

func (e *ShapeError) Error() string {
	return "schema validation failed: " + strings.Join(e.Problems, "; ")
}

// Details maps each offending JSON path to its description.
func (e *ShapeError) Details() map[string]string {
	out := make(map[string]string, len(e.Problems))
	for _, p := range e.Problems {
		field, desc, ok := strings.Cut(p, ": ")
		if !ok {
			field, desc = "(root)", p
		}
		if _, seen := out[field]; !seen {
			out[field] = desc
		}
	}
	return out
}

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// CheckShape verifies that raw is a JSON document with exactly the request
// shape: every field present with its JSON type, photo null or an object.
// Content rules are left to Validate.
func CheckShape(raw []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile resume schema: %w", err)
	}

	res, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &ShapeError{Problems: []string{"(root): " + err.Error()}}
	}
	if res.Valid() {
		return nil
	}

	problems := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return &ShapeError{Problems: problems}
}
