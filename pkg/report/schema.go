package report

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is the JSON schema of the json report format.
//
//go:embed schema.json
var Schema []byte

// ErrSchemaViolation is returned when a document does not match Schema.
var ErrSchemaViolation = errors.New("report does not match schema")

// Violation is one schema error.
type Violation struct {
	Field       string
	Description string
}

// ValidateJSON checks a json report against Schema. A document that is not
// valid JSON returns a plain decode error; a schema mismatch returns
// ErrSchemaViolation and the individual violations.
func ValidateJSON(doc []byte) ([]Violation, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(Schema),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return nil, fmt.Errorf("validate report: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	violations := make([]Violation, 0, len(result.Errors()))
	fields := make([]string, 0, len(result.Errors()))

	for _, resErr := range result.Errors() {
		violations = append(violations, Violation{Field: resErr.Field(), Description: resErr.Description()})
		fields = append(fields, resErr.Field())
	}

	return violations, fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(fields, ", "))
}
