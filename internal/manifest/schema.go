package manifest

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dosanma1/nextdeploy/internal/errs"
)

//go:embed schemas/manifest.v1.schema.json
var schemaJSON []byte

// ValidationError lists every schema violation found in a manifest document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest does not match schema: %s", strings.Join(e.Problems, "; "))
}

// Schema returns the embedded JSON schema.
func Schema() []byte { return schemaJSON }

// Validate checks a manifest document against the embedded schema.
func Validate(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return errs.Internal("validate manifest", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return errs.Internal("validate manifest", &ValidationError{Problems: problems})
}

// Validate checks m against the embedded schema.
func (m *Manifest) Validate() error {
	data, err := m.ToJSON()
	if err != nil {
		return err
	}
	return Validate(data)
}
