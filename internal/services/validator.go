package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Request operations with a JSON schema in the schemas directory.
const (
	OpCreateTask       = "create_task"
	OpSubmitInterest   = "submit_interest"
	OpRegisterProvider = "register_provider"
	OpSubmitDocument   = "submit_document"
)

type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator loads all *.json schema files from schemaDir and compiles one
// schema per operation. schemaDir is the path to the schemas directory
// (e.g. "schemas" or "../schemas" when running from a subdirectory).
func NewValidator(ctx context.Context, schemaDir string) (*Validator, error) {
	_ = ctx
	entries, err := os.ReadDir(schemaDir)
	if err != nil {
		return nil, fmt.Errorf("read schema dir %q: %w", schemaDir, err)
	}
	schemas := make(map[string]*jsonschema.Schema)

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		op := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		op = strings.TrimSuffix(op, ".v1")
		path := filepath.Join(schemaDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", path, err)
		}
		id := "https://localpro.dev/schemas/" + op
		schemas[op], err = jsonschema.CompileString(id, string(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", op, err)
		}
	}

	return &Validator{schemas: schemas}, nil
}

// Validate performs hard reject: returns ErrValidation if the body does not
// match the operation's schema.
func (v *Validator) Validate(ctx context.Context, op string, body json.RawMessage) error {
	schema, ok := v.schemas[op]
	if !ok {
		return fmt.Errorf("unknown operation %q", op)
	}
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrValidation, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
