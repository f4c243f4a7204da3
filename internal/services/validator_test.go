package services

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
)

// schemasDir resolves the schemas directory relative to this source file, so
// the tests work regardless of the working directory.
func schemasDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot resolve caller path")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "schemas")
}

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator(context.Background(), schemasDir(t))
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

// ---------------------------------------------------------------------------
// 1. TestValidate_CreateTask
// ---------------------------------------------------------------------------

func TestValidate_CreateTask(t *testing.T) {
	v := newTestValidator(t)
	ctx := context.Background()

	valid := `{
		"category_id": "a2b1f0e4-3c5d-4e6f-8a9b-0c1d2e3f4a5b",
		"description": "replace a leaking kitchen tap",
		"latitude": 40.0,
		"longitude": -74.0,
		"budget_cents": 10000
	}`
	if err := v.Validate(ctx, OpCreateTask, json.RawMessage(valid)); err != nil {
		t.Fatalf("valid body rejected: %v", err)
	}

	tests := []struct {
		name string
		body string
	}{
		{"missing description", `{"category_id": "a2b1f0e4-3c5d-4e6f-8a9b-0c1d2e3f4a5b"}`},
		{"description too short", `{"category_id": "a2b1f0e4-3c5d-4e6f-8a9b-0c1d2e3f4a5b", "description": "short"}`},
		{"budget below minimum", `{"category_id": "a2b1f0e4-3c5d-4e6f-8a9b-0c1d2e3f4a5b", "description": "replace a leaking tap", "budget_cents": 50}`},
		{"latitude out of range", `{"category_id": "a2b1f0e4-3c5d-4e6f-8a9b-0c1d2e3f4a5b", "description": "replace a leaking tap", "latitude": 91}`},
		{"unknown field", `{"category_id": "a2b1f0e4-3c5d-4e6f-8a9b-0c1d2e3f4a5b", "description": "replace a leaking tap", "priority": "high"}`},
		{"not JSON", `{category_id:}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(ctx, OpCreateTask, json.RawMessage(tc.body))
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got: %v", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// 2. TestValidate_SubmitDocument
// ---------------------------------------------------------------------------

func TestValidate_SubmitDocument(t *testing.T) {
	v := newTestValidator(t)
	ctx := context.Background()

	if err := v.Validate(ctx, OpSubmitDocument, json.RawMessage(`{"doc_type": "national_id", "storage_ref": "s3://docs/abc"}`)); err != nil {
		t.Fatalf("valid body rejected: %v", err)
	}
	if err := v.Validate(ctx, OpSubmitDocument, json.RawMessage(`{"doc_type": "passport", "storage_ref": "s3://docs/abc"}`)); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown doc_type: expected ErrValidation, got: %v", err)
	}
	if err := v.Validate(ctx, OpSubmitDocument, json.RawMessage(`{"doc_type": "national_id", "storage_ref": ""}`)); !errors.Is(err, ErrValidation) {
		t.Errorf("empty storage_ref: expected ErrValidation, got: %v", err)
	}
}

// ---------------------------------------------------------------------------
// 3. TestValidate_UnknownOperation
// ---------------------------------------------------------------------------

func TestValidate_UnknownOperation(t *testing.T) {
	v := newTestValidator(t)
	err := v.Validate(context.Background(), "delete_everything", json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("expected an error for an unknown operation")
	}
	if errors.Is(err, ErrValidation) {
		t.Error("an unknown operation is a programming error, not a validation failure")
	}
}
