// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

package validation

import (
	"strings"
	"testing"
)

type sampleRequest struct {
	Limit  int    `validate:"min=1,max=100"`
	Sort   string `validate:"omitempty,oneof=popular following"`
	Cursor string `validate:"omitempty,base64url"`
	Name   string `validate:"required"`
}

func TestValidateStructPasses(t *testing.T) {
	req := sampleRequest{Limit: 20, Sort: "popular", Name: "feed"}
	if verr := ValidateStruct(&req); verr != nil {
		t.Fatalf("expected valid struct, got %v", verr)
	}
}

func TestValidateStructSingleError(t *testing.T) {
	req := sampleRequest{Limit: 500, Name: "feed"}
	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("expected validation error")
	}
	if len(verr.Errors()) != 1 {
		t.Fatalf("expected 1 error, got %d", len(verr.Errors()))
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR code, got %q", apiErr.Code)
	}
	if apiErr.Details["field"] != "Limit" {
		t.Errorf("expected Limit field in details, got %v", apiErr.Details["field"])
	}
	if !strings.Contains(apiErr.Message, "at most 100") {
		t.Errorf("unexpected message: %q", apiErr.Message)
	}
}

func TestValidateStructMultipleErrors(t *testing.T) {
	req := sampleRequest{Limit: 0, Sort: "newest"}
	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("expected validation error")
	}
	if len(verr.Errors()) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(verr.Errors()), verr)
	}

	apiErr := verr.ToAPIError()
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("expected fields list in details for multiple errors")
	}
	if !strings.Contains(apiErr.Message, "Sort") {
		t.Errorf("expected Sort in combined message, got %q", apiErr.Message)
	}
}

func TestValidateStructCursorFormat(t *testing.T) {
	req := sampleRequest{Limit: 10, Name: "feed", Cursor: "not base64!!"}
	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("expected validation error for malformed cursor")
	}
	if verr.Errors()[0].Tag() != "base64url" {
		t.Errorf("expected base64url tag, got %q", verr.Errors()[0].Tag())
	}
}

func TestValidatorSingleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("expected the same validator instance across calls")
	}
}
