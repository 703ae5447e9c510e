package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := New(CodeUnitNotSellable, "unit SN-1 is sold")
	if got := err.Error(); got != "UNIT_NOT_SELLABLE: unit SN-1 is sold" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("duplicate key value")
	err := Wrap(CodeGenerationExhausted, cause, "serial generation failed")

	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause lost")
	}
	if err.Code() != CodeGenerationExhausted {
		t.Fatalf("code = %s", err.Code())
	}
}

func TestAsUnwrapsThroughFmt(t *testing.T) {
	inner := New(CodeAlreadyCancelled, "sale 12 already has a cancellation")
	wrapped := fmt.Errorf("cancel sale: %w", inner)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("As should find the typed error")
	}
	if typed.Code() != CodeAlreadyCancelled {
		t.Fatalf("code = %s", typed.Code())
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeInvalidTransition, "sold -> sold"))
	if !HasCode(err, CodeInvalidTransition) {
		t.Fatal("HasCode should match through wrapping")
	}
	if HasCode(err, CodeNotFound) {
		t.Fatal("HasCode matched wrong code")
	}
	if HasCode(nil, CodeNotFound) {
		t.Fatal("nil error should not match")
	}
}

func TestMetadataForDomainCodes(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidTransition:    http.StatusUnprocessableEntity,
		CodeUnitNotSellable:      http.StatusUnprocessableEntity,
		CodeGenerationExhausted:  http.StatusConflict,
		CodeInvalidDeliveryItem:  http.StatusBadRequest,
		CodeAlreadyCancelled:     http.StatusConflict,
		CodeReferentialViolation: http.StatusConflict,
		Code("UNKNOWN"):          http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := MetadataFor(code).HTTPStatus; got != want {
			t.Fatalf("MetadataFor(%s).HTTPStatus = %d, want %d", code, got, want)
		}
	}
}

func TestDetails(t *testing.T) {
	err := New(CodeValidation, "validation failed").WithDetails(map[string]string{"quantity_received": "must be at least 1"})
	details, ok := err.Details().(map[string]string)
	if !ok {
		t.Fatalf("details type %T", err.Details())
	}
	if details["quantity_received"] == "" {
		t.Fatal("details lost")
	}
}
