package controllers

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/vosmiarka/warehouse-backend/pkg/errors"
)

// notesMaxLen caps free-text fields (notes, cancellation reasons) before
// they reach the services.
const notesMaxLen = 2000

func parseUUIDField(raw, field string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid uuid").
			WithDetails(map[string]any{"field": field})
	}
	return parsed, nil
}

func parseOptionalUUIDField(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := parseUUIDField(*raw, field)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseUUIDList(values []string, field string) ([]uuid.UUID, error) {
	result := make([]uuid.UUID, 0, len(values))
	for _, raw := range values {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		parsed, err := parseUUIDField(raw, field)
		if err != nil {
			return nil, err
		}
		result = append(result, parsed)
	}
	return result, nil
}

// Money fields travel as JSON strings to avoid float rounding.
func parseDecimalField(raw, field string) (decimal.Decimal, error) {
	parsed, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid decimal").
			WithDetails(map[string]any{"field": field})
	}
	return parsed, nil
}
