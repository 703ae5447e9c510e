package enums

import "fmt"

// SaleType distinguishes over-the-counter sales from order-derived ones.
type SaleType string

const (
	SaleTypeRegular SaleType = "regular"
	SaleTypeOrder   SaleType = "order"
)

var validSaleTypes = []SaleType{
	SaleTypeRegular,
	SaleTypeOrder,
}

// String implements fmt.Stringer.
func (s SaleType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleType.
func (s SaleType) IsValid() bool {
	for _, candidate := range validSaleTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleType converts raw input into a SaleType.
func ParseSaleType(value string) (SaleType, error) {
	for _, candidate := range validSaleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale type %q", value)
}
