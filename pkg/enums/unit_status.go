package enums

import "fmt"

// UnitStatus tracks the lifecycle of a single product unit.
type UnitStatus string

const (
	UnitStatusInRequest          UnitStatus = "in_request"
	UnitStatusInRequestCancelled UnitStatus = "in_request_cancelled"
	UnitStatusInStore            UnitStatus = "in_store"
	UnitStatusSold               UnitStatus = "sold"
	UnitStatusBroken             UnitStatus = "broken"
	UnitStatusLost               UnitStatus = "lost"
	UnitStatusTransferred        UnitStatus = "transferred"
)

var validUnitStatuses = []UnitStatus{
	UnitStatusInRequest,
	UnitStatusInRequestCancelled,
	UnitStatusInStore,
	UnitStatusSold,
	UnitStatusBroken,
	UnitStatusLost,
	UnitStatusTransferred,
}

// String implements fmt.Stringer.
func (u UnitStatus) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UnitStatus.
func (u UnitStatus) IsValid() bool {
	for _, candidate := range validUnitStatuses {
		if candidate == u {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is defined from the status.
func (u UnitStatus) IsTerminal() bool {
	switch u {
	case UnitStatusInRequestCancelled, UnitStatusBroken, UnitStatusLost, UnitStatusTransferred:
		return true
	default:
		return false
	}
}

// ParseUnitStatus converts raw input into a UnitStatus.
func ParseUnitStatus(value string) (UnitStatus, error) {
	for _, candidate := range validUnitStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unit status %q", value)
}
