package enums

import "fmt"

// OrderState tracks the lifecycle of an escrow order.
type OrderState string

const (
	OrderStateCreated         OrderState = "created"
	OrderStateRequiresCapture OrderState = "requires_capture"
	OrderStateCaptured        OrderState = "captured"
	OrderStateCanceled        OrderState = "canceled"
)

var validOrderStates = []OrderState{
	OrderStateCreated,
	OrderStateRequiresCapture,
	OrderStateCaptured,
	OrderStateCanceled,
}

// String implements fmt.Stringer.
func (o OrderState) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderState.
func (o OrderState) IsValid() bool {
	for _, candidate := range validOrderStates {
		if candidate == o {
			return true
		}
	}
	return false
}

// Terminal reports whether the state admits no further transitions.
func (o OrderState) Terminal() bool {
	return o == OrderStateCaptured || o == OrderStateCanceled
}

// ParseOrderState converts raw input into an OrderState.
func ParseOrderState(value string) (OrderState, error) {
	for _, candidate := range validOrderStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order state %q", value)
}
