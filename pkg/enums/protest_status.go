package enums

import "fmt"

// ProtestStatus tracks the dispute lifecycle on a captured order.
type ProtestStatus string

const (
	ProtestStatusFiled    ProtestStatus = "filed"
	ProtestStatusResolved ProtestStatus = "resolved"
)

var validProtestStatuses = []ProtestStatus{
	ProtestStatusFiled,
	ProtestStatusResolved,
}

// String implements fmt.Stringer.
func (p ProtestStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProtestStatus.
func (p ProtestStatus) IsValid() bool {
	for _, candidate := range validProtestStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProtestStatus converts raw input into a ProtestStatus.
func ParseProtestStatus(value string) (ProtestStatus, error) {
	for _, candidate := range validProtestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid protest status %q", value)
}
