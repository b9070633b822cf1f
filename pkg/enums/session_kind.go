package enums

import "fmt"

// SessionKind distinguishes anonymous browsing sessions from signed-in ones.
type SessionKind string

const (
	SessionKindGuest    SessionKind = "guest"
	SessionKindCustomer SessionKind = "customer"
)

var validSessionKinds = []SessionKind{
	SessionKindGuest,
	SessionKindCustomer,
}

// String implements fmt.Stringer.
func (k SessionKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known SessionKind.
func (k SessionKind) IsValid() bool {
	for _, candidate := range validSessionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseSessionKind converts raw input into a SessionKind.
func ParseSessionKind(value string) (SessionKind, error) {
	for _, candidate := range validSessionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid session kind %q", value)
}
