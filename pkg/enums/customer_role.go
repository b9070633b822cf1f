package enums

import "fmt"

// CustomerRole replaces the single hardcoded administrator account.
type CustomerRole string

const (
	CustomerRoleCustomer CustomerRole = "customer"
	CustomerRoleAdmin    CustomerRole = "admin"
)

var validCustomerRoles = []CustomerRole{
	CustomerRoleCustomer,
	CustomerRoleAdmin,
}

func (r CustomerRole) String() string {
	return string(r)
}

func (r CustomerRole) IsValid() bool {
	for _, candidate := range validCustomerRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseCustomerRole(value string) (CustomerRole, error) {
	for _, candidate := range validCustomerRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid customer role %q", value)
}
