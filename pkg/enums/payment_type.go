package enums

import "fmt"

// PaymentType is the payment tag recorded with an order. No gateway is charged.
type PaymentType string

const (
	PaymentTypeCash         PaymentType = "cash"
	PaymentTypeCard         PaymentType = "card"
	PaymentTypeBankTransfer PaymentType = "bank_transfer"
)

var paymentTypeIDs = map[PaymentType]int{
	PaymentTypeCash:         1,
	PaymentTypeCard:         2,
	PaymentTypeBankTransfer: 3,
}

// String implements fmt.Stringer.
func (p PaymentType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentType.
func (p PaymentType) IsValid() bool {
	_, ok := paymentTypeIDs[p]
	return ok
}

// TypeID is the value stored in payments.type_id.
func (p PaymentType) TypeID() int {
	return paymentTypeIDs[p]
}

// PaymentTypeFromID maps a stored type_id back to its PaymentType.
func PaymentTypeFromID(id int) (PaymentType, error) {
	for pt, candidate := range paymentTypeIDs {
		if candidate == id {
			return pt, nil
		}
	}
	return "", fmt.Errorf("invalid payment type id %d", id)
}

// ParsePaymentType converts raw input into a PaymentType.
func ParsePaymentType(value string) (PaymentType, error) {
	pt := PaymentType(value)
	if !pt.IsValid() {
		return "", fmt.Errorf("invalid payment type %q", value)
	}
	return pt, nil
}
