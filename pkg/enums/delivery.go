package enums

import "fmt"

// DeliveryType is the shipping option chosen at checkout.
type DeliveryType string

const (
	DeliveryTypeStandard DeliveryType = "standard"
	DeliveryTypeExpress  DeliveryType = "express"
	DeliveryTypePickup   DeliveryType = "pickup"
)

var validDeliveryTypes = []DeliveryType{
	DeliveryTypeStandard,
	DeliveryTypeExpress,
	DeliveryTypePickup,
}

func (d DeliveryType) String() string {
	return string(d)
}

func (d DeliveryType) IsValid() bool {
	for _, candidate := range validDeliveryTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

func ParseDeliveryType(value string) (DeliveryType, error) {
	for _, candidate := range validDeliveryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery type %q", value)
}

// DeliveryStatus tracks a delivery from placement to hand-off.
type DeliveryStatus string

const (
	DeliveryStatusProcessing DeliveryStatus = "Processing"
	DeliveryStatusShipped    DeliveryStatus = "Shipped"
	DeliveryStatusDelivered  DeliveryStatus = "Delivered"
)

var deliveryTransitions = map[DeliveryStatus]DeliveryStatus{
	DeliveryStatusProcessing: DeliveryStatusShipped,
	DeliveryStatusShipped:    DeliveryStatusDelivered,
}

func (s DeliveryStatus) String() string {
	return string(s)
}

func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryStatusProcessing, DeliveryStatusShipped, DeliveryStatusDelivered:
		return true
	}
	return false
}

// CanTransitionTo reports whether next directly follows s.
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	return deliveryTransitions[s] == next
}

func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	s := DeliveryStatus(value)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid delivery status %q", value)
	}
	return s, nil
}
