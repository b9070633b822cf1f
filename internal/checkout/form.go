package checkout

import (
	"net/mail"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/customers"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// ShippingForm is the contact, address and payment choice submitted at checkout.
type ShippingForm struct {
	FirstName    string        `json:"first_name" validate:"required,max=100"`
	LastName     string        `json:"last_name" validate:"required,max=100"`
	Email        string        `json:"email" validate:"required,email,max=255"`
	Phone        string        `json:"phone" validate:"required,max=32"`
	Address      types.Address `json:"address" validate:"required"`
	PaymentType  string        `json:"payment_type" validate:"required,oneof=cash card bank_transfer"`
	DeliveryType string        `json:"delivery_type" validate:"required,oneof=standard express pickup"`
}

type normalizedForm struct {
	ShippingForm
	paymentType  enums.PaymentType
	deliveryType enums.DeliveryType
}

// normalize trims the form and returns field errors keyed by json name.
func (f ShippingForm) normalize() (normalizedForm, map[string]string) {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = customers.NormalizeEmail(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Address = f.Address.Normalize()

	fields := map[string]string{}
	required := map[string]string{
		"first_name":          f.FirstName,
		"last_name":           f.LastName,
		"phone":               f.Phone,
		"address.line1":       f.Address.Line1,
		"address.city":        f.Address.City,
		"address.state":       f.Address.State,
		"address.postal_code": f.Address.PostalCode,
		"address.country":     f.Address.Country,
	}
	for name, value := range required {
		if value == "" {
			fields[name] = "is required"
		}
	}
	if f.Email == "" {
		fields["email"] = "is required"
	} else if _, err := mail.ParseAddress(f.Email); err != nil {
		fields["email"] = "must be a valid email"
	}

	out := normalizedForm{ShippingForm: f}
	var err error
	if out.paymentType, err = enums.ParsePaymentType(f.PaymentType); err != nil {
		fields["payment_type"] = "must be one of cash, card, bank_transfer"
	}
	if out.deliveryType, err = enums.ParseDeliveryType(f.DeliveryType); err != nil {
		fields["delivery_type"] = "must be one of standard, express, pickup"
	}
	return out, fields
}

func (f normalizedForm) profile() customers.Profile {
	phone := f.Phone
	addr := f.Address
	return customers.Profile{
		Email:     f.Email,
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Phone:     &phone,
		Address:   &addr,
	}
}
