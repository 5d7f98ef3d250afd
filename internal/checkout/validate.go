// Package checkout validates guest details, places orders through the REST
// API, and serves sanitized order receipts.
package checkout

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"storefront/internal/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldLabels maps Address struct fields to the names shown in validation
// messages, in form order.
var fieldLabels = map[string]string{
	"Name":     "name",
	"Email":    "email",
	"Phone":    "phone",
	"Address1": "address",
	"City":     "city",
	"Region":   "region",
	"Postcode": "postcode",
	"Country":  "country",
}

// ValidateAddress checks the checkout form locally, so missing fields never
// cost a network round trip. The first problem wins: one short message per
// submit, matching how the form highlights fields.
func ValidateAddress(addr *model.Address) error {
	if err := validate.Struct(addr); err != nil {
		return firstFieldError(err)
	}
	return validateRegion(addr)
}

// shippingAddress narrows validation to the delivery destination. Signed-in
// customers already have a name and email on file, so only the fields the
// courier needs are required of them.
type shippingAddress struct {
	Email    string `validate:"omitempty,email"`
	Address1 string `validate:"required"`
	City     string `validate:"required"`
	Region   string `validate:"required"`
	Postcode string `validate:"required"`
	Country  string `validate:"required"`
}

// ValidateShippingAddress checks only the delivery fields, for submissions
// from signed-in customers whose identity comes from the session.
func ValidateShippingAddress(addr *model.Address) error {
	narrowed := shippingAddress{
		Email:    addr.Email,
		Address1: addr.Address1,
		City:     addr.City,
		Region:   addr.Region,
		Postcode: addr.Postcode,
		Country:  addr.Country,
	}
	if err := validate.Struct(narrowed); err != nil {
		return firstFieldError(err)
	}
	return validateRegion(addr)
}

// firstFieldError converts a validator error into the single short message
// the form shows.
func firstFieldError(err error) error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return model.NewValidationError("address", "Please check your details and try again.")
	}

	first := errs[0]
	label := fieldLabels[first.StructField()]
	if label == "" {
		label = strings.ToLower(first.StructField())
	}
	if first.Tag() == "email" {
		return model.NewValidationError(label, "Please enter a valid email address.")
	}
	return model.NewValidationError(label, "Please fill in "+label+".")
}

// validateRegion enforces the enumerated region codes for the primary
// market. Free text still passes through NormalizeRegion at order time as
// a safety net; this check keeps the fast path honest.
func validateRegion(addr *model.Address) error {
	if !model.IsPrimaryMarket(addr.Country) {
		return nil
	}
	if model.ValidRegion(addr.Region) {
		return nil
	}
	if model.ValidRegion(model.NormalizeRegion(addr.Region)) {
		return nil
	}
	return model.NewValidationError("region", "Please choose a region from the list.")
}
