package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"marketplace/internal/entity"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// normalizeEmail trims the address and checks its structure. Case is kept as
// given; lookups are case-insensitive.
func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func trimAddress(a *entity.Address) entity.Address {
	return entity.Address{
		FirstName:  strings.TrimSpace(a.FirstName),
		LastName:   strings.TrimSpace(a.LastName),
		Street:     strings.TrimSpace(a.Street),
		Line2:      strings.TrimSpace(a.Line2),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(a.Country)),
		Phone:      strings.TrimSpace(a.Phone),
	}
}

// validateAddress returns the trimmed address, or ErrInvalidAddress naming
// the field (shipping_address, billing_address) and what it lacks.
func validateAddress(field string, addr *entity.Address) (entity.Address, error) {
	if addr == nil {
		return entity.Address{}, ErrInvalidAddress.withMessage("%s is required", field)
	}

	trimmed := trimAddress(addr)
	if err := validate.Struct(trimmed); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			missing := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				missing = append(missing, fe.Field())
			}
			return entity.Address{}, ErrInvalidAddress.withMessage("%s is missing %s", field, strings.Join(missing, ", "))
		}
		return entity.Address{}, ErrInvalidAddress.withMessage("%s is invalid", field)
	}
	return trimmed, nil
}
