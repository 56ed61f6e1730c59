package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Room identifiers are short labels such as "206", "OPD-3" or "B12".
var roomIdentifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _-]{0,19}$`)

type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("room_identifier", func(fl validator.FieldLevel) bool {
		return roomIdentifierPattern.MatchString(fl.Field().String())
	})
	return &CustomValidator{
		validator: v,
	}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func (cv *CustomValidator) FormatValidationErrors(err error) map[string]string {
	errors := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			field := e.Field()
			switch e.Tag() {
			case "required":
				errors[field] = field + " is required"
			case "min":
				errors[field] = field + " must be at least " + e.Param() + " characters"
			case "max":
				errors[field] = field + " must be at most " + e.Param() + " characters"
			case "gt":
				errors[field] = field + " must be greater than " + e.Param()
			case "gte":
				errors[field] = field + " must be greater than or equal to " + e.Param()
			case "lte":
				errors[field] = field + " must be less than or equal to " + e.Param()
			case "room_identifier":
				errors[field] = field + " must be 1-20 letters, digits, spaces, '-' or '_'"
			default:
				errors[field] = field + " is invalid"
			}
		}
	}

	return errors
}
