package models

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator"
)

var validate = NewValidator()

// NewValidator returns a validator with the custom tags used by the models
// i.e. 'time_stamp' and 'phone_number'
func NewValidator() *validator.Validate {
	v := validator.New()
	if err := RegisterValidators(v); err != nil {
		panic(err)
	}

	return v
}

func RegisterValidators(validate *validator.Validate) error {
	err := validate.RegisterValidation("time_stamp", func(fl validator.FieldLevel) bool {
		_, _, ok := ParseTimeStamp(fl.Field().String())
		return ok
	})
	if err != nil {
		return err
	}

	return validate.RegisterValidation("phone_number", func(fl validator.FieldLevel) bool {
		return isValidPhoneNumber(fl.Field().String())
	})
}

// Validate checks a model against its 'validate' tags
func Validate(model interface{}) error {
	return validate.Struct(model)
}

// ParseTimeStamp parses an "HH:MM" time of day
func ParseTimeStamp(value string) (hour int, minute int, ok bool) {
	timeSegments := strings.Split(strings.TrimSpace(value), ":")
	if len(timeSegments) != 2 {
		return 0, 0, false
	}

	hour, err := strconv.Atoi(timeSegments[0])
	if err != nil {
		return 0, 0, false
	}

	minute, err = strconv.Atoi(timeSegments[1])
	if err != nil {
		return 0, 0, false
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, false
	}

	return hour, minute, true
}

// MinutesOfDay converts an "HH:MM" time of day to minutes since midnight,
// returns -1 for malformed values
func MinutesOfDay(value string) int {
	hour, minute, ok := ParseTimeStamp(value)
	if !ok {
		return -1
	}
	return hour*60 + minute
}

func isValidPhoneNumber(phone string) bool {
	digits := 0
	for i, r := range phone {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 3
}

// ValidateVar checks a single value against tag e.g. "phone_number"
func ValidateVar(value interface{}, tag string) error {
	return validate.Var(value, tag)
}
