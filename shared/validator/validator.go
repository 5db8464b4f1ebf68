package validator

import (
	"encoding/json"
	"fmt"
	"io"
	"slotbook/shared/failure"
	"slotbook/shared/timezone"

	val "github.com/go-playground/validator/v10"
)

var validate *val.Validate

func validateDay(field val.FieldLevel) bool {
	_, err := timezone.ParseDay(field.Field().String())

	return err == nil
}

func validateClock(field val.FieldLevel) bool {
	_, err := timezone.ParseClock(field.Field().String())

	return err == nil
}

func init() {
	validate = val.New(val.WithRequiredStructEnabled())

	err := validate.RegisterValidation("empty", func(fl val.FieldLevel) bool {
		return fl.Field().IsZero()
	})
	if err != nil {
		panic(err)
	}

	err = validate.RegisterValidation("day", validateDay)
	if err != nil {
		panic(err)
	}

	err = validate.RegisterValidation("clock", validateClock)
	if err != nil {
		panic(err)
	}
}

// Validate decodes JSON from r into data and validates the result.
// https://github.com/go-playground/validator
func Validate[T any](r io.Reader, data *T) error {
	decoder := json.NewDecoder(r)
	err := decoder.Decode(data)

	if err != nil {
		return failure.BadRequest(fmt.Errorf("failed to decode request body: %w", err)) //nolint:wrapcheck
	}

	return ValidateStruct(data)
}

func ValidateStruct[T any](data *T) error {
	err := validate.Struct(data)

	if err != nil {
		msg := message(err)

		return failure.BadRequestFromString(msg) //nolint:wrapcheck
	}

	return nil
}

func ValidateVar(field any, tag string) error {
	err := validate.Var(field, tag)

	if err != nil {
		msg := message(err)

		return failure.BadRequestFromString(msg) //nolint:wrapcheck
	}

	return nil
}
