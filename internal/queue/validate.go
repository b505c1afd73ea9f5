package queue

import (
	"errors"
	"fmt"

	"backend-antrian-klinik/internal/helper"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("clinicphone", func(fl validator.FieldLevel) bool {
		return helper.ValidPhone(fl.Field().String())
	})
	return v
}

// Validate runs the struct tags of a request model and turns failures into
// a *ValidationError.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Fields: []string{err.Error()}}
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, describe(fe))
	}
	return &ValidationError{Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s wajib diisi", fe.Field())
	case "clinicphone":
		return fmt.Sprintf("%s harus 11 digit (contoh: 01012345678)", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s harus salah satu dari: %s", fe.Field(), fe.Param())
	case "min", "max", "gt":
		return fmt.Sprintf("%s melanggar batas %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s tidak valid (%s)", fe.Field(), fe.Tag())
}
