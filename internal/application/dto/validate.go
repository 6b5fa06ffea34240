package dto

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
)

var validate = validator.New()

// Validate valida las etiquetas `validate` del DTO y devuelve un ValidationError con "campo: regla".
func Validate(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domsunat.NewValidationError(err.Error())
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}
	return domsunat.NewValidationError(problems...)
}
