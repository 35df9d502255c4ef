package mentoring

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/edpsychconnect/connect/core"
)

var (
	expertiseTag  = "expertise"
	expertiseText = "{0} contains an unknown expertise area"
)

// InitValidators registers the mentoring validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(expertiseTag, expertiseValidation)
	core.RegisterCustomTranslation(validate, translator, expertiseTag, expertiseText)
}

// Custom Validators

// expertiseValidation checks that every id is part of the Expertise taxonomy.
func expertiseValidation(fl validator.FieldLevel) bool {
	ids, ok := fl.Field().Interface().([]int)
	if !ok {
		return false
	}
	for _, id := range ids {
		if !IsExpertise(id) {
			return false
		}
	}
	return true
}
