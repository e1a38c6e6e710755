package finance

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/waynerigley/migslist/core"
)

var (
	categoryTag  = "expensecategory"
	categoryText = "invalid expense category"
)

// InitValidators registers finance validators; call once at startup after core.InitValidators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(categoryTag, categoryValidation)
	core.RegisterCustomTranslation(validate, translator, categoryTag, categoryText)
}

func categoryValidation(fl validator.FieldLevel) bool {
	return validCategory(fl.Field().String())
}
