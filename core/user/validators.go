package user

import (
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/waynerigley/migslist/core"
)

var (
	appRoleTag  = "approle"
	appRoleText = "invalid role"

	unionRoleTag  = "unionrole"
	unionRoleText = "role must be union_president or union_secretary"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = "password must contain at least 8 characters"

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"
)

// InitValidators registers user validators; call once at startup after core.InitValidators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(appRoleTag, appRoleValidation)
	core.RegisterCustomTranslation(validate, translator, appRoleTag, appRoleText)

	_ = validate.RegisterValidation(unionRoleTag, unionRoleValidation)
	core.RegisterCustomTranslation(validate, translator, unionRoleTag, unionRoleText)

	validate.RegisterStructValidation(userStructValidation, NewUser{})
	validate.RegisterStructValidation(userStructValidation, UpdateUser{})
	validate.RegisterStructValidation(userStructValidation, ChangePassword{})
	validate.RegisterStructValidation(userStructValidation, ResetUserPassword{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
}

// Custom Validators

// appRoleValidation checks that the provided role is a known role.
func appRoleValidation(fl validator.FieldLevel) bool {
	role := NormalizeRole(fl.Field().String())
	for _, r := range AllRoles {
		if role == r {
			return true
		}
	}
	return false
}

// unionRoleValidation restricts the role to union-scoped ones.
func unionRoleValidation(fl validator.FieldLevel) bool {
	role := NormalizeRole(fl.Field().String())
	return role == RolePresident || role == RoleSecretary
}

// userStructValidation applies the password policy wherever a password is set.
func userStructValidation(sl validator.StructLevel) {
	switch data := sl.Current().Interface().(type) {
	case NewUser:
		validatePassword(data.Password, sl)
	case UpdateUser:
		if data.Password != "" {
			validatePassword(data.Password, sl)
		}
	case ChangePassword:
		validatePassword(data.Password, sl)
	case ResetUserPassword:
		validatePassword(data.Password, sl)
	}
}

// validatePassword applies the password policy:
// - minLen: 8
// - no whitespace
// - not entirely numeric
func validatePassword(pwd string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	if len(pwd) < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}

	var digitCount int
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == len(pwd) {
		reportErr(pwdNotAllNumTag)
	}
}
