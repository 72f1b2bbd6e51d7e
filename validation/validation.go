// Package validation checks request input structs against their `validate`
// tags and reports field-level violations with the API's French messages.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report violations under the json field name, not the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "telephone_sn", func(fl validator.FieldLevel) bool {
		return Phone(fl.Field().String())
	})
	mustRegister(v, "mot_de_passe", func(fl validator.FieldLevel) bool {
		return Password(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// Violations maps a field name to its first violation message.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Struct validates in and returns nil when everything passes.
func Struct(in any) Violations {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var ferrs validator.ValidationErrors
	if !errors.As(err, &ferrs) {
		return Violations{"_": "Requête invalide."}
	}
	out := Violations{}
	for _, fe := range ferrs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = message(fe)
		}
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Le champ " + fe.Field() + " est obligatoire."
	case "email":
		return "L'adresse email est invalide."
	case "max":
		return "Le champ " + fe.Field() + " ne peut pas dépasser " + fe.Param() + " caractères."
	case "min", "gte":
		if fe.Param() == "0" {
			return "Le champ " + fe.Field() + " ne peut pas être négatif."
		}
		return "Le champ " + fe.Field() + " doit être au moins " + fe.Param() + "."
	case "lte":
		return "Le champ " + fe.Field() + " ne peut pas dépasser " + fe.Param() + "."
	case "oneof":
		return "La valeur du champ " + fe.Field() + " est invalide."
	case "eqfield":
		return "Les mots de passe ne correspondent pas."
	case "gtfield":
		return "La date de fin doit être postérieure à la date de début."
	case "telephone_sn":
		return "Le numéro de téléphone n'est pas valide. Assurez-vous qu'il commence par un indicatif correct (+221) et un préfixe valide (77, 78, 76, 70, 75)."
	case "mot_de_passe":
		return "Le mot de passe doit contenir au moins 5 caractères avec majuscules, minuscules, chiffres et symboles."
	default:
		return "Le champ " + fe.Field() + " est invalide."
	}
}

var nonDigit = regexp.MustCompile(`\D`)

// Phone validates a Senegalese number: optional +221 country code, nine
// digits, operator prefix in 77/78/76/70/75.
func Phone(value string) bool {
	_, ok := NormalizePhone(value)
	return ok
}

// NormalizePhone reduces a phone number to its nine local digits. The second
// return value reports whether the input was a valid Senegalese number.
func NormalizePhone(value string) (string, bool) {
	digits := nonDigit.ReplaceAllString(value, "")
	if strings.HasPrefix(digits, "221") && len(digits) == 12 {
		digits = digits[3:]
	}
	if len(digits) != 9 {
		return "", false
	}
	switch digits[:2] {
	case "77", "78", "76", "70", "75":
		return digits, true
	}
	return "", false
}

// Password enforces the account password rule: at least five characters with
// mixed case, a digit, and a symbol.
func Password(value string) bool {
	if len(value) < 5 {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range value {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}
