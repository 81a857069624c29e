package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	// Brazilian state abbreviation, e.g. SP
	UFPattern = `^[A-Za-z]{2}$`

	// Postal code, 8 digits with an optional dash
	CEPPattern = `^\d{5}-?\d{3}$`

	// CPF, 11 digits with optional punctuation
	CPFPattern = `^\d{3}\.?\d{3}\.?\d{3}-?\d{2}$`
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	UF  *regexp.Regexp
	CEP *regexp.Regexp
	CPF *regexp.Regexp
}{
	UF:  regexp.MustCompile(UFPattern),
	CEP: regexp.MustCompile(CEPPattern),
	CPF: regexp.MustCompile(CPFPattern),
}

// Tags registered by Register
const (
	TagUF  = "uf"
	TagCEP = "cep"
	TagCPF = "cpf"
)

// Register adds the document format tags to v. Blank values pass so the tags
// can be combined with omitempty on pointer fields.
func Register(v *validator.Validate) error {
	rules := map[string]*regexp.Regexp{
		TagUF:  CompiledPatterns.UF,
		TagCEP: CompiledPatterns.CEP,
		TagCPF: CompiledPatterns.CPF,
	}
	for tag, re := range rules {
		re := re
		err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return MatchString(re, fl.Field().String())
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// MatchString trims value and matches it against re. Blank values match.
func MatchString(re *regexp.Regexp, value string) bool {
	value = strings.TrimSpace(value)
	return value == "" || re.MatchString(value)
}
