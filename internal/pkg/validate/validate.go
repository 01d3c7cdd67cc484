package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	tagEmail    = "chat_email"
	tagFullName = "full_name"

	// MinFullNameLen is the minimum length of a trimmed display name.
	MinFullNameLen = 3
)

// Validator checks registration and login input. Build it once with New and
// share it; it holds no mutable state after construction.
type Validator struct {
	v *validator.Validate
}

// New builds a Validator with the chat_email and full_name tags registered.
func New() *Validator {
	// Permissive ASCII local-part@domain grammar; the domain is not checked for reachability.
	emailRe := regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9-]+(?:\\.[a-zA-Z0-9-]+)*$")

	v := validator.New()
	// Registration only fails for an empty tag name or a nil func.
	_ = v.RegisterValidation(tagEmail, func(fl validator.FieldLevel) bool {
		return emailRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation(tagFullName, func(fl validator.FieldLevel) bool {
		return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= MinFullNameLen
	})
	return &Validator{v: v}
}

// Email reports whether s is a syntactically valid email address.
func (x *Validator) Email(s string) bool {
	return x.v.Var(s, "required,"+tagEmail) == nil
}

// FullName reports whether s has at least MinFullNameLen characters once trimmed.
func (x *Validator) FullName(s string) bool {
	return x.v.Var(s, tagFullName) == nil
}

// OtpCode reports whether s is exactly six ASCII digits.
func (x *Validator) OtpCode(s string) bool {
	return x.v.Var(s, "len=6,number") == nil
}
