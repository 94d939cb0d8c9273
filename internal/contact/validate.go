package contact

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Field names, as used in form posts and FieldErrors keys.
const (
	FieldName    = "name"
	FieldEmail   = "email"
	FieldMessage = "message"
)

// SpamPhrases are rejected anywhere in a message, case-insensitively.
var SpamPhrases = []string{
	"http://",
	"https://",
	"www.",
	".com",
	"click here",
	"buy now",
	"free money",
	"urgent",
}

var (
	nameRegex  = regexp.MustCompile(`^[\p{L} '\-]+$`)
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// FieldErrors maps a field name to a human-readable error. An empty
// map means the input is valid.
type FieldErrors map[string]string

// contactFields carries the trimmed input through the validator. Tag
// order matters: the validator reports the first failing tag per field.
// nospam runs before the length bounds so spam is named as spam even
// when the message is also too short or too long.
type contactFields struct {
	Name    string `form:"name" validate:"required,min=2,max=100,personname"`
	Email   string `form:"email" validate:"required,max=254,contactemail"`
	Message string `form:"message" validate:"required,nospam,min=10,max=1000"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			return f.Tag.Get("form")
		})
		v.RegisterValidation("personname", validatePersonName)
		v.RegisterValidation("contactemail", validateEmail)
		v.RegisterValidation("nospam", validateNoSpam)
		validate = v
	})
	return validate
}

func validatePersonName(fl validator.FieldLevel) bool {
	return nameRegex.MatchString(fl.Field().String())
}

func validateEmail(fl validator.FieldLevel) bool {
	return emailRegex.MatchString(fl.Field().String())
}

func validateNoSpam(fl validator.FieldLevel) bool {
	return !ContainsSpam(fl.Field().String())
}

// ContainsSpam reports whether s contains any of SpamPhrases.
func ContainsSpam(s string) bool {
	lower := strings.ToLower(s)
	for _, phrase := range SpamPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Validate checks the three raw form fields. Each field is trimmed
// before its rules run. It has no side effects.
func Validate(name, email, message string) FieldErrors {
	fields := contactFields{
		Name:    strings.TrimSpace(name),
		Email:   strings.TrimSpace(email),
		Message: strings.TrimSpace(message),
	}

	errs := FieldErrors{}
	err := getValidator().Struct(fields)
	if err == nil {
		return errs
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		// Only returned for invalid validator usage, never for bad input.
		panic(fmt.Sprintf("contact: validator misuse: %v", err))
	}
	for _, fe := range validationErrors {
		if _, seen := errs[fe.Field()]; !seen {
			errs[fe.Field()] = describe(fe)
		}
	}
	return errs
}

var fieldLabels = map[string]string{
	FieldName:    "Name",
	FieldEmail:   "Email",
	FieldMessage: "Message",
}

func describe(fe validator.FieldError) string {
	label := fieldLabels[fe.Field()]
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "personname":
		return "Name can only contain letters, spaces, hyphens and apostrophes"
	case "contactemail":
		return "Invalid email format"
	case "nospam":
		return "Message looks like spam: links and promotional phrases are not allowed"
	default:
		return label + " is invalid"
	}
}
