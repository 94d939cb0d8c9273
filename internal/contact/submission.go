package contact

import (
	"context"
	"strings"
	"unicode/utf8"
)

// Collection is the document store collection receiving submissions.
const Collection = "contacts"

// MaxUserAgentLength bounds the user agent stored with a submission.
const MaxUserAgentLength = 200

// Input is the raw content of the three form fields.
type Input struct {
	Name    string
	Email   string
	Message string
}

// Get returns the value of a named field.
func (in Input) Get(field string) (string, bool) {
	switch field {
	case FieldName:
		return in.Name, true
	case FieldEmail:
		return in.Email, true
	case FieldMessage:
		return in.Message, true
	}
	return "", false
}

// Validate runs the field rules over in.
func (in Input) Validate() FieldErrors {
	return Validate(in.Name, in.Email, in.Message)
}

// Document is the record written to the document store. The store
// assigns the creation timestamp.
type Document struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	UserAgent string `json:"userAgent"`
}

// Sink is the document store. Create is called once per accepted
// submission and is never retried automatically.
type Sink interface {
	Create(ctx context.Context, collection string, doc Document) error
}

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// Sanitize strips '<' and '>' from every field and lowercases the
// email. Every other character passes through unchanged.
func Sanitize(in Input) Input {
	return Input{
		Name:    angleBrackets.Replace(in.Name),
		Email:   strings.ToLower(angleBrackets.Replace(in.Email)),
		Message: angleBrackets.Replace(in.Message),
	}
}

// NewDocument trims and sanitizes validated input and attaches the
// truncated user agent.
func NewDocument(in Input, userAgent string) Document {
	clean := Sanitize(Input{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Message: strings.TrimSpace(in.Message),
	})
	return Document{
		Name:      clean.Name,
		Email:     clean.Email,
		Message:   clean.Message,
		UserAgent: truncate(userAgent, MaxUserAgentLength),
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
