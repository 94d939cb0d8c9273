package contact

import "errors"

var (
	// ErrSubmissionInFlight is returned when a client submits while its
	// previous write is still pending.
	ErrSubmissionInFlight = errors.New("contact: submission already in flight")

	// ErrRecentlySubmitted is returned while the success state is still
	// on display.
	ErrRecentlySubmitted = errors.New("contact: message just sent")

	// ErrUnknownField is returned by Edit for a field the form does not have.
	ErrUnknownField = errors.New("contact: unknown field")
)

// User-facing notices.
const (
	MessageSent    = "Thank you for your message! I'll get back to you soon."
	MessageFailed  = "Sorry, there was an error sending your message. Please try again later."
	MessageSending = "Sending..."
)
