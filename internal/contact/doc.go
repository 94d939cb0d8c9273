// Package contact implements the portfolio contact form: field
// validation with a keyword spam filter, per-client rate limiting over
// an injected key-value store, sanitization, and the write of accepted
// messages to a document store.
//
// A Form is the state holder for one browser client. Its Status moves
//
//	Idle → Validating → (Invalid | RateLimited | Submitting) → (Submitted | Failed)
//
// Submitted reverts to Idle after DisplayDelay. Failed reverts to Idle
// on the next field edit or submit. Rate-limit counters advance only
// after the document store acknowledges a write.
package contact
