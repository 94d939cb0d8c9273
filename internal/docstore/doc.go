// Package docstore holds the document stores that receive contact
// submissions: Firestore for the hosted site, the local SQLite file,
// and an in-memory store for development.
package docstore
