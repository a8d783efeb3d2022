// Package review orchestrates guideline review passes over a change
// and decides which findings are genuinely new.
//
// The engine sequences resolution, one independent pass per guideline
// document, aggregation, deduplication against existing comments, and
// emission. Collaborators for fetching changes, generating findings,
// and posting comments are injected as interfaces; any conforming
// implementation is substitutable.
package review
