// Package services defines the shared error taxonomy and request context
// helpers used by every scribe service.
//
// Errors are classified by wrapping them with one of the exported sentinel
// markers; Code maps a classified error to the stable ERR_* identifier that
// is embedded in failure responses so clients can branch on cause without
// string-matching prose.
package services
