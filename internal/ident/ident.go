// Package ident validates session and item identifiers and generates new
// item ids. Identifiers are opaque strings of 1-64 letters, digits, '-' or
// '_'; anything else fails closed at the entry point.
package ident

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"scribe/internal/services"
)

// ItemIDPrefix marks store-generated transcript item ids.
const ItemIDPrefix = "tr_"

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateSessionID returns the trimmed session id or a typed failure.
func ValidateSessionID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if !idPattern.MatchString(id) {
		return "", services.Wrap(services.ErrInvalidSession, "ident", "validate session",
			"session id must be 1-64 chars of letters, digits, '-' or '_'", nil)
	}
	return id, nil
}

// ValidateItemID returns the trimmed item id or a typed failure.
func ValidateItemID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if !idPattern.MatchString(id) {
		return "", services.Wrap(services.ErrInvalidItem, "ident", "validate item",
			"item id must be 1-64 chars of letters, digits, '-' or '_'", nil)
	}
	return id, nil
}

// NewItemID generates a fresh item id, unique within any session.
func NewItemID() string {
	return ItemIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
