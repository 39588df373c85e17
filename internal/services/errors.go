package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSession = errors.New("invalid session id")
	ErrInvalidItem    = errors.New("invalid item id")
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("not found")
	ErrExpired        = errors.New("item expired")
	ErrAlreadyExists  = errors.New("already exists")
	ErrCapacity       = errors.New("session capacity exceeded")
	ErrPathTraversal  = errors.New("path escapes session root")
	ErrExternalTool   = errors.New("external command failed")
	ErrNoSubtitles    = errors.New("no subtitles available")
	ErrNoContent      = errors.New("no content after parsing")
)

// Stable error codes surfaced to clients.
const (
	CodeInvalidSession  = "ERR_INVALID_SESSION"
	CodeInvalidItem     = "ERR_INVALID_ITEM"
	CodeInvalidInput    = "ERR_INVALID_INPUT"
	CodeNotFound        = "ERR_NOT_FOUND"
	CodeExpiredItem     = "ERR_EXPIRED_ITEM"
	CodeAlreadyExists   = "ERR_ALREADY_EXISTS"
	CodeCapacity        = "ERR_CAPACITY"
	CodePathTraversal   = "ERR_PATH_TRAVERSAL"
	CodeExternalCommand = "ERR_EXTERNAL_COMMAND"
	CodeNoSubtitles     = "ERR_NO_SUBTITLES"
	CodeNoContent       = "ERR_NO_CONTENT"
	CodeInternal        = "ERR_INTERNAL"
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrInvalidInput
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Code maps a classified error to its stable wire identifier.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSession):
		return CodeInvalidSession
	case errors.Is(err, ErrInvalidItem):
		return CodeInvalidItem
	case errors.Is(err, ErrExpired):
		return CodeExpiredItem
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAlreadyExists):
		return CodeAlreadyExists
	case errors.Is(err, ErrCapacity):
		return CodeCapacity
	case errors.Is(err, ErrPathTraversal):
		return CodePathTraversal
	case errors.Is(err, ErrExternalTool):
		return CodeExternalCommand
	case errors.Is(err, ErrNoSubtitles):
		return CodeNoSubtitles
	case errors.Is(err, ErrNoContent):
		return CodeNoContent
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	default:
		return CodeInternal
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
