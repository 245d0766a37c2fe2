package document

import "errors"

// Domain errors for the document model.
var (
	// ErrUnknownElement is returned when an element id does not exist.
	ErrUnknownElement = errors.New("document: unknown element")

	// ErrDuplicateElement is returned when an element id is already in use.
	ErrDuplicateElement = errors.New("document: duplicate element id")

	// ErrUnknownParent is returned when an element names a parent that does not exist.
	ErrUnknownParent = errors.New("document: unknown parent element")

	// ErrEmptyName is returned for an empty element id, attribute or property name.
	ErrEmptyName = errors.New("document: name must not be empty")

	// ErrInvalidChannel is returned for a negative channel index.
	ErrInvalidChannel = errors.New("document: channel index must be non-negative")

	// ErrChannelTaken is returned when a binding channel is already associated.
	ErrChannelTaken = errors.New("document: channel already associated")

	// ErrInvalidLayout is returned when a layout file fails validation.
	ErrInvalidLayout = errors.New("document: invalid layout")
)
