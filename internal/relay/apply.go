package relay

import (
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-devbind/internal/document"
)

// ErrInvalidCommand is returned by Apply for an unknown action or a command
// missing its element or name.
var ErrInvalidCommand = errors.New("relay: invalid command")

// Apply performs a command on the document. The API uses it for the same
// operations it exposes over HTTP.
func Apply(doc *document.Document, cmd CommandMessage) error {
	if cmd.ElementID == "" {
		return fmt.Errorf("%w: element_id is required", ErrInvalidCommand)
	}
	if cmd.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCommand)
	}

	switch cmd.Action {
	case ActionSetAttribute:
		if cmd.Namespace != "" {
			return doc.SetAttributeNS(cmd.ElementID, cmd.Namespace, cmd.Name, cmd.Value)
		}
		return doc.SetAttribute(cmd.ElementID, cmd.Name, cmd.Value)
	case ActionRemoveAttribute:
		if cmd.Namespace != "" {
			return doc.RemoveAttributeNS(cmd.ElementID, cmd.Namespace, cmd.Name)
		}
		return doc.RemoveAttribute(cmd.ElementID, cmd.Name)
	case ActionSetStyle:
		return doc.SetStyle(cmd.ElementID, cmd.Name, cmd.Value)
	case ActionRemoveStyle:
		return doc.RemoveStyle(cmd.ElementID, cmd.Name)
	case ActionDispatchEvent:
		return doc.DispatchEvent(cmd.ElementID, cmd.Name)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, cmd.Action)
	}
}

// ErrorCode maps an Apply error to an acknowledgement error code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCommand):
		return ErrCodeInvalidCommand
	case errors.Is(err, document.ErrUnknownElement):
		return ErrCodeUnknownElement
	case errors.Is(err, document.ErrEmptyName):
		return ErrCodeInvalidParameters
	default:
		return ErrCodeDocumentError
	}
}
