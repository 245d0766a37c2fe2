package relay

import (
	"time"

	"github.com/nerrad567/gray-logic-devbind/internal/bridges/devfile"
	"github.com/nerrad567/gray-logic-devbind/internal/document"
)

// Action is the operation a command performs on an element.
type Action string

// Command actions.
const (
	ActionSetAttribute    Action = "set_attribute"
	ActionRemoveAttribute Action = "remove_attribute"
	ActionSetStyle        Action = "set_style"
	ActionRemoveStyle     Action = "remove_style"
	ActionDispatchEvent   Action = "dispatch_event"
)

// CommandMessage is received on devbind/command/{element}.
type CommandMessage struct {
	// ID correlates the command with its acknowledgement. One is generated
	// when absent.
	ID string `json:"id"`

	Timestamp time.Time `json:"timestamp"`

	// ElementID defaults to the last topic level.
	ElementID string `json:"element_id"`

	Action Action `json:"action"`

	// Namespace applies to attribute actions only.
	Namespace string `json:"namespace,omitempty"`

	// Name is the attribute, style property or event name.
	Name string `json:"name"`

	Value string `json:"value,omitempty"`

	// Source indicates where the command originated ("api", "mqtt", ...).
	Source string `json:"source,omitempty"`
}

// AckStatus is the outcome of a command.
type AckStatus string

// Acknowledgement statuses.
const (
	AckAccepted AckStatus = "accepted"
	AckFailed   AckStatus = "failed"
)

// AckMessage is published on devbind/ack/{element}.
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	ElementID string    `json:"element_id"`
	Action    Action    `json:"action"`
	Status    AckStatus `json:"status"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError describes a failed command.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for failed commands.
const (
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeUnknownElement    = "UNKNOWN_ELEMENT"
	ErrCodeDocumentError     = "DOCUMENT_ERROR"
)

// NewAckMessage creates a successful acknowledgement.
func NewAckMessage(cmd CommandMessage) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		ElementID: cmd.ElementID,
		Action:    cmd.Action,
		Status:    AckAccepted,
	}
}

// NewAckError creates a failed acknowledgement.
func NewAckError(cmd CommandMessage, code, message string) AckMessage {
	ack := NewAckMessage(cmd)
	ack.Status = AckFailed
	ack.Error = &AckError{Code: code, Message: message}
	return ack
}

// EventMessage is published on devbind/event/{element}.
type EventMessage struct {
	ElementID string    `json:"element_id"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

// StateMessage is published, retained, on devbind/state/{element}.
type StateMessage struct {
	ElementID  string            `json:"element_id"`
	Timestamp  time.Time         `json:"timestamp"`
	Attributes map[string]string `json:"attributes"`
	Style      map[string]string `json:"style"`
}

// NewStateMessage builds a state message from an element snapshot.
func NewStateMessage(s document.Snapshot) StateMessage {
	return StateMessage{
		ElementID:  s.ID,
		Timestamp:  time.Now().UTC(),
		Attributes: s.Attributes,
		Style:      s.Style,
	}
}

// IOMessage is published on devbind/io/{binding}.
type IOMessage struct {
	BindingID string    `json:"binding_id"`
	Kind      string    `json:"kind"`
	Location  string    `json:"location"`
	Direction string    `json:"direction"`
	Payload   string    `json:"payload"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewIOMessage converts a binding I/O event.
func NewIOMessage(ev devfile.IOEvent) IOMessage {
	msg := IOMessage{
		BindingID: ev.BindingID,
		Kind:      string(ev.Kind),
		Location:  ev.Location,
		Direction: string(ev.Direction),
		Payload:   ev.Payload,
		Timestamp: ev.Time.UTC(),
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	return msg
}
