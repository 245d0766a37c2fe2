package relay

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nerrad567/gray-logic-devbind/internal/document"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		cmd     CommandMessage
		wantErr error
	}{
		{"set attribute", CommandMessage{ElementID: "led-1", Action: ActionSetAttribute, Name: "text", Value: "hi"}, nil},
		{"remove attribute", CommandMessage{ElementID: "led-1", Action: ActionRemoveAttribute, Name: "text"}, nil},
		{"set style", CommandMessage{ElementID: "led-1", Action: ActionSetStyle, Name: "color", Value: "red"}, nil},
		{"remove style", CommandMessage{ElementID: "led-1", Action: ActionRemoveStyle, Name: "color"}, nil},
		{"dispatch event", CommandMessage{ElementID: "led-1", Action: ActionDispatchEvent, Name: "pressed"}, nil},
		{"missing element", CommandMessage{Action: ActionSetStyle, Name: "color"}, ErrInvalidCommand},
		{"missing name", CommandMessage{ElementID: "led-1", Action: ActionSetStyle}, ErrInvalidCommand},
		{"unknown action", CommandMessage{ElementID: "led-1", Action: "toggle", Name: "x"}, ErrInvalidCommand},
		{"unknown element", CommandMessage{ElementID: "nope", Action: ActionSetStyle, Name: "color"}, document.ErrUnknownElement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Apply(testDocument(t), tt.cmd)
			if tt.wantErr == nil && err != nil {
				t.Errorf("Apply() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Apply() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyRemoveNamespaced(t *testing.T) {
	doc := testDocument(t)
	if err := doc.SetAttributeNS("led-1", "urn:x", "mode", "on"); err != nil {
		t.Fatal(err)
	}
	err := Apply(doc, CommandMessage{ElementID: "led-1", Action: ActionRemoveAttribute, Namespace: "urn:x", Name: "mode"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if _, ok := doc.AttributeNS("led-1", "urn:x", "mode"); ok {
		t.Error("namespaced attribute still present")
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: x", ErrInvalidCommand), ErrCodeInvalidCommand},
		{fmt.Errorf("%w: x", document.ErrUnknownElement), ErrCodeUnknownElement},
		{fmt.Errorf("%w: x", document.ErrEmptyName), ErrCodeInvalidParameters},
		{errors.New("other"), ErrCodeDocumentError},
	}
	for _, tt := range tests {
		if got := ErrorCode(tt.err); got != tt.want {
			t.Errorf("ErrorCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
