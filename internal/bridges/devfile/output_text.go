package devfile

import (
	"context"

	"github.com/nerrad567/gray-logic-devbind/internal/devchan"
)

// Payload limits, counted in characters.
const (
	maxMessageLength = 120
	maxTextLength    = 1024
)

// OutputTextBinding writes an attribute's text to a device.
//
// In raw mode it watches "message" and writes the text itself, including the
// empty string; an empty line is written at Ready. In keyed mode it watches
// the configured attribute and writes "name=text", never for an empty value.
// Only the element on channel 0 is consulted.
type OutputTextBinding struct {
	NopNotifications
	core

	keyed bool
	limit int

	// last is the last transmitted text before truncation. Serializer only.
	last string
}

// NewOutputMessageBinding creates a raw-message text binding.
func NewOutputMessageBinding(decl Declaration, opts Options) *OutputTextBinding {
	b := &OutputTextBinding{limit: maxMessageLength}
	b.setup(KindOutputMessage, decl, opts)
	return b
}

// NewOutputTextBinding creates a keyed-attribute text binding.
func NewOutputTextBinding(decl Declaration, opts Options) *OutputTextBinding {
	b := &OutputTextBinding{keyed: true, limit: maxTextLength}
	b.setup(KindOutputText, decl, opts)
	return b
}

// Ready opens the device for writing. Raw mode then writes an empty line.
func (b *OutputTextBinding) Ready(ctx context.Context, assoc Associations) error {
	if err := b.begin(ctx, assoc, devchan.ModeWrite); err != nil {
		return err
	}
	if b.keyed {
		return nil
	}

	ch, _, ok := b.active()
	if !ok {
		return nil
	}
	b.serializer.Do(func(done func()) {
		b.last = ""
		b.transmit(ch, "", done)
	})
	return nil
}

// AttributeChanged transmits the monitored attribute of the channel 0 element.
func (b *OutputTextBinding) AttributeChanged(c Change) {
	if c.Name != b.cfg.AttributeName || c.Namespace != "" || c.Index != 0 {
		return
	}
	if _, _, ok := b.active(); !ok {
		return
	}

	text := c.Value
	if c.Removed {
		text = ""
	}
	b.serializer.Do(func(done func()) {
		b.send(text, done)
	})
}

// send runs inside the serializer.
func (b *OutputTextBinding) send(text string, done func()) {
	if b.keyed && text == "" {
		done()
		return
	}
	if text == b.last {
		done()
		return
	}
	ch, _, ok := b.active()
	if !ok {
		done()
		return
	}

	b.last = text
	line := truncate(text, b.limit)
	if b.keyed {
		line = b.cfg.AttributeName + "=" + line
	}
	b.setVector(line)
	b.transmit(ch, line, done)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
