package devfile

import (
	"context"

	"github.com/nerrad567/gray-logic-devbind/internal/devchan"
)

// InputBitsBinding reads one '0'/'1' symbol per channel from a device and
// dispatches "pressed" or "released" on the associated elements when a
// channel's symbol changes. It never writes to the device.
//
// The first line after Ready signals every associated channel, because no
// previous snapshot exists to compare against.
type InputBitsBinding struct {
	NopNotifications
	core

	// previous is the last snapshot. Only the read goroutine touches it.
	previous string
}

// NewInputBitsBinding creates an input binding from its declaration.
func NewInputBitsBinding(decl Declaration, opts Options) *InputBitsBinding {
	b := &InputBitsBinding{}
	b.setup(KindInputBits, decl, opts)
	return b
}

// Ready opens the device for reading and starts processing lines.
func (b *InputBitsBinding) Ready(ctx context.Context, assoc Associations) error {
	if err := b.begin(ctx, assoc, devchan.ModeRead); err != nil {
		return err
	}
	ch, _, ok := b.active()
	if !ok {
		return nil
	}
	b.stream(ch, b.handleLine)
	return nil
}

// handleLine diffs one snapshot against the previous one.
func (b *InputBitsBinding) handleLine(line string) {
	if line == "" {
		return
	}
	_, assoc, ok := b.active()
	if !ok {
		return
	}

	for _, i := range assoc.Indices() {
		if i < 0 || i >= len(line) {
			continue
		}
		symbol := line[i]
		if i < len(b.previous) && b.previous[i] == symbol {
			continue
		}
		el, found := assoc.Element(i)
		if !found {
			continue
		}

		event := EventReleased
		if symbol == '1' {
			event = EventPressed
		}
		b.logDebug("input channel changed", "channel", i, "element_id", el.ID(), "event", event)
		b.safely(event, func() { el.DispatchEvent(event) })
	}

	b.previous = line
}
