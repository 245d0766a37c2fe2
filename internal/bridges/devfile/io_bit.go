package devfile

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-devbind/internal/devchan"
)

// LockAttribute is the boolean attribute mirrored by IOBitBinding.
const LockAttribute = "locked"

// IOBitBinding mirrors a single bidirectional device channel onto the
// presence of the "locked" attribute.
//
// Inbound lines and outbound attribute changes both run through the write
// serializer, so the scalar is only touched by one task at a time. Inbound
// updates store the scalar before touching the element, so the attribute
// change they cause is not echoed back to the device.
type IOBitBinding struct {
	NopNotifications
	core

	// scalar is the last known symbol, 0 until the first exchange.
	scalar byte
}

// NewIOBitBinding creates a lock binding from its declaration.
func NewIOBitBinding(decl Declaration, opts Options) *IOBitBinding {
	b := &IOBitBinding{}
	b.setup(KindIOBit, decl, opts)
	return b
}

// Ready opens the device, reconciles the element's current attribute through
// the inbound path and starts reading.
func (b *IOBitBinding) Ready(ctx context.Context, assoc Associations) error {
	if err := b.begin(ctx, assoc, devchan.ModeReadWrite); err != nil {
		return err
	}
	ch, assoc, ok := b.active()
	if !ok {
		return nil
	}

	indices := assoc.Indices()
	if len(indices) > 1 {
		b.logWarn("single-channel device is shared",
			"warning", fmt.Errorf("%w: %d elements", ErrSharedDevice, len(indices)).Error(),
		)
	}

	if el, found := b.target(assoc); found {
		symbol := byte('0')
		if _, present := el.Attribute(LockAttribute); present {
			symbol = '1'
		}
		b.serializer.Do(func(done func()) {
			b.inbound(symbol)
			done()
		})
	}

	b.stream(ch, func(line string) {
		if line == "" {
			return
		}
		symbol := line[0]
		b.serializer.Do(func(done func()) {
			b.inbound(symbol)
			done()
		})
	})
	return nil
}

// AttributeChanged transmits the lock state when it differs from the scalar.
func (b *IOBitBinding) AttributeChanged(c Change) {
	if c.Name != LockAttribute || c.Namespace != "" {
		return
	}
	if _, _, ok := b.active(); !ok {
		return
	}

	b.serializer.Do(func(done func()) {
		// The element's presence when the task runs, not when the change was
		// queued: inbound lines queued ahead of this task may already have
		// moved the scalar and the attribute together.
		symbol := lockSymbol(c)
		if symbol == b.scalar {
			done()
			return
		}
		ch, _, ok := b.active()
		if !ok {
			done()
			return
		}
		b.scalar = symbol
		b.setVector(string(symbol))
		b.transmit(ch, string(symbol), done)
	})
}

// lockSymbol returns the symbol for the current lock state of the changed
// element, falling back to the change itself when no element is supplied.
func lockSymbol(c Change) byte {
	present := !c.Removed
	if c.Element != nil {
		_, present = c.Element.Attribute(LockAttribute)
	}
	if present {
		return '1'
	}
	return '0'
}

// inbound applies a symbol received from the device. It runs inside the
// serializer.
func (b *IOBitBinding) inbound(symbol byte) {
	if symbol == b.scalar {
		return
	}
	b.scalar = symbol
	b.setVector(string(symbol))

	_, assoc, ok := b.active()
	if !ok {
		return
	}
	el, found := b.target(assoc)
	if !found {
		return
	}

	b.logDebug("lock state received", "element_id", el.ID(), "symbol", string(symbol))
	if symbol == '1' {
		b.safely("set "+LockAttribute, func() { el.SetAttribute(LockAttribute, "") })
	} else {
		b.safely("remove "+LockAttribute, func() { el.RemoveAttribute(LockAttribute) })
	}
}

// target returns the lowest-index associated element.
func (b *IOBitBinding) target(assoc Associations) (Element, bool) {
	for _, i := range assoc.Indices() {
		if el, ok := assoc.Element(i); ok {
			return el, true
		}
	}
	return nil, false
}
