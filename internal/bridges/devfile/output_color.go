package devfile

import (
	"bytes"
	"context"

	"github.com/nerrad567/gray-logic-devbind/internal/devchan"
)

// OutputColorBinding drives a write-only device where each element owns a
// block of channels-per-element channels and a colour selects one of them.
//
// Every change rewrites the element's block in a shared state vector and,
// when the block differs, transmits the whole vector as one line.
type OutputColorBinding struct {
	NopNotifications
	core

	// vector is only touched from serializer tasks.
	vector StateVector
}

// NewOutputColorBinding creates a colour output binding from its declaration.
func NewOutputColorBinding(decl Declaration, opts Options) *OutputColorBinding {
	b := &OutputColorBinding{}
	b.setup(KindOutputColor, decl, opts)
	return b
}

// Ready opens the device for writing.
func (b *OutputColorBinding) Ready(ctx context.Context, assoc Associations) error {
	return b.begin(ctx, assoc, devchan.ModeWrite)
}

// StylePropertyChanged applies a change to a monitored colour property.
func (b *OutputColorBinding) StylePropertyChanged(c Change) {
	if !b.cfg.MonitorsProperty(c.Name) {
		return
	}
	_, assoc, ok := b.active()
	if !ok || c.Index < 0 {
		return
	}
	if _, found := assoc.Element(c.Index); !found {
		return
	}

	value := c.Value
	if c.Removed {
		value = ""
	}
	index := c.Index
	b.serializer.Do(func(done func()) {
		b.apply(index, value, done)
	})
}

// apply runs inside the serializer: compute the block, diff it against the
// vector and transmit the full vector on change. A failed write leaves the
// vector updated.
func (b *OutputColorBinding) apply(index int, value string, done func()) {
	cpe := b.cfg.ChannelsPerElement
	lo := index * cpe
	hi := lo + cpe

	current := b.vector.Block(lo, hi)
	candidate := b.candidate(value)

	if bytes.Equal(current, candidate) {
		b.setVector(b.vector.String())
		done()
		return
	}

	b.vector.SetBlock(lo, candidate)
	line := b.vector.String()
	b.setVector(line)

	ch, _, ok := b.active()
	if !ok {
		done()
		return
	}
	b.logDebug("colour block changed", "channel", index, "color", value, "vector", line)
	b.transmit(ch, line, done)
}

// candidate returns the block for a colour value: all '0' except the mapped
// offset. Unknown colours and offsets outside the block turn the block off.
func (b *OutputColorBinding) candidate(value string) []byte {
	cpe := b.cfg.ChannelsPerElement
	block := bytes.Repeat([]byte{'0'}, cpe)
	if offset, ok := b.cfg.Colors.Lookup(value); ok && offset < cpe {
		block[offset] = '1'
	}
	return block
}
