package devfile

// StateVector is an ordered sequence of '0'/'1' channel symbols.
//
// It grows with '0' fill to the highest position touched and never shrinks.
// It is not safe for concurrent use; its owner mutates it only from inside a
// WriteSerializer task.
type StateVector struct {
	symbols []byte
}

// Len returns the current length.
func (v *StateVector) Len() int {
	return len(v.symbols)
}

// Ensure grows the vector with '0' so that positions [0, n) are addressable.
func (v *StateVector) Ensure(n int) {
	for len(v.symbols) < n {
		v.symbols = append(v.symbols, '0')
	}
}

// Block returns a copy of positions [lo, hi), growing the vector first.
func (v *StateVector) Block(lo, hi int) []byte {
	v.Ensure(hi)
	out := make([]byte, hi-lo)
	copy(out, v.symbols[lo:hi])
	return out
}

// SetBlock overwrites positions starting at lo with block.
func (v *StateVector) SetBlock(lo int, block []byte) {
	v.Ensure(lo + len(block))
	copy(v.symbols[lo:], block)
}

// String returns the vector as a line.
func (v *StateVector) String() string {
	return string(v.symbols)
}
