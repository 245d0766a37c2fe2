package devfile

// LineAssembler reassembles lines from arbitrarily split read chunks.
//
// Lines end at "\r\n", "\r" or "\n". A "\r" that ends one chunk followed by a
// "\n" that starts the next is a single terminator. The trailing incomplete
// segment is kept for the next Feed.
type LineAssembler struct {
	buf       []byte
	pendingCR bool
}

// Feed appends chunk and returns the lines it completed, in order.
func (a *LineAssembler) Feed(chunk []byte) []string {
	var lines []string
	for _, c := range chunk {
		if a.pendingCR {
			a.pendingCR = false
			if c == '\n' {
				continue
			}
		}

		switch c {
		case '\r':
			lines = append(lines, string(a.buf))
			a.buf = a.buf[:0]
			a.pendingCR = true
		case '\n':
			lines = append(lines, string(a.buf))
			a.buf = a.buf[:0]
		default:
			a.buf = append(a.buf, c)
		}
	}
	return lines
}

// Pending returns the retained partial line.
func (a *LineAssembler) Pending() string {
	return string(a.buf)
}
