package pgparser

import "bytes"

// NextField splits b at its first NUL byte. It returns the bytes
// before the NUL, the bytes after it, and whether a NUL was found at
// all. A missing terminator is not an error for callers; it just
// means the payload ran out.
func NextField(b []byte) (field, rest []byte, ok bool) {
	i := bytes.IndexByte(b, 0x00)
	if i < 0 {
		return nil, nil, false
	}
	return b[:i], b[i+1:], true
}

// SkipFields drops n NUL-terminated fields from the front of b. It
// returns the remainder and whether all n terminators were present.
func SkipFields(b []byte, n int) ([]byte, bool) {
	for ; n > 0; n-- {
		_, rest, ok := NextField(b)
		if !ok {
			return nil, false
		}
		b = rest
	}
	return b, true
}
