// Package fix parses pipe-delimited FIX trade messages without allocating.
//
// Values may carry a literal '|' escaped as `\|` (and a literal '\' as `\\`).
// Nothing in this package copies input bytes; values are views into the
// caller's buffer and are decoded on the fly where needed.
package fix

const (
	FieldDelim byte = '|'
	Escape     byte = '\\'
)

// EscapedValue is a view of a field value that may contain backslash escapes.
type EscapedValue struct {
	raw []byte
}

// NewEscapedValue wraps raw without copying it.
func NewEscapedValue(raw []byte) EscapedValue {
	return EscapedValue{raw: raw}
}

// Raw returns the undecoded bytes.
func (v EscapedValue) Raw() []byte {
	return v.raw
}

// Empty reports whether the value has no bytes at all.
func (v EscapedValue) Empty() bool {
	return len(v.raw) == 0
}

func (v EscapedValue) DecodedLen() int {
	return DecodedLen(v.raw)
}

// DecodeInto decodes into out and returns the number of bytes written.
// out must hold at least DecodedLen() bytes.
func (v EscapedValue) DecodeInto(out []byte) int {
	return DecodeInto(v.raw, out)
}

// Equal compares the decoded value with already-decoded bytes.
func (v EscapedValue) Equal(decoded []byte) bool {
	return EscapedEqual(v.raw, decoded)
}

// String decodes into a new string. Not for the hot path.
func (v EscapedValue) String() string {
	buf := make([]byte, v.DecodedLen())
	n := v.DecodeInto(buf)
	return string(buf[:n])
}

// DecodedLen returns the length raw has once escapes are removed.
// A trailing lone escape counts as a literal byte.
func DecodedLen(raw []byte) int {
	n := 0
	for i := 0; i < len(raw); i++ {
		if raw[i] == Escape && i+1 < len(raw) {
			i++
		}
		n++
	}
	return n
}

// DecodeInto writes the decoded form of raw into out and returns the count.
// Bytes without escapes decode to themselves.
func DecodeInto(raw, out []byte) int {
	w := 0
	for i := 0; i < len(raw); i++ {
		b := raw[i]
		if b == Escape && i+1 < len(raw) {
			i++
			b = raw[i]
		}
		out[w] = b
		w++
	}
	return w
}

// EscapedEqual reports whether raw decodes to exactly stored.
func EscapedEqual(raw, stored []byte) bool {
	j := 0
	for i := 0; i < len(raw); i++ {
		b := raw[i]
		if b == Escape && i+1 < len(raw) {
			i++
			b = raw[i]
		}
		if j >= len(stored) || stored[j] != b {
			return false
		}
		j++
	}
	return j == len(stored)
}

// FindUnescaped returns the index of the first needle at or after from that is
// not preceded by an escape, or -1.
func FindUnescaped(buf []byte, from int, needle byte) int {
	for i := from; i < len(buf); i++ {
		b := buf[i]
		if b == Escape {
			// skip the escaped byte; a trailing escape is literal
			i++
			continue
		}
		if b == needle {
			return i
		}
	}
	return -1
}

// Hash64 returns the FNV-1a hash of the decoded bytes of raw together with the
// decoded length. Equal decoded values hash equally however they were escaped.
// The result is never 0; 0 is remapped to 1.
func Hash64(raw []byte) (uint64, int) {
	const (
		offset64 = 0xcbf29ce484222325
		prime64  = 0x100000001b3
	)
	h := uint64(offset64)
	n := 0
	for i := 0; i < len(raw); i++ {
		b := raw[i]
		if b == Escape && i+1 < len(raw) {
			i++
			b = raw[i]
		}
		h ^= uint64(b)
		h *= prime64
		n++
	}
	if h == 0 {
		h = 1
	}
	return h, n
}
