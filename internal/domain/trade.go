package domain

// Side codes carried in tag 54.
const (
	SideBuy  byte = '1'
	SideSell byte = '2'
)

// FixTimestamp is a lossless numeric form of YYYYMMDD-HH:MM:SS.ssssss.
// Seconds packs the digits base-10 as YYYYMMDDHHMMSS (not a Unix epoch),
// so ordering follows the input digits with no timezone interpretation.
type FixTimestamp struct {
	Seconds uint64 `json:"seconds"`
	Micros  uint32 `json:"micros"` // 0..=999_999
}

// Less orders timestamps by seconds, then micros.
func (t FixTimestamp) Less(o FixTimestamp) bool {
	if t.Seconds != o.Seconds {
		return t.Seconds < o.Seconds
	}
	return t.Micros < o.Micros
}

// String renders the canonical 24-byte layout.
func (t FixTimestamp) String() string {
	var b [24]byte
	ymd := t.Seconds / 1_000_000
	hms := t.Seconds % 1_000_000
	putDigits(b[0:8], ymd)
	b[8] = '-'
	putDigits(b[9:11], hms/10_000)
	b[11] = ':'
	putDigits(b[12:14], hms/100%100)
	b[14] = ':'
	putDigits(b[15:17], hms%100)
	b[17] = '.'
	putDigits(b[18:24], uint64(t.Micros))
	return string(b[:])
}

// putDigits writes v right-aligned and zero-padded into dst.
func putDigits(dst []byte, v uint64) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte('0' + v%10)
		v /= 10
	}
}
