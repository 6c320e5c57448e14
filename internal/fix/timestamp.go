package fix

import (
	"bytes"

	"fix_analyzer/internal/domain"
	"fix_analyzer/pkg/safe"
)

// TimestampLen is the width of YYYYMMDD-HH:MM:SS.ssssss.
const TimestampLen = 24

const maxMicros = 999_999

// ParseTimestamp parses YYYYMMDD-HH:MM:SS.ssssss into a FixTimestamp.
// Only the first 24 bytes are read. Micros are kept exactly as written;
// out-of-range values are rejected, not clamped.
func ParseTimestamp(s []byte) (domain.FixTimestamp, error) {
	ts, ok := parseTimestamp(s)
	if !ok {
		return domain.FixTimestamp{}, domain.NewParseError(domain.KindInvalidTimestamp, 0)
	}
	return ts, nil
}

func parseTimestamp(s []byte) (domain.FixTimestamp, bool) {
	if len(s) < TimestampLen {
		return domain.FixTimestamp{}, false
	}
	if s[8] != '-' || s[11] != ':' || s[14] != ':' || s[17] != '.' {
		return domain.FixTimestamp{}, false
	}
	if bytes.IndexByte(s, Escape) >= 0 {
		return domain.FixTimestamp{}, false
	}

	ymd, ok1 := parseUint(s[0:8])
	hh, ok2 := parseUint(s[9:11])
	mm, ok3 := parseUint(s[12:14])
	ss, ok4 := parseUint(s[15:17])
	micros, ok5 := parseUint(s[18:24])
	if !(ok1 && ok2 && ok3 && ok4 && ok5) || micros > maxMicros {
		return domain.FixTimestamp{}, false
	}

	return domain.FixTimestamp{
		Seconds: ymd*1_000_000 + hh*10_000 + mm*100 + ss,
		Micros:  uint32(micros),
	}, true
}

// parseUint parses a non-empty run of ASCII digits with checked arithmetic.
// Any escape byte makes the value invalid.
func parseUint(s []byte) (uint64, bool) {
	if len(s) == 0 {
		return 0, false
	}
	var v uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		var ok bool
		if v, ok = safe.MulAddUint64(v, 10, uint64(c-'0')); !ok {
			return 0, false
		}
	}
	return v, true
}
