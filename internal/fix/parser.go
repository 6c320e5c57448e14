package fix

import (
	"fix_analyzer/internal/domain"
)

// Tags consumed by the analyzer. Everything else is skipped.
const (
	TagOrderID   = 11
	TagQuantity  = 38
	TagTimestamp = 52
	TagSide      = 54
	TagSymbol    = 55
	TagText      = 58
)

// Message holds the fields the analyzer needs. Value fields are views into
// the raw buffer passed to ParseMessage and are only valid as long as it is.
type Message struct {
	OrderID   EscapedValue
	Symbol    EscapedValue
	Side      byte
	Quantity  uint64
	Timestamp domain.FixTimestamp
	Text      EscapedValue // optional, 58
	HasText   bool
}

const (
	seenOrderID uint8 = 1 << iota
	seenSymbol
	seenSide
	seenQuantity
	seenTimestamp

	seenRequired = seenOrderID | seenSymbol | seenSide | seenQuantity | seenTimestamp
)

// ParseMessage tokenizes raw into fields and extracts the required tags.
// It returns the first error encountered. It does not allocate on success;
// errors are only allocated on the failure path.
func ParseMessage(raw []byte) (Message, error) {
	var msg Message
	var seen uint8

	for i := 0; i < len(raw); {
		start := i
		end := FindUnescaped(raw, i, FieldDelim)
		if end < 0 {
			end = len(raw)
		}
		i = end + 1

		if end == start {
			// empty field, e.g. a trailing delimiter
			continue
		}

		field := raw[start:end]
		tag, value, ok := splitTagValue(field)
		if !ok {
			return Message{}, domain.NewParseError(domain.KindInvalidField, start)
		}

		switch tagID(tag) {
		case TagOrderID:
			msg.OrderID = NewEscapedValue(value)
			seen |= seenOrderID
		case TagSymbol:
			if len(value) > 0 {
				msg.Symbol = NewEscapedValue(value)
				seen |= seenSymbol
			}
		case TagSide:
			if len(value) > 0 {
				msg.Side = value[0]
				seen |= seenSide
			}
		case TagQuantity:
			q, ok := parseUint(value)
			if !ok {
				return Message{}, domain.NewParseError(domain.KindInvalidNumber, start)
			}
			msg.Quantity = q
			seen |= seenQuantity
		case TagTimestamp:
			ts, ok := parseTimestamp(value)
			if !ok {
				return Message{}, domain.NewParseError(domain.KindInvalidTimestamp, start)
			}
			msg.Timestamp = ts
			seen |= seenTimestamp
		case TagText:
			msg.Text = NewEscapedValue(value)
			msg.HasText = true
		}
	}

	if seen&seenRequired != seenRequired {
		return Message{}, domain.NewParseError(domain.KindMissingTag, 0)
	}
	return msg, nil
}

// splitTagValue splits on the first unescaped '='. Values may contain '='.
func splitTagValue(field []byte) (tag, value []byte, ok bool) {
	eq := FindUnescaped(field, 0, '=')
	if eq <= 0 {
		return nil, nil, false
	}
	return field[:eq], field[eq+1:], true
}

// tagID maps the tag bytes to its number, or -1 for tags that are not plain
// digits, carry a leading zero, or are too long to be one we consume.
func tagID(tag []byte) int {
	if len(tag) > 4 || (len(tag) > 1 && tag[0] == '0') {
		return -1
	}
	n := 0
	for _, c := range tag {
		if c < '0' || c > '9' {
			return -1
		}
		n = n*10 + int(c-'0')
	}
	return n
}
