package domain

import (
	"errors"
	"strconv"
)

// ErrorKind classifies why a message could not be ingested.
type ErrorKind uint8

const (
	KindMissingTag ErrorKind = iota + 1
	KindInvalidTag
	KindInvalidField
	KindInvalidNumber
	KindInvalidTimestamp
	KindArenaFull
	KindTableFull
)

// String returns the kind name used in error messages and logs
func (k ErrorKind) String() string {
	switch k {
	case KindMissingTag:
		return "MissingTag"
	case KindInvalidTag:
		return "InvalidTag"
	case KindInvalidField:
		return "InvalidField"
	case KindInvalidNumber:
		return "InvalidNumber"
	case KindInvalidTimestamp:
		return "InvalidTimestamp"
	case KindArenaFull:
		return "ArenaFull"
	case KindTableFull:
		return "TableFull"
	default:
		return "Unknown"
	}
}

var (
	// ErrMissingTag is returned when a required tag (11, 55, 54, 38, 52) is absent.
	ErrMissingTag = errors.New("missing tag")

	// ErrInvalidTag is reserved for tags that are syntactically present but unusable.
	ErrInvalidTag = errors.New("invalid tag")

	// ErrInvalidField is returned for a field without '=' or with an empty tag.
	ErrInvalidField = errors.New("invalid field")

	// ErrInvalidNumber is returned when quantity is not a clean unsigned decimal.
	ErrInvalidNumber = errors.New("invalid number")

	// ErrInvalidTimestamp is returned for a malformed YYYYMMDD-HH:MM:SS.ssssss value.
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// ErrArenaFull is returned when the symbol byte budget is exhausted. Not retriable.
	ErrArenaFull = errors.New("arena full")

	// ErrTableFull is returned when no slot is left for a new symbol. Not retriable.
	ErrTableFull = errors.New("table full")
)

var kindSentinels = [...]error{
	KindMissingTag:       ErrMissingTag,
	KindInvalidTag:       ErrInvalidTag,
	KindInvalidField:     ErrInvalidField,
	KindInvalidNumber:    ErrInvalidNumber,
	KindInvalidTimestamp: ErrInvalidTimestamp,
	KindArenaFull:        ErrArenaFull,
	KindTableFull:        ErrTableFull,
}

// ParseError carries the error kind and the byte offset of the offending field.
// AtByte is 0 when the error is not tied to a field (missing tags, capacity).
type ParseError struct {
	Kind   ErrorKind
	AtByte int
}

// NewParseError returns a ParseError for kind at the given offset
func NewParseError(kind ErrorKind, at int) *ParseError {
	return &ParseError{Kind: kind, AtByte: at}
}

func (e *ParseError) Error() string {
	return e.Kind.String() + " at byte " + strconv.Itoa(e.AtByte)
}

// Unwrap exposes the sentinel for the kind so errors.Is(err, ErrTableFull) works.
func (e *ParseError) Unwrap() error {
	if int(e.Kind) < len(kindSentinels) {
		return kindSentinels[e.Kind]
	}
	return nil
}

// IsRetriable is always false: every ingest error is deterministic for the input
// and the fixed capacities.
func (e *ParseError) IsRetriable() bool {
	return false
}

// KindOf extracts the ErrorKind from err, or 0 if err is not a ParseError.
func KindOf(err error) ErrorKind {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

// IsCapacity reports whether err is ArenaFull or TableFull.
func IsCapacity(err error) bool {
	k := KindOf(err)
	return k == KindArenaFull || k == KindTableFull
}

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ErrConfigNotFound is returned when configuration file is missing
var ErrConfigNotFound = errors.New("configuration not found")
