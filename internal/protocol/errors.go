package protocol

import (
	"errors"
	"fmt"
)

// Kind classifies a protocol fault. None of these is fatal to a session:
// the receiving side reports the fault and stays responsive.
type Kind uint8

const (
	// KindMalformed marks a line that violates the message grammar.
	KindMalformed Kind = iota
	// KindOutOfOrder marks a well-formed message arriving in a state
	// that does not accept it.
	KindOutOfOrder
	// KindInvalidMoveSequence marks a position whose move list does not
	// replay: an illegal placement, an occupied square, or a move by the
	// wrong side.
	KindInvalidMoveSequence
	// KindMismatch marks a disagreement between the two sides' derived
	// positions. Advisory: the next position message resynchronizes.
	KindMismatch
)

func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed message"
	case KindOutOfOrder:
		return "out of order message"
	case KindInvalidMoveSequence:
		return "invalid move sequence"
	case KindMismatch:
		return "protocol mismatch"
	default:
		return fmt.Sprintf("protocol kind(%d)", uint8(k))
	}
}

// Error is a classified protocol fault with a human-readable detail.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Detail
}

// Errorf builds an Error with a formatted detail.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err. ok is false when err carries no
// protocol classification.
func KindOf(err error) (Kind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}
