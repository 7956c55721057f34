package model

// Status is the terminal outcome of an optimization run.
type Status int

const (
	StatusNone         Status = iota // success
	StatusNoBox                      // empty box list
	StatusNoBin                      // no usable bin and no base dimensions
	StatusNoPlacement                // no box fits any bin
	StatusInvalidInput               // malformed option combination
	StatusTimeout                    // wall-clock bound exceeded, no partial result
	StatusBadError                   // internal invariant violation
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "NONE"
	case StatusNoBox:
		return "NO_BOX"
	case StatusNoBin:
		return "NO_BIN"
	case StatusNoPlacement:
		return "NO_PLACEMENT_POSSIBLE"
	case StatusInvalidInput:
		return "INVALID_INPUT"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusBadError:
		return "BAD_ERROR"
	default:
		return "UNKNOWN"
	}
}
