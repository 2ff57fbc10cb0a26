package guess

import "errors"

// Input errors. All of them are recoverable: the caller reports and re-prompts.
var (
	ErrOutOfRange      = errors.New("guess out of range")
	ErrMalformedNumber = errors.New("malformed number")
	ErrInvalidInput    = errors.New("invalid input")
)

// Code returns a machine-readable identifier for an input error.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, ErrMalformedNumber):
		return "malformed_number"
	default:
		return "invalid_input"
	}
}

// Hint returns the sentence shown to the player for an input error.
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrOutOfRange):
		return "The number must be between 1 and 100."
	case errors.Is(err, ErrMalformedNumber):
		return "Please enter a valid number."
	default:
		return "Invalid input, please try again."
	}
}
