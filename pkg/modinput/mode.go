package modinput

// Mode selects which of the three protocol exchanges a run performs.
type Mode int

const (
	ModeStream Mode = iota
	ModeScheme
	ModeValidate
)

func (m Mode) String() string {
	switch m {
	case ModeStream:
		return "stream"
	case ModeScheme:
		return "scheme"
	case ModeValidate:
		return "validate"
	default:
		return "unknown"
	}
}

// ParseMode derives the mode from the --scheme and --validate-arguments
// flags. With neither set the run streams events.
func ParseMode(scheme, validate bool) (Mode, error) {
	switch {
	case scheme && validate:
		return 0, ErrConflictingModes
	case scheme:
		return ModeScheme, nil
	case validate:
		return ModeValidate, nil
	default:
		return ModeStream, nil
	}
}
