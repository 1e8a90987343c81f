package domain

import "fmt"

// Mode selects the instruction template for answer generation.
type Mode string

const (
	// ModeExam answers in past-paper style with marking-scheme structure.
	ModeExam Mode = "exam"
	// ModeLocal answers strictly from the provided course context.
	ModeLocal Mode = "local"
	// ModeGlobal answers from general knowledge, ignoring course specifics.
	ModeGlobal Mode = "global"
	// ModeMixed blends course context with general knowledge.
	ModeMixed Mode = "mixed"
)

// Modes lists the closed set of valid answer modes in display order.
func Modes() []Mode {
	return []Mode{ModeExam, ModeLocal, ModeGlobal, ModeMixed}
}

// ParseMode validates a caller-supplied mode string against the closed set.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeExam, ModeLocal, ModeGlobal, ModeMixed:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

func (m Mode) String() string { return string(m) }
