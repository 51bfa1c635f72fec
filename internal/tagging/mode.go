package tagging

import "strings"

// Mode selects which tagger generation serves a call.
type Mode string

const (
	// ModeV0 runs only the legacy tagger plus canonicalization.
	ModeV0 Mode = "v0"

	// ModeV1 runs only the scored tagger's filtered evaluate.
	ModeV1 Mode = "v1"

	// ModeBoth runs both taggers and merges their outputs.
	ModeBoth Mode = "both"
)

// ParseMode coerces a raw mode string. Unknown values fall back to
// ModeBoth; the bool result reports whether the input was valid so the
// caller can log the coercion. Misconfigured modes never error.
func ParseMode(raw string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeV0:
		return ModeV0, true
	case ModeV1:
		return ModeV1, true
	case ModeBoth:
		return ModeBoth, true
	}
	return ModeBoth, false
}

// Kind labels what the text being tagged belongs to. It only feeds
// metrics; evaluation logic never branches on it.
type Kind string

const (
	KindMeeting Kind = "meeting"
	KindCommit  Kind = "commit"
)
