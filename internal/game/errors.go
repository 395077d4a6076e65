package game

// ErrorKind is the machine-readable classification of an engine failure.
type ErrorKind string

const (
	KindInvalidWord        ErrorKind = "invalid_word"
	KindInvalidState       ErrorKind = "invalid_state"
	KindGuessLimitExceeded ErrorKind = "guess_limit_exceeded"
)

// Error is a structured engine failure: a kind for callers to branch on plus
// a human-readable message. All engine errors are one of the sentinel values
// below, so errors.Is works alongside errors.As.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	// ErrInvalidWord: guess is malformed or not in the dictionary. The user
	// can simply try another word.
	ErrInvalidWord = &Error{Kind: KindInvalidWord, Message: "guess must be a valid 5-letter word"}

	// ErrInvalidState: guess submitted against a non-active game.
	ErrInvalidState = &Error{Kind: KindInvalidState, Message: "game is not active"}

	// ErrGuessLimitExceeded: the guess counter is already at the maximum.
	// Unreachable when state transitions are respected; guarded anyway and
	// treated as an internal-consistency fault.
	ErrGuessLimitExceeded = &Error{Kind: KindGuessLimitExceeded, Message: "guess limit exceeded"}
)
