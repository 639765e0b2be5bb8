// Package bugerr provides the closed set of structured error kinds named in
// the system's error-handling design: ConfigInvalid, CorpusEmpty,
// IOUnreadable, IndexMismatch, EmbedderFailed, ReasonerFailed, and
// RankingDegenerate (which is not actually an error; see Kind docs).
package bugerr

import "fmt"

// Kind classifies a BugError for exit-code mapping and log-line formatting.
type Kind string

const (
	// KindConfigInvalid maps to exit code 2.
	KindConfigInvalid Kind = "ConfigInvalid"
	// KindCorpusEmpty maps to exit code 3.
	KindCorpusEmpty Kind = "CorpusEmpty"
	// KindIOUnreadable is a per-bug, non-fatal I/O failure.
	KindIOUnreadable Kind = "IOUnreadable"
	// KindIndexMismatch maps to exit code 4.
	KindIndexMismatch Kind = "IndexMismatch"
	// KindEmbedderFailed maps to exit code 5 during index build, or is a
	// per-bug failure during the pipeline.
	KindEmbedderFailed Kind = "EmbedderFailed"
	// KindReasonerFailed is a per-bug, non-fatal external-collaborator failure.
	KindReasonerFailed Kind = "ReasonerFailed"
	// KindRankingDegenerate marks an all-zero score vector on both signals.
	// Not a propagated error: rank.Fuse returns an empty (nil) RankedResult
	// for this condition, so no BugError of this kind is constructed.
	KindRankingDegenerate Kind = "RankingDegenerate"
)

// BugError is the structured error type for this system.
type BugError struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *BugError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *BugError) Unwrap() error {
	return e.Cause
}

// Is matches by Kind, so errors.Is(err, bugerr.New(KindCorpusEmpty, "", nil))
// works regardless of Message/Cause.
func (e *BugError) Is(target error) bool {
	t, ok := target.(*BugError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates a BugError of the given kind.
func New(kind Kind, message string, cause error) *BugError {
	return &BugError{Kind: kind, Message: message, Cause: cause}
}

// ExitCode maps a fatal BugError kind to the process exit code named in the
// external-interfaces section: 2 invalid config, 3 corpus empty, 4 index
// artifact mismatch, 5 unrecoverable embedder/reasoner failure during index
// build. Returns 1 for anything else (including per-bug kinds that should
// never reach main as fatal).
func ExitCode(err error) int {
	be, ok := err.(*BugError)
	if !ok {
		return 1
	}
	switch be.Kind {
	case KindConfigInvalid:
		return 2
	case KindCorpusEmpty:
		return 3
	case KindIndexMismatch:
		return 4
	case KindEmbedderFailed:
		return 5
	default:
		return 1
	}
}
