package domain

import "errors"

var (
	// ErrInvalidInput signals user-correctable bad input (month, day, keywords, text length).
	ErrInvalidInput = errors.New("invalid input")
	// ErrOriginNotAllowed signals a request origin outside the allowlist.
	ErrOriginNotAllowed = errors.New("origin not allowed")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrSearchTimeout signals that the search deadline elapsed during a provider call.
	ErrSearchTimeout = errors.New("search timed out")
	// ErrProviderFailure signals a non-timeout embedding/judge provider failure.
	ErrProviderFailure = errors.New("provider request failed")
	// ErrProviderUnavailable signals that no provider is configured for a required operation.
	ErrProviderUnavailable = errors.New("provider not configured")
)

// JudgeCandidate is one near-threshold semantic candidate sent to the weight judge.
type JudgeCandidate struct {
	ID         string
	Phrase     string
	Similarity float64
}

// IsTimeout reports whether err represents an elapsed search deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrSearchTimeout)
}
